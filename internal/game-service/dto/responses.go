package dto

import (
	"github.com/radieske/casino-platform/internal/game-service/odds"
	"github.com/radieske/casino-platform/internal/game-service/session"
)

// SessionResponse acrescenta os valores derivados ao snapshot público
type SessionResponse struct {
	*session.Session
	Pot    int64  `json:"pot"`
	Rake   int64  `json:"rake"`
	NetPot int64  `json:"netPot"`
	ToAct  string `json:"toAct,omitempty"`
}

func FromSession(s *session.Session) SessionResponse {
	return SessionResponse{
		Session: s.Public(),
		Pot:     s.Pot(),
		Rake:    s.Rake(),
		NetPot:  s.NetPot(),
		ToAct:   s.ToAct(),
	}
}

type MoveResponse struct {
	Status  string              `json:"status"`
	Session SessionResponse     `json:"session"`
	View    *odds.BlackjackView `json:"view,omitempty"`
}

func FromMoveResult(r session.MoveResult) MoveResponse {
	return MoveResponse{Status: string(r.Status), Session: FromSession(r.Session), View: r.View}
}

type SessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}
