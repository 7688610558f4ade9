package dto

import (
	"github.com/radieske/casino-platform/internal/tournament-service/tournament"
)

// TournamentResponse acrescenta os valores derivados ao snapshot;
// cobranças e tentativas de inscrição ficam de fora
type TournamentResponse struct {
	*tournament.Tournament
	Debits      []tournament.Debit `json:"debits,omitempty"`
	Attempts    map[string]int     `json:"attempts,omitempty"`
	PrizePool   int64              `json:"prize_pool_cents"`
	ActiveCount int                `json:"activeCount"`
}

func FromTournament(t *tournament.Tournament) TournamentResponse {
	return TournamentResponse{Tournament: t, PrizePool: t.PrizePool(), ActiveCount: t.ActiveCount()}
}

type TournamentsResponse struct {
	Tournaments []TournamentResponse `json:"tournaments"`
}

type LeaderboardEntry struct {
	Position  int    `json:"position"`
	AccountID string `json:"accountId"`
	Chips     int64  `json:"chips"`
}

type LeaderboardResponse struct {
	TournamentID string             `json:"tournamentId"`
	Entries      []LeaderboardEntry `json:"entries"`
}

func FromLeaderboard(id string, ps []tournament.Participant) LeaderboardResponse {
	out := LeaderboardResponse{TournamentID: id, Entries: make([]LeaderboardEntry, 0, len(ps))}
	for i, p := range ps {
		out.Entries = append(out.Entries, LeaderboardEntry{Position: i + 1, AccountID: p.AccountID, Chips: p.Chips})
	}
	return out
}
