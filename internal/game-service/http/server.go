package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/game-service/dto"
	"github.com/radieske/casino-platform/internal/game-service/odds"
	"github.com/radieske/casino-platform/internal/game-service/session"
	"github.com/radieske/casino-platform/internal/shared/httpx"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// Server expõe as sessões de jogo via REST
type Server struct {
	log      *zap.Logger
	sessions *session.Manager
}

func NewServer(log *zap.Logger, m *session.Manager) *Server {
	return &Server{log: log, sessions: m}
}

// Routes registra as rotas em um router existente (o main acrescenta o /ws)
func (s *Server) Routes(r chi.Router) {
	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.placeBet)
		r.Get("/", s.listOpen)
		r.Get("/{id}", s.get)
		r.Post("/{id}/join", s.join)
		r.Post("/{id}/moves", s.move)
		r.Post("/{id}/leave", s.leave)
	})
}

func (s *Server) Router() chi.Router {
	r := httpx.NewRouter("game-service")
	s.Routes(r)
	return r
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	out, err := s.sessions.PlaceBet(r.Context(), req.UserID, odds.GameType(req.Game), req.AmountCents, session.BetOptions{
		Selection: req.Selection,
		Seats:     req.Seats,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, dto.FromSession(out))
}

func (s *Server) listOpen(w http.ResponseWriter, r *http.Request) {
	open, err := s.sessions.ListOpen(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := dto.SessionsResponse{Sessions: make([]dto.SessionResponse, 0, len(open))}
	for _, o := range open {
		resp.Sessions = append(resp.Sessions, dto.FromSession(o))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	out, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromSession(out))
}

func (s *Server) join(w http.ResponseWriter, r *http.Request) {
	var req dto.JoinRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	out, err := s.sessions.Join(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromSession(out))
}

func (s *Server) move(w http.ResponseWriter, r *http.Request) {
	var req dto.MoveRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	res, err := s.sessions.SubmitMove(r.Context(), chi.URLParam(r, "id"), req.UserID, req.Seq, session.MoveInput{
		Action:    req.Action,
		Selection: req.Selection,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromMoveResult(res))
}

func (s *Server) leave(w http.ResponseWriter, r *http.Request) {
	var req dto.LeaveRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	out, err := s.sessions.Leave(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromSession(out))
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("session request failed", zap.Error(err))
	}
	httpx.WriteError(w, status, Code(err), err.Error())
}

var codes = []struct {
	err  error
	code string
}{
	{session.ErrNotFound, "session_not_found"},
	{session.ErrSessionFull, "session_full"},
	{session.ErrSessionNotJoinable, "session_not_joinable"},
	{session.ErrAlreadyJoined, "already_joined"},
	{session.ErrSessionClosed, "session_closed"},
	{session.ErrSessionNotActive, "session_not_active"},
	{session.ErrNotSeated, "not_seated"},
	{session.ErrPlayerOut, "player_out"},
	{session.ErrNotYourTurn, "not_your_turn"},
	{session.ErrInvalidMove, "invalid_move"},
	{session.ErrInvalidBet, "invalid_bet"},
	{session.ErrVersionConflict, "version_conflict"},
	{odds.ErrUnknownGame, "unknown_game"},
}

// Code devolve o código estável do erro; erros da carteira usam os códigos do ledger
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ledger.Code(err)
}

// StatusFor mapeia erros de sessão e da carteira para status HTTP
func StatusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotSeated):
		return http.StatusForbidden
	case errors.Is(err, session.ErrInvalidMove),
		errors.Is(err, session.ErrInvalidBet),
		errors.Is(err, odds.ErrUnknownGame),
		errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionFull),
		errors.Is(err, session.ErrSessionNotJoinable),
		errors.Is(err, session.ErrAlreadyJoined),
		errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, session.ErrSessionNotActive),
		errors.Is(err, session.ErrPlayerOut),
		errors.Is(err, session.ErrNotYourTurn),
		errors.Is(err, session.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrLimitExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrAccountBlocked):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvariantViolation):
		return http.StatusLocked
	}
	return http.StatusInternalServerError
}
