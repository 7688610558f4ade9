package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/game-service/odds"
	"github.com/radieske/casino-platform/internal/shared/httpx"
	"github.com/radieske/casino-platform/internal/tournament-service/dto"
	"github.com/radieske/casino-platform/internal/tournament-service/tournament"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// Server expõe os torneios via REST. As rotas de mesa (eliminate, transfer,
// complete) são chamadas pelo dealer, não pelo jogador.
type Server struct {
	log    *zap.Logger
	engine *tournament.Engine
}

func NewServer(log *zap.Logger, e *tournament.Engine) *Server {
	return &Server{log: log, engine: e}
}

func (s *Server) Router() chi.Router {
	r := httpx.NewRouter("tournament-service")
	r.Route("/v1/tournaments", func(r chi.Router) {
		r.Post("/", s.create)
		r.Get("/", s.list)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.get)
			r.Get("/leaderboard", s.leaderboard)
			r.Post("/register", s.account(s.engine.Register))
			r.Post("/unregister", s.account(s.engine.Unregister))
			r.Post("/rebuy", s.account(s.engine.AddRebuy))
			r.Post("/addon", s.account(s.engine.AddOn))
			r.Post("/start", s.byID(s.engine.Start))
			r.Post("/cancel", s.byID(s.engine.Cancel))
			r.Post("/complete", s.byID(s.engine.Complete))
			r.Post("/eliminations", s.eliminate)
			r.Post("/transfers", s.transfer)
		})
	})
	return r
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTournamentRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	spec := tournament.Spec{
		Name:            req.Name,
		Game:            odds.GameType(req.Game),
		EntryFee:        req.EntryFeeCents,
		GuaranteedPool:  req.GuaranteedCents,
		MinParticipants: req.MinParticipants,
		MaxParticipants: req.MaxParticipants,
		StartTime:       req.StartTime,
		RegistrationEnd: req.RegistrationEnd,
		Settings: tournament.Settings{
			StartingChips: req.StartingChips,
			AllowRebuys:   req.AllowRebuys,
			MaxRebuys:     req.MaxRebuys,
			RebuyCost:     req.RebuyCents,
			RebuyChips:    req.RebuyChips,
			AllowAddOn:    req.AllowAddOn,
			AddOnCost:     req.AddOnCents,
			AddOnChips:    req.AddOnChips,
		},
	}
	for _, p := range req.PrizeStructure {
		spec.PrizeStructure = append(spec.PrizeStructure, tournament.PrizeTier{Rank: p.Rank, Fraction: p.Fraction})
	}
	t, err := s.engine.Create(r.Context(), spec)
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, dto.FromTournament(t))
}

// list aceita ?status=registration (repetível); sem filtro devolve todos
func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	var statuses []tournament.Status
	for _, v := range r.URL.Query()["status"] {
		statuses = append(statuses, tournament.Status(v))
	}
	ts, err := s.engine.List(r.Context(), statuses...)
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := dto.TournamentsResponse{Tournaments: make([]dto.TournamentResponse, 0, len(ts))}
	for _, t := range ts {
		resp.Tournaments = append(resp.Tournaments, dto.FromTournament(t))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	t, err := s.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromTournament(t))
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ps, err := s.engine.Leaderboard(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromLeaderboard(id, ps))
}

type accountOp func(ctx context.Context, id, accountID string) (*tournament.Tournament, error)

// account adapta as operações (torneio, conta) ao corpo {"userId": ...}
func (s *Server) account(op accountOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.AccountRequest
		if !httpx.Decode(w, r, &req) {
			return
		}
		t, err := op(r.Context(), chi.URLParam(r, "id"), req.UserID)
		if err != nil {
			s.fail(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, dto.FromTournament(t))
	}
}

func (s *Server) byID(op func(ctx context.Context, id string) (*tournament.Tournament, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := op(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.fail(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, dto.FromTournament(t))
	}
}

func (s *Server) eliminate(w http.ResponseWriter, r *http.Request) {
	var req dto.EliminateRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	t, err := s.engine.EliminateMany(r.Context(), chi.URLParam(r, "id"), req.Accounts, req.By)
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromTournament(t))
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	t, err := s.engine.TransferChips(r.Context(), chi.URLParam(r, "id"), req.From, req.To, req.Amount)
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromTournament(t))
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("tournament request failed", zap.Error(err))
	}
	httpx.WriteError(w, status, Code(err), err.Error())
}

var codes = []struct {
	err  error
	code string
}{
	{tournament.ErrNotFound, "tournament_not_found"},
	{tournament.ErrRegistrationClosed, "registration_closed"},
	{tournament.ErrTournamentFull, "tournament_full"},
	{tournament.ErrAlreadyRegistered, "already_registered"},
	{tournament.ErrNotRegistered, "not_registered"},
	{tournament.ErrNotRunning, "tournament_not_running"},
	{tournament.ErrNotActive, "participant_not_active"},
	{tournament.ErrAlreadyFinished, "tournament_finished"},
	{tournament.ErrInvalidTournament, "invalid_tournament"},
	{tournament.ErrInvalidPrizeStructure, "invalid_prize_structure"},
	{tournament.ErrInvalidElimination, "invalid_elimination"},
	{tournament.ErrInsufficientChips, "insufficient_chips"},
	{tournament.ErrInvalidTransfer, "invalid_transfer"},
	{tournament.ErrRebuyNotAllowed, "rebuy_not_allowed"},
	{tournament.ErrRebuyLimit, "rebuy_limit"},
	{tournament.ErrAddOnNotAllowed, "addon_not_allowed"},
	{tournament.ErrAddOnUsed, "addon_used"},
	{tournament.ErrVersionConflict, "version_conflict"},
}

func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ledger.Code(err)
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, tournament.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tournament.ErrInvalidTournament),
		errors.Is(err, tournament.ErrInvalidPrizeStructure),
		errors.Is(err, tournament.ErrInvalidElimination),
		errors.Is(err, tournament.ErrInvalidTransfer):
		return http.StatusBadRequest
	case errors.Is(err, tournament.ErrNotRegistered):
		return http.StatusForbidden
	case errors.Is(err, tournament.ErrRegistrationClosed),
		errors.Is(err, tournament.ErrTournamentFull),
		errors.Is(err, tournament.ErrAlreadyRegistered),
		errors.Is(err, tournament.ErrNotRunning),
		errors.Is(err, tournament.ErrNotActive),
		errors.Is(err, tournament.ErrAlreadyFinished),
		errors.Is(err, tournament.ErrRebuyNotAllowed),
		errors.Is(err, tournament.ErrRebuyLimit),
		errors.Is(err, tournament.ErrAddOnNotAllowed),
		errors.Is(err, tournament.ErrAddOnUsed),
		errors.Is(err, tournament.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, tournament.ErrInsufficientChips),
		errors.Is(err, ledger.ErrInsufficientFunds),
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
