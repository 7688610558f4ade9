package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/shared/httpx"
	"github.com/radieske/casino-platform/internal/wallet-service/dto"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// Server expõe a API HTTP da carteira sobre o Ledger
type Server struct {
	log    *zap.Logger
	ledger *ledger.Ledger
}

func NewServer(log *zap.Logger, l *ledger.Ledger) *Server { return &Server{log: log, ledger: l} }

// Router retorna o roteador com as rotas públicas e internas da carteira
func (s *Server) Router() http.Handler {
	r := httpx.NewRouter("wallet-service")
	r.Get("/wallet", s.getWallet)             // GET ?userId=
	r.Get("/wallet/history", s.history)       // GET ?userId=&cursor=&kind=&status=&from=&to=&page_size=
	r.Post("/wallet/accounts", s.openAccount) // POST
	r.Post("/wallet/deposit", s.deposit)
	r.Post("/wallet/withdraw", s.withdraw)
	r.Post("/wallet/bonus/daily", s.dailyBonus)
	r.Put("/wallet/status", s.updateStatus)
	r.Put("/wallet/limits", s.setLimits)
	r.Post("/wallet/reconcile", s.reconcile)

	// usados por game-service, tournament-service e settlement-worker
	r.Post("/wallet/entries/debit", s.debit)
	r.Post("/wallet/entries/credit", s.credit)
	r.Get("/wallet/entries/{id}", s.getEntry)
	r.Post("/wallet/entries/{id}/settle", s.settle)
	r.Post("/wallet/entries/{id}/cancel", s.cancel)
	return r
}

// getWallet devolve (ou cria) a conta e o saldo do usuário
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "userId required")
		return
	}
	acct, err := s.ledger.OpenAccount(r.Context(), userID)
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromAccount(acct))
}

func (s *Server) openAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenAccountRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	acct, err := s.ledger.OpenAccount(r.Context(), req.UserID)
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, dto.FromAccount(acct))
}

// history devolve uma página do extrato; next_cursor continua a leitura
func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("userId")
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "userId required")
		return
	}
	f, err := parseFilter(q)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	pager, err := s.ledger.History(r.Context(), userID, f)
	if err != nil {
		s.fail(w, err)
		return
	}
	page, err := pager.Next(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	out := dto.HistoryResponse{UserID: userID, Entries: make([]dto.EntryResponse, 0, len(page)), NextCursor: pager.Cursor(), Done: pager.Done()}
	for _, e := range page {
		out.Entries = append(out.Entries, dto.FromEntry(e))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	s.payment(w, r, ledger.KindDeposit)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	s.payment(w, r, ledger.KindWithdrawal)
}

// payment registra o lançamento pendente; o resultado chega depois via settle
func (s *Server) payment(w http.ResponseWriter, r *http.Request, kind ledger.Kind) {
	var req dto.PaymentRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	e, err := s.ledger.Record(r.Context(), ledger.Request{
		AccountID:      req.UserID,
		Kind:           kind,
		Amount:         req.AmountCents,
		IdempotencyKey: req.IdempotencyKey,
		Method:         req.Method,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, dto.FromEntry(e))
}

func (s *Server) debit(w http.ResponseWriter, r *http.Request) {
	s.entry(w, r, s.ledger.Debit)
}

func (s *Server) credit(w http.ResponseWriter, r *http.Request) {
	s.entry(w, r, s.ledger.Credit)
}

func (s *Server) entry(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, req ledger.Request) (ledger.Entry, error)) {
	var req dto.EntryRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	e, err := op(r.Context(), ledger.Request{
		AccountID:      req.UserID,
		Kind:           ledger.Kind(req.Kind),
		Amount:         req.AmountCents,
		IdempotencyKey: req.IdempotencyKey,
		SessionID:      req.SessionID,
		TournamentID:   req.TournamentID,
		RelatedEntryID: req.RelatedEntryID,
		Description:    req.Description,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromEntry(e))
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.ledger.Entry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromEntry(e))
}

func (s *Server) settle(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	e, err := s.ledger.Settle(r.Context(), chi.URLParam(r, "id"), ledger.Outcome{
		Success:     req.Success,
		ProviderRef: req.ProviderRef,
		Reason:      req.Reason,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromEntry(e))
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	e, err := s.ledger.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromEntry(e))
}

func (s *Server) dailyBonus(w http.ResponseWriter, r *http.Request) {
	var req dto.UserRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	e, err := s.ledger.ClaimDailyBonus(r.Context(), req.UserID)
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromEntry(e))
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.StatusRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	if err := s.ledger.UpdateStatus(r.Context(), req.UserID, ledger.AccountStatus(req.Status)); err != nil {
		s.fail(w, err)
		return
	}
	s.writeAccount(w, r, req.UserID)
}

func (s *Server) setLimits(w http.ResponseWriter, r *http.Request) {
	var req dto.LimitsRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	err := s.ledger.SetLimits(r.Context(), req.UserID, ledger.Limits{
		DailyDepositLimit:  req.DailyDepositLimitCents,
		DailyWagerLimit:    req.DailyWagerLimitCents,
		SelfExclusionUntil: req.SelfExclusionUntil,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeAccount(w, r, req.UserID)
}

func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	var req dto.UserRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	if err := s.ledger.Reconcile(r.Context(), req.UserID); err != nil {
		s.fail(w, err)
		return
	}
	s.writeAccount(w, r, req.UserID)
}

func (s *Server) writeAccount(w http.ResponseWriter, r *http.Request, userID string) {
	acct, err := s.ledger.Account(r.Context(), userID)
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromAccount(acct))
}

// fail traduz erros do ledger para status HTTP
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("wallet request failed", zap.Error(err))
	}
	httpx.WriteError(w, status, ledger.Code(err), err.Error())
}

// StatusFor mapeia os erros de negócio do ledger para status HTTP
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAccountBlocked):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrInvariantViolation):
		return http.StatusLocked
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrLimitExceeded),
		errors.Is(err, ledger.ErrBelowMinimum):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidKind),
		errors.Is(err, ledger.ErrInvalidStatus),
		errors.Is(err, ledger.ErrWrongDirection):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotSettleable),
		errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, ledger.ErrIdempotencyConflict),
		errors.Is(err, ledger.ErrBonusAlreadyClaimed),
		errors.Is(err, ledger.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrSettlementFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func parseFilter(q url.Values) (ledger.Filter, error) {
	var f ledger.Filter
	get := q.Get
	if c := get("cursor"); c != "" {
		n, err := strconv.ParseInt(c, 10, 64)
		if err != nil || n < 0 {
			return f, errors.New("invalid cursor")
		}
		f.After = n
	}
	if ps := get("page_size"); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil {
			return f, errors.New("invalid page_size")
		}
		f.PageSize = n
	}
	for _, k := range splitList(q["kind"]) {
		f.Kinds = append(f.Kinds, ledger.Kind(k))
	}
	for _, st := range splitList(q["status"]) {
		f.Statuses = append(f.Statuses, ledger.Status(st))
	}
	var err error
	if f.From, err = parseTime(get("from")); err != nil {
		return f, errors.New("invalid from")
	}
	if f.To, err = parseTime(get("to")); err != nil {
		return f, errors.New("invalid to")
	}
	return f, nil
}

// splitList aceita tanto ?kind=a&kind=b quanto ?kind=a,b
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
