package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/shared/clock"
)

// Policy são os parâmetros de negócio do ledger (centavos)
type Policy struct {
	HighValueThreshold int64 // >= marca para revisão manual; 0 desliga
	MinWithdrawal      int64
	WelcomeBonus       int64
	DailyBonus         int64
	DailyDepositLimit  int64 // padrão para contas novas
	DailyWagerLimit    int64
}

// Ledger é a fonte de verdade do saldo. Toda movimentação passa por aqui.
type Ledger struct {
	store     Store
	log       *zap.Logger
	clock     clock.Clock
	policy    Policy
	payments  PaymentProcessor
	publisher Publisher
}

type Option func(*Ledger)

// WithPayments conecta o processador de pagamentos. Sem ele, depósitos e saques
// ficam pendentes até um Settle externo.
func WithPayments(p PaymentProcessor) Option { return func(l *Ledger) { l.payments = p } }

// WithPublisher conecta a trilha de auditoria
func WithPublisher(p Publisher) Option { return func(l *Ledger) { l.publisher = p } }

func New(store Store, log *zap.Logger, clk clock.Clock, policy Policy, opts ...Option) *Ledger {
	l := &Ledger{store: store, log: log, clock: clk, policy: policy}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Record cria um lançamento. Tipos internos completam na mesma transação que
// atualiza o saldo; depósitos e saques ficam pendentes aguardando Settle.
// A chave de idempotência vira o id: repetir a chamada devolve o lançamento existente.
func (l *Ledger) Record(ctx context.Context, req Request) (Entry, error) {
	if err := validateRequest(req); err != nil {
		return Entry{}, err
	}
	id := req.IdempotencyKey
	if id == "" {
		id = uuid.NewString()
	}
	now := l.clock.Now()

	var (
		out     Entry
		created bool
		balance int64
	)
	err := l.store.WithAccount(ctx, req.AccountID, func(tx Tx) error {
		existing, ok, err := tx.Entry(ctx, id)
		if err != nil {
			return err
		}
		if ok {
			if existing.AccountID != req.AccountID || existing.Kind != req.Kind || existing.Amount != req.Amount {
				return ErrIdempotencyConflict
			}
			out = existing
			return nil
		}

		acct := tx.Account()
		if err := gate(acct, req.Kind, now); err != nil {
			return err
		}
		if err := l.checkLimits(ctx, tx, acct, req, now); err != nil {
			return err
		}

		e := Entry{
			ID:             id,
			AccountID:      req.AccountID,
			Kind:           req.Kind,
			Amount:         req.Amount,
			Status:         StatusPending,
			Reference:      newReference(now),
			SessionID:      req.SessionID,
			TournamentID:   req.TournamentID,
			RelatedEntryID: req.RelatedEntryID,
			Method:         req.Method,
			Description:    req.Description,
			RequiresReview: l.policy.HighValueThreshold > 0 && req.Amount >= l.policy.HighValueThreshold,
			CreatedAt:      now,
		}

		switch {
		case req.Kind == KindDeposit:
			// credita só na liquidação
		case req.Kind == KindWithdrawal:
			if req.Amount < l.policy.MinWithdrawal {
				return ErrBelowMinimum
			}
			if acct.Balance < req.Amount {
				return ErrInsufficientFunds
			}
			acct.Balance -= req.Amount
			e.Posted = true
		case req.Kind.IsDebit():
			if acct.Balance < req.Amount {
				return ErrInsufficientFunds
			}
			acct.Balance -= req.Amount
			complete(&e, now)
		default:
			acct.Balance += req.Amount
			complete(&e, now)
		}

		acct.LastSeq++
		e.Seq = acct.LastSeq
		if err := tx.InsertEntry(ctx, e); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, acct); err != nil {
			return err
		}
		out, created, balance = e, true, acct.Balance
		return nil
	})
	if errors.Is(err, ErrDuplicateEntry) {
		// corrida com outra requisição usando a mesma chave
		return l.replay(ctx, id, req)
	}
	if err != nil {
		return Entry{}, err
	}
	if !created {
		return out, nil
	}

	if out.RequiresReview {
		l.log.Warn("high value entry flagged for review",
			zap.String("entryId", out.ID),
			zap.String("accountId", out.AccountID),
			zap.String("kind", string(out.Kind)),
			zap.Int64("amount", out.Amount),
		)
	}
	l.publish(ctx, out, balance)

	if out.Kind.External() {
		return l.initiate(ctx, out)
	}
	return out, nil
}

// Settle aplica o resultado do processador a um depósito ou saque pendente.
// Uma segunda chamada não altera nada e devolve o estado terminal anterior.
// Falha de saque grava o estorno na mesma transação que marca o saque como failed.
func (l *Ledger) Settle(ctx context.Context, entryID string, o Outcome) (Entry, error) {
	e, err := l.store.FindEntry(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if !e.Kind.External() {
		return Entry{}, ErrNotSettleable
	}

	now := l.clock.Now()
	var (
		out     Entry
		changed []Entry
		balance int64
	)
	err = l.store.WithAccount(ctx, e.AccountID, func(tx Tx) error {
		cur, ok, err := tx.Entry(ctx, entryID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		if cur.Status.Terminal() {
			out = cur
			return nil
		}

		acct := tx.Account()
		if acct.Frozen {
			return ErrInvariantViolation
		}

		cur.CompletedAt = &now
		cur.ProviderRef = o.ProviderRef
		if o.Success {
			cur.Status = StatusCompleted
			if cur.Kind == KindDeposit {
				acct.Balance += cur.Amount
				cur.Posted = true
			}
		} else {
			cur.Status = StatusFailed
			cur.FailureReason = o.Reason
		}
		if err := tx.UpdateEntry(ctx, cur); err != nil {
			return err
		}
		changed = append(changed, cur)

		if !o.Success && cur.Kind == KindWithdrawal {
			refund, err := compensate(ctx, tx, &acct, cur, "withdrawal failed: "+o.Reason, now)
			if err != nil {
				return err
			}
			changed = append(changed, refund)
		}

		if err := tx.SaveAccount(ctx, acct); err != nil {
			return err
		}
		out, balance = cur, acct.Balance
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	for _, c := range changed {
		l.publish(ctx, c, balance)
	}
	if len(changed) > 0 && !o.Success {
		l.log.Warn("settlement failed",
			zap.String("entryId", out.ID),
			zap.String("accountId", out.AccountID),
			zap.String("kind", string(out.Kind)),
			zap.String("reason", o.Reason),
		)
	}
	return out, nil
}

// Cancel cancela um depósito ou saque ainda pendente; saque cancelado é estornado.
func (l *Ledger) Cancel(ctx context.Context, entryID, reason string) (Entry, error) {
	e, err := l.store.FindEntry(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if !e.Kind.External() {
		return Entry{}, ErrNotSettleable
	}

	now := l.clock.Now()
	var (
		out     Entry
		changed []Entry
		balance int64
	)
	err = l.store.WithAccount(ctx, e.AccountID, func(tx Tx) error {
		cur, ok, err := tx.Entry(ctx, entryID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		switch cur.Status {
		case StatusCancelled:
			out = cur
			return nil
		case StatusPending:
		default:
			return ErrInvalidTransition
		}

		acct := tx.Account()
		if acct.Frozen {
			return ErrInvariantViolation
		}

		cur.Status = StatusCancelled
		cur.CompletedAt = &now
		cur.FailureReason = reason
		if err := tx.UpdateEntry(ctx, cur); err != nil {
			return err
		}
		changed = append(changed, cur)

		if cur.Kind == KindWithdrawal {
			refund, err := compensate(ctx, tx, &acct, cur, "withdrawal cancelled", now)
			if err != nil {
				return err
			}
			changed = append(changed, refund)
		}
		if err := tx.SaveAccount(ctx, acct); err != nil {
			return err
		}
		out, balance = cur, acct.Balance
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	for _, c := range changed {
		l.publish(ctx, c, balance)
	}
	return out, nil
}

// Balance devolve o saldo atual da conta
func (l *Ledger) Balance(ctx context.Context, accountID string) (int64, error) {
	a, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

// Entry busca um lançamento pelo id
func (l *Ledger) Entry(ctx context.Context, id string) (Entry, error) {
	return l.store.FindEntry(ctx, id)
}

// Reconcile confere o saldo contra a soma dos lançamentos efetivados.
// Divergência congela a conta (persistido) e devolve ErrInvariantViolation.
func (l *Ledger) Reconcile(ctx context.Context, accountID string) error {
	var expected, actual int64
	mismatch := false
	err := l.store.WithAccount(ctx, accountID, func(tx Tx) error {
		sum, err := tx.PostedBalance(ctx)
		if err != nil {
			return err
		}
		acct := tx.Account()
		expected, actual = sum, acct.Balance
		if sum == acct.Balance {
			return nil
		}
		mismatch = true
		acct.Frozen = true
		return tx.SaveAccount(ctx, acct)
	})
	if err != nil {
		return err
	}
	if mismatch {
		l.log.Error("ledger reconciliation mismatch, account frozen",
			zap.String("accountId", accountID),
			zap.Int64("ledgerSum", expected),
			zap.Int64("balance", actual),
		)
		return fmt.Errorf("%w: account %s balance %d, ledger %d", ErrInvariantViolation, accountID, actual, expected)
	}
	return nil
}

// Unfreeze libera uma conta congelada depois da correção manual.
// A reconciliação precisa fechar antes da liberação.
func (l *Ledger) Unfreeze(ctx context.Context, accountID string) error {
	return l.store.WithAccount(ctx, accountID, func(tx Tx) error {
		sum, err := tx.PostedBalance(ctx)
		if err != nil {
			return err
		}
		acct := tx.Account()
		if sum != acct.Balance {
			return ErrInvariantViolation
		}
		acct.Frozen = false
		return tx.SaveAccount(ctx, acct)
	})
}

func (l *Ledger) initiate(ctx context.Context, e Entry) (Entry, error) {
	if l.payments == nil {
		return e, nil
	}
	err := l.payments.Initiate(ctx, PaymentRequest{
		EntryID:   e.ID,
		AccountID: e.AccountID,
		Kind:      e.Kind,
		Amount:    e.Amount,
		Method:    e.Method,
		Reference: e.Reference,
	})
	if err == nil {
		return e, nil
	}

	l.log.Error("payment initiate failed",
		zap.String("entryId", e.ID),
		zap.String("accountId", e.AccountID),
		zap.Error(err),
	)
	settled, serr := l.Settle(ctx, e.ID, Outcome{Reason: "processor_unavailable"})
	if serr != nil {
		return e, fmt.Errorf("%w: %v (compensation pending: %v)", ErrSettlementFailure, err, serr)
	}
	return settled, fmt.Errorf("%w: %v", ErrSettlementFailure, err)
}

func (l *Ledger) replay(ctx context.Context, id string, req Request) (Entry, error) {
	e, err := l.store.FindEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if e.AccountID != req.AccountID || e.Kind != req.Kind || e.Amount != req.Amount {
		return Entry{}, ErrIdempotencyConflict
	}
	return e, nil
}

func (l *Ledger) publish(ctx context.Context, e Entry, balance int64) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.EntryChanged(ctx, e, balance); err != nil {
		l.log.Warn("ledger publish failed", zap.String("entryId", e.ID), zap.Error(err))
	}
}

func (l *Ledger) checkLimits(ctx context.Context, tx Tx, acct Account, req Request, now time.Time) error {
	var limit int64
	var kinds []Kind
	switch {
	case req.Kind == KindDeposit:
		limit, kinds = acct.DailyDepositLimit, []Kind{KindDeposit}
	case req.Kind.Wager():
		limit, kinds = acct.DailyWagerLimit, []Kind{KindBet, KindTournamentEntry}
	}
	if limit <= 0 {
		return nil
	}
	used, err := tx.SumAmounts(ctx, kinds, clock.StartOfDay(now))
	if err != nil {
		return err
	}
	if used+req.Amount > limit {
		return ErrLimitExceeded
	}
	return nil
}

// gate aplica o status da conta: banida bloqueia tudo, suspensa só recebe créditos
func gate(acct Account, kind Kind, now time.Time) error {
	if acct.Frozen {
		return ErrInvariantViolation
	}
	switch acct.Status {
	case AccountBanned:
		return ErrAccountBlocked
	case AccountSuspended:
		if kind.IsDebit() {
			return ErrAccountBlocked
		}
	}
	if kind.Wager() && acct.SelfExclusionUntil != nil && now.Before(*acct.SelfExclusionUntil) {
		return fmt.Errorf("%w: self-excluded until %s", ErrAccountBlocked, acct.SelfExclusionUntil.Format(time.RFC3339))
	}
	return nil
}

// compensate grava o estorno de um saque dentro da transação corrente
func compensate(ctx context.Context, tx Tx, acct *Account, orig Entry, reason string, now time.Time) (Entry, error) {
	acct.LastSeq++
	refund := Entry{
		ID:             "refund:" + orig.ID,
		AccountID:      orig.AccountID,
		Kind:           KindRefund,
		Amount:         orig.Amount,
		Seq:            acct.LastSeq,
		Reference:      newReference(now),
		RelatedEntryID: orig.ID,
		Description:    reason,
		CreatedAt:      now,
	}
	complete(&refund, now)
	acct.Balance += refund.Amount
	if err := tx.InsertEntry(ctx, refund); err != nil {
		return Entry{}, err
	}
	return refund, nil
}

func complete(e *Entry, now time.Time) {
	e.Status = StatusCompleted
	e.Posted = true
	e.CompletedAt = &now
}

func validateRequest(req Request) error {
	if req.AccountID == "" {
		return ErrNotFound
	}
	if !req.Kind.Valid() {
		return ErrInvalidKind
	}
	if req.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// newReference gera a referência externa TXN-<ms base36>-<5 aleatórios>
func newReference(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	rnd := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:5])
	return "TXN-" + ts + "-" + rnd
}
