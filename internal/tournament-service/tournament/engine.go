package tournament

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/shared/clock"
	"github.com/radieske/casino-platform/internal/shared/keylock"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// Engine conduz os torneios. Cada operação roda sob o lock do torneio e grava
// o snapshot ao final; cobranças e prêmios passam pelo ledger com chaves
// de idempotência derivadas do torneio.
type Engine struct {
	store    Store
	wallet   Wallet
	log      *zap.Logger
	clock    clock.Clock
	defaults Settings
	ids      func() string
	locks    *keylock.Map
}

type Option func(*Engine)

func WithIDs(f func() string) Option { return func(e *Engine) { e.ids = f } }

// NewEngine; defaults preenche as configurações de fichas omitidas no Create
func NewEngine(store Store, wallet Wallet, log *zap.Logger, clk clock.Clock, defaults Settings, opts ...Option) *Engine {
	if defaults.StartingChips <= 0 {
		defaults.StartingChips = 1_000
	}
	if defaults.RebuyChips <= 0 {
		defaults.RebuyChips = 1_000
	}
	e := &Engine{
		store:    store,
		wallet:   wallet,
		log:      log,
		clock:    clk,
		defaults: defaults,
		ids:      uuid.NewString,
		locks:    keylock.New(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Create(ctx context.Context, spec Spec) (*Tournament, error) {
	if spec.Name == "" || !spec.Game.Valid() {
		return nil, fmt.Errorf("%w: name and game are required", ErrInvalidTournament)
	}
	if spec.MinParticipants < 2 || spec.MaxParticipants < spec.MinParticipants {
		return nil, fmt.Errorf("%w: participants must satisfy 2 <= min <= max", ErrInvalidTournament)
	}
	if spec.EntryFee < 0 || spec.GuaranteedPool < 0 {
		return nil, fmt.Errorf("%w: negative amounts", ErrInvalidTournament)
	}
	if spec.RegistrationEnd != nil && spec.RegistrationEnd.After(spec.StartTime) {
		return nil, fmt.Errorf("%w: registration must end before the start", ErrInvalidTournament)
	}

	tiers := spec.PrizeStructure
	if len(tiers) == 0 {
		tiers = DefaultPrizeStructure(spec.MaxParticipants)
	}
	if err := ValidatePrizeStructure(tiers, spec.MaxParticipants); err != nil {
		return nil, err
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Rank < tiers[j].Rank })

	st := spec.Settings
	if st.StartingChips <= 0 {
		st.StartingChips = e.defaults.StartingChips
	}
	if st.RebuyChips <= 0 {
		st.RebuyChips = e.defaults.RebuyChips
	}
	if st.AddOnChips <= 0 {
		st.AddOnChips = st.StartingChips
	}
	if st.AllowRebuys && st.RebuyCost <= 0 {
		st.RebuyCost = spec.EntryFee
	}
	if st.AllowAddOn && st.AddOnCost <= 0 {
		st.AddOnCost = spec.EntryFee
	}

	t := &Tournament{
		ID:              e.ids(),
		Name:            spec.Name,
		Game:            spec.Game,
		EntryFee:        spec.EntryFee,
		GuaranteedPool:  spec.GuaranteedPool,
		MinParticipants: spec.MinParticipants,
		MaxParticipants: spec.MaxParticipants,
		Status:          StatusRegistration,
		StartTime:       spec.StartTime,
		RegistrationEnd: spec.RegistrationEnd,
		PrizeStructure:  tiers,
		Settings:        st,
		CreatedAt:       e.clock.Now(),
	}
	if err := e.store.Save(ctx, t); err != nil {
		return nil, err
	}
	e.log.Info("tournament created", zap.String("tournamentId", t.ID), zap.String("name", t.Name), zap.Int64("entryFee", t.EntryFee))
	return t.Clone(), nil
}

func (e *Engine) Get(ctx context.Context, id string) (*Tournament, error) {
	return e.store.Get(ctx, id)
}

func (e *Engine) List(ctx context.Context, statuses ...Status) ([]*Tournament, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusRegistration, StatusRunning, StatusCompleted, StatusCancelled}
	}
	return e.store.ListByStatus(ctx, statuses...)
}

// mutate carrega o torneio sob lock, aplica fn e grava se fn não falhar.
// Cobranças feitas por uma mutação que não chegou ao store são estornadas.
func (e *Engine) mutate(ctx context.Context, id string, fn func(t *Tournament) error) (*Tournament, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	t, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	charged := len(t.Debits)
	if err := fn(t); err != nil {
		e.rollback(ctx, t, charged)
		return nil, err
	}
	if err := e.store.Save(ctx, t); err != nil {
		e.rollback(ctx, t, charged)
		return nil, err
	}
	return t.Clone(), nil
}

// rollback devolve as cobranças a partir de from e reemite as chaves: o ledger
// responderia a mesma chave com o débito já estornado, e a nova tentativa
// precisa de um débito de verdade.
func (e *Engine) rollback(ctx context.Context, t *Tournament, from int) {
	if from >= len(t.Debits) {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var reissue []string
	for _, d := range t.Debits[from:] {
		if d.Refunded {
			continue
		}
		if _, err := e.wallet.Credit(ctx, ledger.Request{
			AccountID:      d.AccountID,
			Kind:           ledger.KindRefund,
			Amount:         d.Amount,
			IdempotencyKey: "refund:" + d.Key,
			TournamentID:   t.ID,
			RelatedEntryID: d.EntryID,
			Description:    "tournament charge rollback",
		}); err != nil {
			e.log.Error("tournament charge rollback failed", zap.String("tournamentId", t.ID), zap.String("key", d.Key), zap.Error(err))
			continue
		}
		e.log.Warn("tournament charge rolled back", zap.String("tournamentId", t.ID), zap.String("key", d.Key))
		reissue = append(reissue, d.base)
	}
	if len(reissue) == 0 {
		return
	}

	fresh, err := e.store.Get(ctx, t.ID)
	if err == nil {
		if fresh.Reissued == nil {
			fresh.Reissued = make(map[string]int)
		}
		for _, b := range reissue {
			fresh.Reissued[b]++
		}
		err = e.store.Save(ctx, fresh)
	}
	if err != nil {
		e.log.Error("charge keys not reissued", zap.String("tournamentId", t.ID), zap.Strings("keys", reissue), zap.Error(err))
	}
}

// Register cobra a inscrição e adiciona o participante; lotação completa inicia o torneio
func (e *Engine) Register(ctx context.Context, id, accountID string) (*Tournament, error) {
	return e.mutate(ctx, id, func(t *Tournament) error {
		now := e.clock.Now()
		switch {
		case t.Participant(accountID) >= 0:
			return ErrAlreadyRegistered
		case len(t.Participants) >= t.MaxParticipants:
			return ErrTournamentFull
		case t.Status != StatusRegistration:
			return ErrRegistrationClosed
		case t.RegistrationEnd != nil && !now.Before(*t.RegistrationEnd):
			return ErrRegistrationClosed
		}

		if t.Attempts == nil {
			t.Attempts = make(map[string]int)
		}
		key := "tentry:" + t.ID + ":" + accountID
		if n := t.Attempts[accountID]; n > 0 {
			key += ":" + strconv.Itoa(n+1)
		}
		if err := e.charge(ctx, t, accountID, key, t.EntryFee, "tournament entry"); err != nil {
			return err
		}
		t.Attempts[accountID]++

		t.Participants = append(t.Participants, Participant{
			AccountID:    accountID,
			Chips:        t.Settings.StartingChips,
			Status:       ParticipantActive,
			Order:        t.NextOrder,
			RegisteredAt: now,
		})
		t.NextOrder++
		e.log.Info("tournament registration", zap.String("tournamentId", t.ID), zap.String("accountId", accountID), zap.Int("registered", len(t.Participants)))

		if len(t.Participants) == t.MaxParticipants {
			e.start(t)
		}
		return nil
	})
}

// charge debita via ledger e guarda a cobrança para eventual estorno
func (e *Engine) charge(ctx context.Context, t *Tournament, accountID, base string, amount int64, desc string) error {
	if amount <= 0 {
		return nil
	}
	key := base
	if n := t.Reissued[base]; n > 0 {
		key += ":r" + strconv.Itoa(n)
	}
	entry, err := e.wallet.Debit(ctx, ledger.Request{
		AccountID:      accountID,
		Kind:           ledger.KindTournamentEntry,
		Amount:         amount,
		IdempotencyKey: key,
		TournamentID:   t.ID,
		Description:    desc,
	})
	if err != nil {
		return err
	}
	t.Debits = append(t.Debits, Debit{AccountID: accountID, Key: key, Amount: amount, EntryID: entry.ID, base: base})
	t.Collected += amount
	return nil
}

// refund estorna as cobranças da conta (todas, se accountID for vazio)
func (e *Engine) refund(ctx context.Context, t *Tournament, accountID string) error {
	for i := range t.Debits {
		d := &t.Debits[i]
		if d.Refunded || (accountID != "" && d.AccountID != accountID) {
			continue
		}
		if _, err := e.wallet.Credit(ctx, ledger.Request{
			AccountID:      d.AccountID,
			Kind:           ledger.KindRefund,
			Amount:         d.Amount,
			IdempotencyKey: "refund:" + d.Key,
			TournamentID:   t.ID,
			RelatedEntryID: d.EntryID,
			Description:    "tournament refund",
		}); err != nil {
			return fmt.Errorf("refund %s: %w", d.Key, err)
		}
		d.Refunded = true
		t.Collected -= d.Amount
	}
	return nil
}

// Unregister devolve a inscrição; só durante as inscrições. Sem inscritos
// restantes o torneio é cancelado.
func (e *Engine) Unregister(ctx context.Context, id, accountID string) (*Tournament, error) {
	return e.mutate(ctx, id, func(t *Tournament) error {
		if t.Status != StatusRegistration {
			return ErrRegistrationClosed
		}
		i := t.Participant(accountID)
		if i < 0 {
			return ErrNotRegistered
		}
		if err := e.refund(ctx, t, accountID); err != nil {
			return err
		}
		t.Participants = append(t.Participants[:i], t.Participants[i+1:]...)
		if len(t.Participants) == 0 {
			e.cancelled(t)
		}
		return nil
	})
}

func (e *Engine) start(t *Tournament) {
	now := e.clock.Now()
	t.Status, t.StartedAt = StatusRunning, &now
	e.log.Info("tournament started", zap.String("tournamentId", t.ID), zap.Int("participants", len(t.Participants)), zap.Int64("prizePool", t.PrizePool()))
}

func (e *Engine) cancelled(t *Tournament) {
	now := e.clock.Now()
	t.Status, t.CompletedAt = StatusCancelled, &now
	e.log.Info("tournament cancelled", zap.String("tournamentId", t.ID))
}

// Start inicia o torneio; abaixo do mínimo de participantes ele é cancelado com estorno
func (e *Engine) Start(ctx context.Context, id string) (*Tournament, error) {
	return e.mutate(ctx, id, func(t *Tournament) error {
		if t.Status != StatusRegistration {
			return fmt.Errorf("%w: status %s", ErrRegistrationClosed, t.Status)
		}
		return e.startOrCancel(ctx, t)
	})
}

func (e *Engine) startOrCancel(ctx context.Context, t *Tournament) error {
	if len(t.Participants) < t.MinParticipants {
		if err := e.refund(ctx, t, ""); err != nil {
			return err
		}
		e.cancelled(t)
		return nil
	}
	e.start(t)
	return nil
}

// Tick inicia os torneios cujo horário chegou. Devolve quantos mudaram de status.
func (e *Engine) Tick(ctx context.Context) (int, error) {
	open, err := e.store.ListByStatus(ctx, StatusRegistration)
	if err != nil {
		return 0, err
	}
	now := e.clock.Now()
	n := 0
	for _, snap := range open {
		if now.Before(snap.StartTime) {
			continue
		}
		_, err := e.mutate(ctx, snap.ID, func(t *Tournament) error {
			if t.Status != StatusRegistration {
				return ErrRegistrationClosed
			}
			return e.startOrCancel(ctx, t)
		})
		if err != nil {
			e.log.Warn("tournament tick failed", zap.String("tournamentId", snap.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

// Cancel estorna inscrições, rebuys e add-ons. Cancelar de novo não faz nada.
func (e *Engine) Cancel(ctx context.Context, id string) (*Tournament, error) {
	return e.mutate(ctx, id, func(t *Tournament) error {
		switch t.Status {
		case StatusCompleted:
			return ErrAlreadyFinished
		case StatusCancelled:
			return nil
		}
		if err := e.refund(ctx, t, ""); err != nil {
			return err
		}
		e.cancelled(t)
		return nil
	})
}
