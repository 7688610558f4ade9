package tournament_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/game-service/odds"
	"github.com/radieske/casino-platform/internal/shared/clock"
	"github.com/radieske/casino-platform/internal/tournament-service/repo"
	"github.com/radieske/casino-platform/internal/tournament-service/tournament"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
	walletrepo "github.com/radieske/casino-platform/internal/wallet-service/repo"
)

var t0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type env struct {
	e     *tournament.Engine
	l     *ledger.Ledger
	clk   *clock.Manual
	store *brokenStore
}

// brokenStore falha as próximas N gravações
type brokenStore struct {
	tournament.Store
	fail atomic.Int32
}

func (s *brokenStore) Save(ctx context.Context, t *tournament.Tournament) error {
	if s.fail.Add(-1) >= 0 {
		return errors.New("store unavailable")
	}
	return s.Store.Save(ctx, t)
}

func newEnv(t *testing.T, wallet func(*ledger.Ledger) tournament.Wallet) *env {
	t.Helper()
	clk := clock.NewManual(t0)
	l := ledger.New(walletrepo.NewMemory(), zap.NewNop(), clk, ledger.Policy{WelcomeBonus: 1_000})
	var w tournament.Wallet = l
	if wallet != nil {
		w = wallet(l)
	}
	var n atomic.Int64
	store := &brokenStore{Store: repo.NewMemory()}
	e := tournament.NewEngine(store, w, zap.NewNop(), clk, tournament.Settings{},
		tournament.WithIDs(func() string { return fmt.Sprintf("t%d", n.Add(1)) }))
	return &env{e: e, l: l, clk: clk, store: store}
}

func (v *env) open(t *testing.T, accounts ...string) {
	t.Helper()
	for _, a := range accounts {
		_, err := v.l.OpenAccount(context.Background(), a)
		require.NoError(t, err)
	}
}

func (v *env) balance(t *testing.T, account string) int64 {
	t.Helper()
	b, err := v.l.Balance(context.Background(), account)
	require.NoError(t, err)
	return b
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func spec(max int) tournament.Spec {
	return tournament.Spec{
		Name:            "Sunday",
		Game:            odds.Poker,
		EntryFee:        50,
		MinParticipants: 2,
		MaxParticipants: max,
		StartTime:       t0.Add(time.Hour),
		PrizeStructure:  []tournament.PrizeTier{{Rank: 1, Fraction: d("0.6")}, {Rank: 2, Fraction: d("0.4")}},
	}
}

// fourPlayers registra A, B, C, D; a lotação inicia o torneio
func (v *env) fourPlayers(t *testing.T, s tournament.Spec) *tournament.Tournament {
	t.Helper()
	ctx := context.Background()
	v.open(t, "A", "B", "C", "D")
	tr, err := v.e.Create(ctx, s)
	require.NoError(t, err)
	for _, a := range []string{"A", "B", "C", "D"} {
		tr, err = v.e.Register(ctx, tr.ID, a)
		require.NoError(t, err)
	}
	require.Equal(t, tournament.StatusRunning, tr.Status)
	return tr
}

func rankOf(tr *tournament.Tournament, account string) int {
	return tr.Participants[tr.Participant(account)].FinalRank
}

func TestEliminationRanksAndPrizes(t *testing.T) {
	ctx := context.Background()
	v := newEnv(t, nil)
	tr := v.fourPlayers(t, spec(4))
	assert.Equal(t, int64(200), tr.PrizePool())

	tr, err := v.e.Eliminate(ctx, tr.ID, "C", "")
	require.NoError(t, err)
	assert.Equal(t, int64(4_000), tr.TotalChips())
	// 1000 divididas entre A, B e D; o resto vai para A (inscrito primeiro)
	assert.Equal(t, int64(1_334), tr.Participants[tr.Participant("A")].Chips)
	assert.Equal(t, int64(1_333), tr.Participants[tr.Participant("D")].Chips)

	tr, err = v.e.Eliminate(ctx, tr.ID, "D", "")
	require.NoError(t, err)
	tr, err = v.e.Eliminate(ctx, tr.ID, "B", "A")
	require.NoError(t, err)

	assert.Equal(t, tournament.StatusCompleted, tr.Status)
	assert.True(t, tr.PayoutsDone)
	assert.Equal(t, 4, rankOf(tr, "C"))
	assert.Equal(t, 3, rankOf(tr, "D"))
	assert.Equal(t, 2, rankOf(tr, "B"))
	assert.Equal(t, 1, rankOf(tr, "A"))

	assert.Equal(t, int64(1_070), v.balance(t, "A"))
	assert.Equal(t, int64(1_030), v.balance(t, "B"))
	assert.Equal(t, int64(950), v.balance(t, "C"))
	assert.Equal(t, int64(950), v.balance(t, "D"))

	_, err = v.e.Eliminate(ctx, tr.ID, "A", "")
	assert.ErrorIs(t, err, tournament.ErrNotRunning)
}

func TestEliminateMany(t *testing.T) {
	ctx := context.Background()

	t.Run("bigger stack gets the better rank", func(t *testing.T) {
		v := newEnv(t, nil)
		tr := v.fourPlayers(t, spec(4))
		_, err := v.e.TransferChips(ctx, tr.ID, "C", "B", 500)
		require.NoError(t, err)

		tr, err = v.e.EliminateMany(ctx, tr.ID, []string{"C", "D"}, "A")
		require.NoError(t, err)
		assert.Equal(t, 3, rankOf(tr, "D"))
		assert.Equal(t, 4, rankOf(tr, "C"))
		assert.Equal(t, int64(2_500), tr.Participants[tr.Participant("A")].Chips)
		assert.Equal(t, int64(4_000), tr.TotalChips())
	})

	t.Run("ties go to the earlier registrant", func(t *testing.T) {
		v := newEnv(t, nil)
		tr := v.fourPlayers(t, spec(4))
		tr, err := v.e.EliminateMany(ctx, tr.ID, []string{"D", "C"}, "")
		require.NoError(t, err)
		assert.Equal(t, 3, rankOf(tr, "C"))
		assert.Equal(t, 4, rankOf(tr, "D"))
		assert.Equal(t, tournament.StatusRunning, tr.Status)
	})

	t.Run("invalid batches", func(t *testing.T) {
		v := newEnv(t, nil)
		tr := v.fourPlayers(t, spec(4))
		_, err := v.e.EliminateMany(ctx, tr.ID, []string{"A", "B", "C", "D"}, "")
		assert.ErrorIs(t, err, tournament.ErrInvalidElimination)
		_, err = v.e.EliminateMany(ctx, tr.ID, []string{"A", "A"}, "")
		assert.ErrorIs(t, err, tournament.ErrInvalidElimination)
		_, err = v.e.Eliminate(ctx, tr.ID, "A", "A")
		assert.ErrorIs(t, err, tournament.ErrInvalidElimination)
		_, err = v.e.Eliminate(ctx, tr.ID, "Z", "")
		assert.ErrorIs(t, err, tournament.ErrNotRegistered)

		_, err = v.e.Eliminate(ctx, tr.ID, "A", "")
		require.NoError(t, err)
		_, err = v.e.Eliminate(ctx, tr.ID, "A", "")
		assert.ErrorIs(t, err, tournament.ErrNotActive)
		_, err = v.e.Eliminate(ctx, tr.ID, "B", "A")
		assert.ErrorIs(t, err, tournament.ErrNotActive)
	})
}

func TestRegistrationRules(t *testing.T) {
	ctx := context.Background()
	v := newEnv(t, nil)
	v.open(t, "A", "B", "C")
	_, err := v.l.OpenAccount(ctx, "poor")
	require.NoError(t, err)
	_, err = v.l.Debit(ctx, ledger.Request{AccountID: "poor", Kind: ledger.KindFee, Amount: 990})
	require.NoError(t, err)

	end := t0.Add(30 * time.Minute)
	s := spec(2)
	s.RegistrationEnd = &end
	tr, err := v.e.Create(ctx, s)
	require.NoError(t, err)

	_, err = v.e.Register(ctx, tr.ID, "poor")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = v.e.Register(ctx, tr.ID, "A")
	require.NoError(t, err)
	_, err = v.e.Register(ctx, tr.ID, "A")
	assert.ErrorIs(t, err, tournament.ErrAlreadyRegistered)
	assert.Equal(t, int64(950), v.balance(t, "A"))

	v.clk.Advance(31 * time.Minute)
	_, err = v.e.Register(ctx, tr.ID, "B")
	assert.ErrorIs(t, err, tournament.ErrRegistrationClosed)

	v.clk.Set(t0)
	tr, err = v.e.Register(ctx, tr.ID, "B")
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusRunning, tr.Status)

	_, err = v.e.Register(ctx, tr.ID, "C")
	assert.ErrorIs(t, err, tournament.ErrTournamentFull)
}

func TestUnregister(t *testing.T) {
	ctx := context.Background()
	v := newEnv(t, nil)
	v.open(t, "A", "B")
	tr, err := v.e.Create(ctx, spec(4))
	require.NoError(t, err)

	_, err = v.e.Register(ctx, tr.ID, "A")
	require.NoError(t, err)
	_, err = v.e.Register(ctx, tr.ID, "B")
	require.NoError(t, err)

	got, err := v.e.Unregister(ctx, tr.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), v.balance(t, "A"))
	assert.Equal(t, int64(50), got.PrizePool())

	// reinscrição cobra de novo
	_, err = v.e.Register(ctx, tr.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(950), v.balance(t, "A"))

	_, err = v.e.Unregister(ctx, tr.ID, "A")
	require.NoError(t, err)
	got, err = v.e.Unregister(ctx, tr.ID, "B")
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusCancelled, got.Status)
	assert.Equal(t, int64(1_000), v.balance(t, "A"))
	assert.Equal(t, int64(1_000), v.balance(t, "B"))

	_, err = v.e.Unregister(ctx, tr.ID, "B")
	assert.ErrorIs(t, err, tournament.ErrRegistrationClosed)
}

func TestTick(t *testing.T) {
	ctx := context.Background()
	v := newEnv(t, nil)
	v.open(t, "A", "B", "C")

	lonely, err := v.e.Create(ctx, spec(4))
	require.NoError(t, err)
	_, err = v.e.Register(ctx, lonely.ID, "A")
	require.NoError(t, err)

	ready, err := v.e.Create(ctx, spec(4))
	require.NoError(t, err)
	for _, a := range []string{"B", "C"} {
		_, err = v.e.Register(ctx, ready.ID, a)
		require.NoError(t, err)
	}

	n, err := v.e.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	v.clk.Advance(time.Hour)
	n, err = v.e.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := v.e.Get(ctx, lonely.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusCancelled, got.Status)
	assert.Equal(t, int64(1_000), v.balance(t, "A"))

	got, err = v.e.Get(ctx, ready.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusRunning, got.Status)
}

func TestRebuyAddOnAndCancel(t *testing.T) {
	ctx := context.Background()
	v := newEnv(t, nil)
	s := spec(4)
	s.Settings = tournament.Settings{AllowRebuys: true, MaxRebuys: 1, AllowAddOn: true, AddOnCost: 20, AddOnChips: 500}
	tr := v.fourPlayers(t, s)
	assert.Equal(t, int64(1_000), tr.Participants[0].Chips)

	tr, err := v.e.AddRebuy(ctx, tr.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(2_000), tr.Participants[tr.Participant("A")].Chips)
	_, err = v.e.AddRebuy(ctx, tr.ID, "A")
	assert.ErrorIs(t, err, tournament.ErrRebuyLimit)

	tr, err = v.e.AddOn(ctx, tr.ID, "B")
	require.NoError(t, err)
	assert.Equal(t, int64(1_500), tr.Participants[tr.Participant("B")].Chips)
	_, err = v.e.AddOn(ctx, tr.ID, "B")
	assert.ErrorIs(t, err, tournament.ErrAddOnUsed)
	assert.Equal(t, int64(270), tr.PrizePool())

	_, err = v.e.Eliminate(ctx, tr.ID, "C", "")
	require.NoError(t, err)
	_, err = v.e.AddRebuy(ctx, tr.ID, "C")
	assert.ErrorIs(t, err, tournament.ErrNotActive)

	tr, err = v.e.Cancel(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusCancelled, tr.Status)
	for _, a := range []string{"A", "B", "C", "D"} {
		assert.Equal(t, int64(1_000), v.balance(t, a), a)
	}

	// cancelar de novo não estorna em dobro
	_, err = v.e.Cancel(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), v.balance(t, "A"))
}

func TestChargeRolledBackWhenSaveFails(t *testing.T) {
	ctx := context.Background()

	t.Run("register", func(t *testing.T) {
		v := newEnv(t, nil)
		v.open(t, "A")
		tr, err := v.e.Create(ctx, spec(4))
		require.NoError(t, err)

		v.store.fail.Store(1)
		_, err = v.e.Register(ctx, tr.ID, "A")
		require.Error(t, err)
		assert.Equal(t, int64(1_000), v.balance(t, "A"))

		got, err := v.e.Get(ctx, tr.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Participants)
		assert.Zero(t, got.Collected)

		// a nova tentativa cobra de verdade, com outra chave
		got, err = v.e.Register(ctx, tr.ID, "A")
		require.NoError(t, err)
		assert.Len(t, got.Participants, 1)
		assert.Equal(t, int64(950), v.balance(t, "A"))
		assert.Equal(t, int64(50), got.PrizePool())
		require.Len(t, got.Debits, 1)
		assert.Equal(t, "tentry:"+tr.ID+":A:r1", got.Debits[0].Key)

		_, err = v.e.Cancel(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1_000), v.balance(t, "A"))
	})

	t.Run("rebuy and add-on", func(t *testing.T) {
		v := newEnv(t, nil)
		s := spec(4)
		s.Settings = tournament.Settings{AllowRebuys: true, AllowAddOn: true, AddOnCost: 20}
		tr := v.fourPlayers(t, s)
		require.Equal(t, int64(950), v.balance(t, "A"))

		v.store.fail.Store(1)
		_, err := v.e.AddRebuy(ctx, tr.ID, "A")
		require.Error(t, err)
		v.store.fail.Store(1)
		_, err = v.e.AddOn(ctx, tr.ID, "A")
		require.Error(t, err)
		assert.Equal(t, int64(950), v.balance(t, "A"))

		got, err := v.e.Get(ctx, tr.ID)
		require.NoError(t, err)
		p := got.Participants[got.Participant("A")]
		assert.Zero(t, p.Rebuys)
		assert.False(t, p.AddOn)
		assert.Equal(t, int64(200), got.PrizePool())

		got, err = v.e.AddOn(ctx, tr.ID, "A")
		require.NoError(t, err)
		assert.True(t, got.Participants[got.Participant("A")].AddOn)
		assert.Equal(t, int64(930), v.balance(t, "A"))
		assert.Equal(t, int64(220), got.PrizePool())
	})
}

func TestRebuyDisabled(t *testing.T) {
	ctx := context.Background()
	v := newEnv(t, nil)
	tr := v.fourPlayers(t, spec(4))
	_, err := v.e.AddRebuy(ctx, tr.ID, "A")
	assert.ErrorIs(t, err, tournament.ErrRebuyNotAllowed)
	_, err = v.e.AddOn(ctx, tr.ID, "A")
	assert.ErrorIs(t, err, tournament.ErrAddOnNotAllowed)
}

func TestTransferChips(t *testing.T) {
	ctx := context.Background()
	v := newEnv(t, nil)
	tr := v.fourPlayers(t, spec(4))

	_, err := v.e.TransferChips(ctx, tr.ID, "A", "B", 1_001)
	assert.ErrorIs(t, err, tournament.ErrInsufficientChips)
	_, err = v.e.TransferChips(ctx, tr.ID, "A", "A", 10)
	assert.ErrorIs(t, err, tournament.ErrInvalidTransfer)

	tr, err = v.e.TransferChips(ctx, tr.ID, "A", "B", 400)
	require.NoError(t, err)
	assert.Equal(t, int64(4_000), tr.TotalChips())

	board, err := v.e.Leaderboard(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, board, 4)
	assert.Equal(t, "B", board[0].AccountID)
	assert.Equal(t, "C", board[1].AccountID)
	assert.Equal(t, "D", board[2].AccountID)
	assert.Equal(t, "A", board[3].AccountID)
}

func TestCompleteWithActives(t *testing.T) {
	ctx := context.Background()
	v := newEnv(t, nil)
	s := spec(4)
	s.GuaranteedPool = 1_000
	tr := v.fourPlayers(t, s)
	_, err := v.e.TransferChips(ctx, tr.ID, "D", "C", 300)
	require.NoError(t, err)
	_, err = v.e.Eliminate(ctx, tr.ID, "A", "")
	require.NoError(t, err)

	tr, err = v.e.Complete(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rankOf(tr, "C"))
	assert.Equal(t, 2, rankOf(tr, "B"))
	assert.Equal(t, 3, rankOf(tr, "D"))
	assert.Equal(t, 4, rankOf(tr, "A"))

	// garantia de 1000 cobre o pote de 200
	require.Len(t, tr.Standings, 4)
	assert.Equal(t, int64(600), tr.Standings[0].Prize)
	assert.Equal(t, int64(400), tr.Standings[1].Prize)
	assert.Zero(t, tr.Standings[2].Prize)
	assert.Equal(t, int64(1_550), v.balance(t, "C"))
}

type flakyWallet struct {
	*ledger.Ledger
	fail atomic.Int32
}

func (w *flakyWallet) Credit(ctx context.Context, req ledger.Request) (ledger.Entry, error) {
	if req.Kind == ledger.KindTournamentPrize && w.fail.Add(-1) >= 0 {
		return ledger.Entry{}, errors.New("wallet unavailable")
	}
	return w.Ledger.Credit(ctx, req)
}

func TestResumePayouts(t *testing.T) {
	ctx := context.Background()
	var fw *flakyWallet
	v := newEnv(t, func(l *ledger.Ledger) tournament.Wallet {
		fw = &flakyWallet{Ledger: l}
		return fw
	})
	tr := v.fourPlayers(t, spec(4))
	_, err := v.e.EliminateMany(ctx, tr.ID, []string{"C", "D"}, "")
	require.NoError(t, err)

	fw.fail.Store(1)
	tr, err = v.e.Eliminate(ctx, tr.ID, "B", "")
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusCompleted, tr.Status)
	assert.False(t, tr.PayoutsDone)
	assert.Equal(t, int64(950), v.balance(t, "A"))

	n, err := v.e.ResumePayouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1_070), v.balance(t, "A"))
	assert.Equal(t, int64(1_030), v.balance(t, "B"))

	n, err = v.e.ResumePayouts(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	v := newEnv(t, nil)

	s := spec(4)
	s.PrizeStructure = []tournament.PrizeTier{{Rank: 1, Fraction: d("0.6")}, {Rank: 2, Fraction: d("0.3")}}
	_, err := v.e.Create(ctx, s)
	assert.ErrorIs(t, err, tournament.ErrInvalidPrizeStructure)

	s = spec(4)
	s.MinParticipants = 5
	_, err = v.e.Create(ctx, s)
	assert.ErrorIs(t, err, tournament.ErrInvalidTournament)

	s = spec(4)
	s.PrizeStructure = nil
	tr, err := v.e.Create(ctx, s)
	require.NoError(t, err)
	require.Len(t, tr.PrizeStructure, 2)
	assert.True(t, tr.PrizeStructure[0].Fraction.Equal(d("0.625")))
	assert.Equal(t, int64(1_000), tr.Settings.StartingChips)
}
