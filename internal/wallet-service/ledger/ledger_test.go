package ledger_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/shared/clock"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
	"github.com/radieske/casino-platform/internal/wallet-service/repo"
)

var t0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func testPolicy() ledger.Policy {
	return ledger.Policy{
		HighValueThreshold: 1_000_000,
		MinWithdrawal:      5_000,
		WelcomeBonus:       1_000,
		DailyBonus:         50,
	}
}

func newLedger(t *testing.T, opts ...ledger.Option) (*ledger.Ledger, *repo.Memory, *clock.Manual) {
	t.Helper()
	store := repo.NewMemory()
	clk := clock.NewManual(t0)
	l := ledger.New(store, zap.NewNop(), clk, testPolicy(), opts...)
	return l, store, clk
}

func openWith(t *testing.T, l *ledger.Ledger, id string) {
	t.Helper()
	_, err := l.OpenAccount(context.Background(), id)
	require.NoError(t, err)
}

func TestOpenAccount(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)

	acct, err := l.OpenAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), acct.Balance)
	assert.Equal(t, ledger.AccountActive, acct.Status)

	// segunda abertura devolve a mesma conta sem novo bônus
	again, err := l.OpenAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), again.Balance)

	require.NoError(t, l.Reconcile(ctx, "alice"))
}

func TestRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("internal debit completes synchronously", func(t *testing.T) {
		l, _, _ := newLedger(t)
		openWith(t, l, "alice")

		e, err := l.Debit(ctx, ledger.Request{AccountID: "alice", Kind: ledger.KindBet, Amount: 100, SessionID: "s1"})
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusCompleted, e.Status)
		assert.True(t, e.Posted)
		assert.NotNil(t, e.CompletedAt)
		assert.Regexp(t, `^TXN-[0-9A-Z]+-[0-9A-F]{5}$`, e.Reference)

		bal, err := l.Balance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(900), bal)
	})

	t.Run("insufficient funds leaves no entry", func(t *testing.T) {
		l, store, _ := newLedger(t)
		openWith(t, l, "bob")
		_, err := l.Debit(ctx, ledger.Request{AccountID: "bob", Kind: ledger.KindBet, Amount: 950})
		require.NoError(t, err)

		_, err = l.Debit(ctx, ledger.Request{AccountID: "bob", Kind: ledger.KindBet, Amount: 100, IdempotencyKey: "bet-2"})
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

		bal, _ := l.Balance(ctx, "bob")
		assert.Equal(t, int64(50), bal)
		_, err = store.FindEntry(ctx, "bet-2")
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("idempotency key replays the stored entry", func(t *testing.T) {
		l, _, _ := newLedger(t)
		openWith(t, l, "carol")
		req := ledger.Request{AccountID: "carol", Kind: ledger.KindBet, Amount: 10, IdempotencyKey: "bet:s1:carol"}

		first, err := l.Record(ctx, req)
		require.NoError(t, err)
		second, err := l.Record(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		bal, _ := l.Balance(ctx, "carol")
		assert.Equal(t, int64(990), bal)

		req.Amount = 20
		_, err = l.Record(ctx, req)
		assert.ErrorIs(t, err, ledger.ErrIdempotencyConflict)
	})

	t.Run("invalid requests", func(t *testing.T) {
		l, _, _ := newLedger(t)
		openWith(t, l, "dave")

		_, err := l.Record(ctx, ledger.Request{AccountID: "dave", Kind: ledger.KindBet, Amount: 0})
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
		_, err = l.Record(ctx, ledger.Request{AccountID: "dave", Kind: "jackpot", Amount: 1})
		assert.ErrorIs(t, err, ledger.ErrInvalidKind)
		_, err = l.Credit(ctx, ledger.Request{AccountID: "dave", Kind: ledger.KindBet, Amount: 1})
		assert.ErrorIs(t, err, ledger.ErrWrongDirection)
		_, err = l.Record(ctx, ledger.Request{AccountID: "ghost", Kind: ledger.KindBonus, Amount: 1})
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("high value entries are flagged but processed", func(t *testing.T) {
		l, _, _ := newLedger(t)
		openWith(t, l, "erin")

		e, err := l.Credit(ctx, ledger.Request{AccountID: "erin", Kind: ledger.KindWin, Amount: 1_000_000})
		require.NoError(t, err)
		assert.True(t, e.RequiresReview)
		assert.Equal(t, ledger.StatusCompleted, e.Status)
	})
}

func TestAccountStatusGate(t *testing.T) {
	ctx := context.Background()
	l, _, clk := newLedger(t)
	openWith(t, l, "frank")

	require.NoError(t, l.UpdateStatus(ctx, "frank", ledger.AccountSuspended))
	_, err := l.Debit(ctx, ledger.Request{AccountID: "frank", Kind: ledger.KindBet, Amount: 10})
	assert.ErrorIs(t, err, ledger.ErrAccountBlocked)
	_, err = l.Credit(ctx, ledger.Request{AccountID: "frank", Kind: ledger.KindRefund, Amount: 10})
	assert.NoError(t, err, "suspended accounts still receive refunds")

	require.NoError(t, l.UpdateStatus(ctx, "frank", ledger.AccountBanned))
	_, err = l.Credit(ctx, ledger.Request{AccountID: "frank", Kind: ledger.KindRefund, Amount: 10})
	assert.ErrorIs(t, err, ledger.ErrAccountBlocked)

	assert.ErrorIs(t, l.UpdateStatus(ctx, "frank", "vip"), ledger.ErrInvalidStatus)

	t.Run("self exclusion blocks wagers only", func(t *testing.T) {
		openWith(t, l, "gina")
		until := clk.Now().Add(24 * time.Hour)
		require.NoError(t, l.SetLimits(ctx, "gina", ledger.Limits{SelfExclusionUntil: &until}))

		_, err := l.Debit(ctx, ledger.Request{AccountID: "gina", Kind: ledger.KindBet, Amount: 10})
		assert.ErrorIs(t, err, ledger.ErrAccountBlocked)
		_, err = l.Debit(ctx, ledger.Request{AccountID: "gina", Kind: ledger.KindFee, Amount: 10})
		assert.NoError(t, err)

		clk.Advance(25 * time.Hour)
		_, err = l.Debit(ctx, ledger.Request{AccountID: "gina", Kind: ledger.KindBet, Amount: 10})
		assert.NoError(t, err)
	})
}

func TestDailyLimits(t *testing.T) {
	ctx := context.Background()
	l, _, clk := newLedger(t)
	openWith(t, l, "hank")
	require.NoError(t, l.SetLimits(ctx, "hank", ledger.Limits{DailyWagerLimit: 300, DailyDepositLimit: 10_000}))

	for i := 0; i < 3; i++ {
		_, err := l.Debit(ctx, ledger.Request{AccountID: "hank", Kind: ledger.KindBet, Amount: 100})
		require.NoError(t, err)
	}
	_, err := l.Debit(ctx, ledger.Request{AccountID: "hank", Kind: ledger.KindTournamentEntry, Amount: 1})
	assert.ErrorIs(t, err, ledger.ErrLimitExceeded)

	_, err = l.Record(ctx, ledger.Request{AccountID: "hank", Kind: ledger.KindDeposit, Amount: 10_001})
	assert.ErrorIs(t, err, ledger.ErrLimitExceeded)

	// novo dia zera o acumulado
	clk.Advance(24 * time.Hour)
	_, err = l.Debit(ctx, ledger.Request{AccountID: "hank", Kind: ledger.KindBet, Amount: 100})
	assert.NoError(t, err)
}

func TestNoDoubleSpend(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)
	openWith(t, l, "ivan") // saldo 1000

	t.Run("two debits jointly over balance", func(t *testing.T) {
		var ok int32
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := l.Debit(ctx, ledger.Request{AccountID: "ivan", Kind: ledger.KindBet, Amount: 600}); err == nil {
					atomic.AddInt32(&ok, 1)
				} else {
					assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), ok)
		bal, _ := l.Balance(ctx, "ivan")
		assert.Equal(t, int64(400), bal)
	})

	t.Run("many concurrent small debits", func(t *testing.T) {
		var ok int32
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := l.Debit(ctx, ledger.Request{AccountID: "ivan", Kind: ledger.KindBet, Amount: 10}); err == nil {
					atomic.AddInt32(&ok, 1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(40), ok)
		bal, _ := l.Balance(ctx, "ivan")
		assert.Equal(t, int64(0), bal)
		require.NoError(t, l.Reconcile(ctx, "ivan"))
	})
}

func TestBalanceConservation(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)
	openWith(t, l, "judy")

	rnd := rand.New(rand.NewPCG(7, 11))
	kinds := []ledger.Kind{ledger.KindBet, ledger.KindWin, ledger.KindRefund, ledger.KindFee, ledger.KindBonus, ledger.KindTournamentEntry}
	for i := 0; i < 500; i++ {
		k := kinds[rnd.IntN(len(kinds))]
		_, err := l.Record(ctx, ledger.Request{AccountID: "judy", Kind: k, Amount: int64(rnd.IntN(400) + 1)})
		if err != nil {
			require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		}
		bal, _ := l.Balance(ctx, "judy")
		require.GreaterOrEqual(t, bal, int64(0))
	}

	pager, err := l.History(ctx, "judy", ledger.Filter{Statuses: []ledger.Status{ledger.StatusCompleted}, PageSize: 37})
	require.NoError(t, err)
	var sum int64
	for !pager.Done() {
		page, err := pager.Next(ctx)
		require.NoError(t, err)
		for _, e := range page {
			sum += e.Signed()
		}
	}
	bal, _ := l.Balance(ctx, "judy")
	assert.Equal(t, bal, sum)
	assert.NoError(t, l.Reconcile(ctx, "judy"))
}

func TestSettle(t *testing.T) {
	ctx := context.Background()

	t.Run("deposit credits only on success", func(t *testing.T) {
		l, _, _ := newLedger(t)
		openWith(t, l, "kate")

		dep, err := l.Record(ctx, ledger.Request{AccountID: "kate", Kind: ledger.KindDeposit, Amount: 5_000, Method: "pix"})
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusPending, dep.Status)
		bal, _ := l.Balance(ctx, "kate")
		assert.Equal(t, int64(1_000), bal)

		settled, err := l.Settle(ctx, dep.ID, ledger.Outcome{Success: true, ProviderRef: "PAY-1"})
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusCompleted, settled.Status)
		assert.Equal(t, "PAY-1", settled.ProviderRef)

		// callback duplicado
		again, err := l.Settle(ctx, dep.ID, ledger.Outcome{Success: true, ProviderRef: "PAY-1"})
		require.NoError(t, err)
		assert.Equal(t, settled, again)

		// resultado contraditório depois do terminal também não altera nada
		late, err := l.Settle(ctx, dep.ID, ledger.Outcome{Success: false, Reason: "late"})
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusCompleted, late.Status)

		bal, _ = l.Balance(ctx, "kate")
		assert.Equal(t, int64(6_000), bal)
	})

	t.Run("failed withdrawal is refunded atomically", func(t *testing.T) {
		l, store, _ := newLedger(t)
		openWith(t, l, "leo")
		_, err := l.Credit(ctx, ledger.Request{AccountID: "leo", Kind: ledger.KindWin, Amount: 9_000})
		require.NoError(t, err)

		wd, err := l.Record(ctx, ledger.Request{AccountID: "leo", Kind: ledger.KindWithdrawal, Amount: 6_000})
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusPending, wd.Status)
		bal, _ := l.Balance(ctx, "leo")
		assert.Equal(t, int64(4_000), bal, "withdrawal is held at request time")

		failed, err := l.Settle(ctx, wd.ID, ledger.Outcome{Success: false, Reason: "bank_rejected"})
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusFailed, failed.Status)
		assert.Equal(t, "bank_rejected", failed.FailureReason)

		refund, err := store.FindEntry(ctx, "refund:"+wd.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.KindRefund, refund.Kind)
		assert.Equal(t, wd.ID, refund.RelatedEntryID)
		assert.Equal(t, int64(6_000), refund.Amount)

		_, err = l.Settle(ctx, wd.ID, ledger.Outcome{Success: false, Reason: "bank_rejected"})
		require.NoError(t, err)
		bal, _ = l.Balance(ctx, "leo")
		assert.Equal(t, int64(10_000), bal)
		assert.NoError(t, l.Reconcile(ctx, "leo"))
	})

	t.Run("withdrawal rules", func(t *testing.T) {
		l, _, _ := newLedger(t)
		openWith(t, l, "mia")

		_, err := l.Record(ctx, ledger.Request{AccountID: "mia", Kind: ledger.KindWithdrawal, Amount: 100})
		assert.ErrorIs(t, err, ledger.ErrBelowMinimum)
		_, err = l.Record(ctx, ledger.Request{AccountID: "mia", Kind: ledger.KindWithdrawal, Amount: 6_000})
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	})

	t.Run("internal entries are not settleable", func(t *testing.T) {
		l, _, _ := newLedger(t)
		openWith(t, l, "ned")
		bet, err := l.Debit(ctx, ledger.Request{AccountID: "ned", Kind: ledger.KindBet, Amount: 1})
		require.NoError(t, err)

		_, err = l.Settle(ctx, bet.ID, ledger.Outcome{Success: true})
		assert.ErrorIs(t, err, ledger.ErrNotSettleable)
		_, err = l.Settle(ctx, "missing", ledger.Outcome{Success: true})
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})
}

func TestPaymentProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("deposit and withdrawal are handed to the processor", func(t *testing.T) {
		payments := new(mockPayments)
		payments.On("Initiate", mock.Anything, mock.MatchedBy(func(r ledger.PaymentRequest) bool {
			return r.Kind == ledger.KindDeposit && r.Amount == 2_000 && r.Method == "card"
		})).Return(nil).Once()

		l, _, _ := newLedger(t, ledger.WithPayments(payments))
		openWith(t, l, "olga")

		dep, err := l.Record(ctx, ledger.Request{AccountID: "olga", Kind: ledger.KindDeposit, Amount: 2_000, Method: "card"})
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusPending, dep.Status)
		payments.AssertExpectations(t)
	})

	t.Run("initiate failure compensates withdrawal", func(t *testing.T) {
		payments := new(mockPayments)
		payments.On("Initiate", mock.Anything, mock.Anything).Return(errors.New("kafka down"))

		l, _, _ := newLedger(t, ledger.WithPayments(payments))
		openWith(t, l, "paul")
		_, err := l.Credit(ctx, ledger.Request{AccountID: "paul", Kind: ledger.KindBonus, Amount: 9_000})
		require.NoError(t, err)

		wd, err := l.Record(ctx, ledger.Request{AccountID: "paul", Kind: ledger.KindWithdrawal, Amount: 5_000})
		assert.ErrorIs(t, err, ledger.ErrSettlementFailure)
		assert.Equal(t, ledger.StatusFailed, wd.Status)
		assert.Equal(t, "processor_unavailable", wd.FailureReason)

		bal, _ := l.Balance(ctx, "paul")
		assert.Equal(t, int64(10_000), bal)
	})
}

func TestPublisher(t *testing.T) {
	ctx := context.Background()
	pub := new(mockPublisher)
	pub.On("EntryChanged", mock.Anything, mock.MatchedBy(func(e ledger.Entry) bool { return e.Kind == ledger.KindBonus }), int64(1_000)).Return(nil).Once()
	pub.On("EntryChanged", mock.Anything, mock.MatchedBy(func(e ledger.Entry) bool { return e.Kind == ledger.KindBet }), int64(900)).Return(errors.New("broker unavailable")).Once()

	l, _, _ := newLedger(t, ledger.WithPublisher(pub))
	openWith(t, l, "quinn")

	// falha de publicação não desfaz o lançamento
	_, err := l.Debit(ctx, ledger.Request{AccountID: "quinn", Kind: ledger.KindBet, Amount: 100})
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)
	openWith(t, l, "rita")
	_, err := l.Credit(ctx, ledger.Request{AccountID: "rita", Kind: ledger.KindWin, Amount: 10_000})
	require.NoError(t, err)

	wd, err := l.Record(ctx, ledger.Request{AccountID: "rita", Kind: ledger.KindWithdrawal, Amount: 5_000})
	require.NoError(t, err)

	c, err := l.Cancel(ctx, wd.ID, "user request")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCancelled, c.Status)

	again, err := l.Cancel(ctx, wd.ID, "user request")
	require.NoError(t, err)
	assert.Equal(t, c, again)

	_, err = l.Settle(ctx, wd.ID, ledger.Outcome{Success: true})
	require.NoError(t, err, "settling a cancelled entry is a no-op")

	bal, _ := l.Balance(ctx, "rita")
	assert.Equal(t, int64(11_000), bal)

	dep, err := l.Record(ctx, ledger.Request{AccountID: "rita", Kind: ledger.KindDeposit, Amount: 100})
	require.NoError(t, err)
	_, err = l.Settle(ctx, dep.ID, ledger.Outcome{Success: true})
	require.NoError(t, err)
	_, err = l.Cancel(ctx, dep.ID, "too late")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newLedger(t)
	openWith(t, l, "sam")

	// corrompe o saldo por fora do ledger
	require.NoError(t, store.WithAccount(ctx, "sam", func(tx ledger.Tx) error {
		a := tx.Account()
		a.Balance += 500
		return tx.SaveAccount(ctx, a)
	}))

	err := l.Reconcile(ctx, "sam")
	assert.ErrorIs(t, err, ledger.ErrInvariantViolation)

	acct, _ := l.Account(ctx, "sam")
	assert.True(t, acct.Frozen)

	_, err = l.Credit(ctx, ledger.Request{AccountID: "sam", Kind: ledger.KindBonus, Amount: 1})
	assert.ErrorIs(t, err, ledger.ErrInvariantViolation)
	assert.ErrorIs(t, l.Unfreeze(ctx, "sam"), ledger.ErrInvariantViolation)

	// outras contas seguem operando
	openWith(t, l, "tina")
	_, err = l.Debit(ctx, ledger.Request{AccountID: "tina", Kind: ledger.KindBet, Amount: 1})
	assert.NoError(t, err)

	// correção manual e liberação
	require.NoError(t, store.WithAccount(ctx, "sam", func(tx ledger.Tx) error {
		a := tx.Account()
		a.Balance -= 500
		return tx.SaveAccount(ctx, a)
	}))
	require.NoError(t, l.Unfreeze(ctx, "sam"))
	_, err = l.Credit(ctx, ledger.Request{AccountID: "sam", Kind: ledger.KindBonus, Amount: 1})
	assert.NoError(t, err)
}

func TestClaimDailyBonus(t *testing.T) {
	ctx := context.Background()
	l, _, clk := newLedger(t)
	openWith(t, l, "uma")

	e, err := l.ClaimDailyBonus(ctx, "uma")
	require.NoError(t, err)
	assert.Equal(t, int64(50), e.Amount)

	_, err = l.ClaimDailyBonus(ctx, "uma")
	assert.ErrorIs(t, err, ledger.ErrBonusAlreadyClaimed)

	clk.Advance(24 * time.Hour)
	_, err = l.ClaimDailyBonus(ctx, "uma")
	assert.NoError(t, err)

	bal, _ := l.Balance(ctx, "uma")
	assert.Equal(t, int64(1_100), bal)
}

func TestCanAfford(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)
	openWith(t, l, "vic")

	ok, err := l.CanAfford(ctx, "vic", 1_000)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = l.CanAfford(ctx, "vic", 1_001)
	assert.False(t, ok)
}
