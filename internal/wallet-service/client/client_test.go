package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/shared/clock"
	httpapi "github.com/radieske/casino-platform/internal/wallet-service/http"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
	"github.com/radieske/casino-platform/internal/wallet-service/repo"
)

func TestClientAgainstWalletAPI(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(repo.NewMemory(), zap.NewNop(), clock.NewManual(time.Now()), ledger.Policy{WelcomeBonus: 500})
	_, err := l.OpenAccount(ctx, "p1")
	require.NoError(t, err)

	srv := httptest.NewServer(httpapi.NewServer(zap.NewNop(), l).Router())
	defer srv.Close()
	c := New(srv.URL)

	e, err := c.Debit(ctx, ledger.Request{AccountID: "p1", Kind: ledger.KindBet, Amount: 200, IdempotencyKey: "bet:s9:p1", SessionID: "s9"})
	require.NoError(t, err)
	assert.Equal(t, "bet:s9:p1", e.ID)
	assert.Equal(t, ledger.StatusCompleted, e.Status)
	assert.Equal(t, "s9", e.SessionID)

	_, err = c.Debit(ctx, ledger.Request{AccountID: "p1", Kind: ledger.KindBet, Amount: 400})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = c.Credit(ctx, ledger.Request{AccountID: "p1", Kind: ledger.KindWin, Amount: 1000, IdempotencyKey: "win:s9:p1"})
	require.NoError(t, err)

	bal, err := c.Balance(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1300), bal)

	_, err = c.Settle(ctx, "bet:s9:p1", ledger.Outcome{Success: true})
	assert.ErrorIs(t, err, ledger.ErrNotSettleable)
}
