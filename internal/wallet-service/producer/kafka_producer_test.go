package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/casino-platform/internal/shared/clock"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
	"github.com/radieske/casino-platform/pkg/contracts/events"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func TestPaymentPublisher_Initiate(t *testing.T) {
	w := &captureWriter{}
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := NewPaymentPublisher(w, clock.NewManual(now))

	err := p.Initiate(context.Background(), ledger.PaymentRequest{
		EntryID: "e1", AccountID: "acc-1", Kind: ledger.KindDeposit, Amount: 2500, Method: "pix", Reference: "TXN-1-ABCDE",
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "acc-1", string(w.msgs[0].Key))

	var ev events.PaymentRequested
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, "deposit", ev.Kind)
	assert.Equal(t, int64(2500), ev.Amount)
	assert.True(t, ev.Ts.Equal(now))

	w.err = errors.New("broker down")
	assert.Error(t, p.Initiate(context.Background(), ledger.PaymentRequest{EntryID: "e2", AccountID: "acc-1"}))
}

func TestLedgerPublisher_EntryChanged(t *testing.T) {
	w := &captureWriter{}
	p := NewLedgerPublisher(w)

	err := p.EntryChanged(context.Background(), ledger.Entry{
		ID: "win:s1:acc-2", AccountID: "acc-2", Kind: ledger.KindWin, Status: ledger.StatusCompleted, Amount: 90, SessionID: "s1",
	}, 1090)
	require.NoError(t, err)

	var ev events.LedgerEntryChanged
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, "win:s1:acc-2", ev.EntryID)
	assert.Equal(t, int64(1090), ev.BalanceCents)
	assert.Equal(t, "s1", ev.SessionID)
	assert.NotZero(t, ev.TsUnixMs)
}
