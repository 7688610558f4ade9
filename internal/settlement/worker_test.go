package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
	"github.com/radieske/casino-platform/pkg/contracts/events"
)

type mockSettler struct{ mock.Mock }

func (m *mockSettler) Settle(ctx context.Context, entryID string, o ledger.Outcome) (ledger.Entry, error) {
	args := m.Called(ctx, entryID, o)
	return args.Get(0).(ledger.Entry), args.Error(1)
}

type memWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func message(t *testing.T, ev events.PaymentSettled) kafka.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(ev.AccountID), Value: b}
}

func newWorker(s Settler, dlq *memWriter) *Worker {
	return &Worker{Log: zap.NewNop(), Wallet: s, DLQ: dlq, Retries: 3}
}

func TestHandleSettles(t *testing.T) {
	ms := &mockSettler{}
	dlq := &memWriter{}
	ms.On("Settle", mock.Anything, "e1", ledger.Outcome{Success: true, ProviderRef: "PAY-1"}).
		Return(ledger.Entry{ID: "e1", AccountID: "alice", Status: ledger.StatusCompleted}, nil).Once()
	ms.On("Settle", mock.Anything, "e2", ledger.Outcome{Success: false, Reason: "card_declined"}).
		Return(ledger.Entry{ID: "e2", AccountID: "alice", Status: ledger.StatusFailed}, nil).Once()

	var statuses []string
	w := newWorker(ms, dlq)
	w.OnSettled = func(s string) { statuses = append(statuses, s) }

	require.NoError(t, w.Handle(context.Background(), message(t, events.PaymentSettled{
		EntryID: "e1", AccountID: "alice", Status: events.PaymentSucceeded, ProviderRef: "PAY-1",
	})))
	require.NoError(t, w.Handle(context.Background(), message(t, events.PaymentSettled{
		EntryID: "e2", AccountID: "alice", Status: events.PaymentFailed, Reason: "card_declined",
	})))

	assert.Equal(t, []string{"completed", "failed"}, statuses)
	assert.Empty(t, dlq.msgs)
	ms.AssertExpectations(t)
}

func TestHandleRetriesThenDeadLetters(t *testing.T) {
	ms := &mockSettler{}
	dlq := &memWriter{}
	boom := errors.New("wallet unavailable")
	ms.On("Settle", mock.Anything, "e1", mock.Anything).Return(ledger.Entry{}, boom).Times(4)

	msg := message(t, events.PaymentSettled{EntryID: "e1", AccountID: "alice", Status: events.PaymentSucceeded})
	err := newWorker(ms, dlq).Handle(context.Background(), msg)
	assert.ErrorIs(t, err, boom)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, msg.Value, dlq.msgs[0].Value)
	assert.Equal(t, "error", dlq.msgs[0].Headers[0].Key)
	ms.AssertExpectations(t)
}

func TestHandleRecoversOnRetry(t *testing.T) {
	ms := &mockSettler{}
	dlq := &memWriter{}
	ms.On("Settle", mock.Anything, "e1", mock.Anything).Return(ledger.Entry{}, errors.New("timeout")).Once()
	ms.On("Settle", mock.Anything, "e1", mock.Anything).Return(ledger.Entry{ID: "e1", Status: ledger.StatusCompleted}, nil).Once()

	msg := message(t, events.PaymentSettled{EntryID: "e1", Status: events.PaymentSucceeded})
	require.NoError(t, newWorker(ms, dlq).Handle(context.Background(), msg))
	assert.Empty(t, dlq.msgs)
	ms.AssertExpectations(t)
}

func TestHandlePermanentErrorsSkipRetries(t *testing.T) {
	ms := &mockSettler{}
	dlq := &memWriter{}
	ms.On("Settle", mock.Anything, "bet-1", mock.Anything).Return(ledger.Entry{}, ledger.ErrNotSettleable).Once()

	msg := message(t, events.PaymentSettled{EntryID: "bet-1", Status: events.PaymentSucceeded})
	assert.ErrorIs(t, newWorker(ms, dlq).Handle(context.Background(), msg), ledger.ErrNotSettleable)
	assert.Len(t, dlq.msgs, 1)
	ms.AssertExpectations(t)
}

func TestHandleBadPayload(t *testing.T) {
	ms := &mockSettler{}
	dlq := &memWriter{}
	var stages []string
	w := newWorker(ms, dlq)
	w.OnError = func(s string) { stages = append(stages, s) }

	assert.Error(t, w.Handle(context.Background(), kafka.Message{Value: []byte("{oops")}))
	assert.Error(t, w.Handle(context.Background(), kafka.Message{Value: []byte(`{"status":"SUCCEEDED"}`)}))
	assert.Len(t, dlq.msgs, 2)
	assert.Equal(t, []string{"decode", "decode"}, stages)
	ms.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything)
}
