package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
	"github.com/radieske/casino-platform/pkg/contracts/events"
)

// Settler é a parte da carteira usada pelo worker (client HTTP em produção)
type Settler interface {
	Settle(ctx context.Context, entryID string, o ledger.Outcome) (ledger.Entry, error)
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Worker consome payment_settled e aplica o resultado no ledger.
// Falhas transitórias são repetidas Retries vezes; depois a mensagem vai para a DLQ.
type Worker struct {
	Log     *zap.Logger
	Reader  MessageReader
	Wallet  Settler
	DLQ     MessageWriter // opcional
	Retries int
	Backoff time.Duration

	OnSettled func(status string)
	OnError   func(stage string)
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		m, err := w.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.Log.Warn("kafka read failed", zap.Error(err))
			w.failed("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if err := w.Handle(ctx, m); err != nil {
			w.Log.Error("settlement dead-lettered", zap.ByteString("key", m.Key), zap.Error(err))
		}
	}
}

// Handle processa uma mensagem. Devolve erro apenas quando ela foi para a DLQ.
func (w *Worker) Handle(ctx context.Context, m kafka.Message) error {
	var ev events.PaymentSettled
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.EntryID == "" {
		w.failed("decode")
		if err == nil {
			err = errors.New("missing entryId")
		}
		return w.deadLetter(ctx, m, err)
	}

	outcome := ledger.Outcome{
		Success:     ev.Status == events.PaymentSucceeded,
		ProviderRef: ev.ProviderRef,
		Reason:      ev.Reason,
	}

	var err error
	for attempt := 0; attempt <= w.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.Backoff * time.Duration(attempt)):
			}
		}
		var e ledger.Entry
		e, err = w.Wallet.Settle(ctx, ev.EntryID, outcome)
		if err == nil {
			w.Log.Info("payment settled",
				zap.String("entryId", e.ID),
				zap.String("accountId", e.AccountID),
				zap.String("status", string(e.Status)),
			)
			if w.OnSettled != nil {
				w.OnSettled(string(e.Status))
			}
			return nil
		}
		if permanent(err) {
			break
		}
		w.Log.Warn("settle failed, retrying", zap.String("entryId", ev.EntryID), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	w.failed("settle")
	return w.deadLetter(ctx, m, err)
}

// permanent: repetir não muda o resultado
func permanent(err error) bool {
	return errors.Is(err, ledger.ErrNotFound) ||
		errors.Is(err, ledger.ErrNotSettleable) ||
		errors.Is(err, ledger.ErrInvariantViolation)
}

func (w *Worker) deadLetter(ctx context.Context, m kafka.Message, cause error) error {
	if w.DLQ != nil {
		dlq := kafka.Message{
			Key:     m.Key,
			Value:   m.Value,
			Headers: []kafka.Header{{Key: "error", Value: []byte(cause.Error())}},
		}
		if err := w.DLQ.WriteMessages(ctx, dlq); err != nil {
			w.Log.Error("dlq write failed", zap.Error(err))
		}
	}
	return cause
}

func (w *Worker) failed(stage string) {
	if w.OnError != nil {
		w.OnError(stage)
	}
}
