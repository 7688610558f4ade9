package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/casino-platform/internal/shared/clock"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
	"github.com/radieske/casino-platform/pkg/contracts/events"
)

// MessageWriter é o subconjunto de *kafka.Writer usado aqui
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// PaymentPublisher implementa ledger.PaymentProcessor publicando em payment_requested.
// A key é o id da conta para manter a ordem por conta dentro da partição.
type PaymentPublisher struct {
	Writer MessageWriter
	Clock  clock.Clock
}

func NewPaymentPublisher(w MessageWriter, clk clock.Clock) *PaymentPublisher {
	return &PaymentPublisher{Writer: w, Clock: clk}
}

func (p *PaymentPublisher) Initiate(ctx context.Context, req ledger.PaymentRequest) error {
	b, err := json.Marshal(events.PaymentRequested{
		EntryID:   req.EntryID,
		AccountID: req.AccountID,
		Kind:      string(req.Kind),
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Ts:        p.Clock.Now(),
	})
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(req.AccountID), Value: b})
}

// LedgerPublisher implementa ledger.Publisher no tópico ledger_entries (trilha de auditoria)
type LedgerPublisher struct {
	Writer MessageWriter
}

func NewLedgerPublisher(w MessageWriter) *LedgerPublisher { return &LedgerPublisher{Writer: w} }

func (p *LedgerPublisher) EntryChanged(ctx context.Context, e ledger.Entry, balance int64) error {
	b, err := json.Marshal(events.LedgerEntryChanged{
		EntryID:      e.ID,
		AccountID:    e.AccountID,
		Kind:         string(e.Kind),
		Status:       string(e.Status),
		AmountCents:  e.Amount,
		BalanceCents: balance,
		Reference:    e.Reference,
		SessionID:    e.SessionID,
		TournamentID: e.TournamentID,
		CompletedAt:  e.CompletedAt,
		TsUnixMs:     time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.AccountID), Value: b})
}
