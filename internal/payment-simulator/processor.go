package paymentsim

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/shared/clock"
	"github.com/radieske/casino-platform/pkg/contracts/events"
)

var decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "payment_sim_decisions_total",
	Help: "Decisões do processador simulado por tipo e status",
}, []string{"kind", "status"})

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Rates é a probabilidade de aprovação por tipo de operação
type Rates struct {
	Deposit    float64
	Withdrawal float64
}

// Processor simula o processador de pagamentos externo: lê payment_requested,
// decide aprovado/recusado e publica payment_settled
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Writer MessageWriter
	Clock  clock.Clock
	Rates  Rates
	Delay  time.Duration  // latência simulada do provedor
	Roll   func() float64 // [0,1); padrão rand.Float64
}

func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if err := p.Handle(ctx, m); err != nil {
			p.Log.Error("payment decision failed", zap.ByteString("key", m.Key), zap.Error(err))
		}
	}
}

// Handle decide um pedido e publica o resultado com a mesma key (conta)
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	var req events.PaymentRequested
	if err := json.Unmarshal(m.Value, &req); err != nil {
		p.Log.Warn("invalid payment request", zap.Error(err))
		return nil
	}
	if p.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	ev := p.Decide(req)
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(req.AccountID), Value: b}); err != nil {
		return err
	}
	decisions.WithLabelValues(req.Kind, ev.Status).Inc()
	p.Log.Info("payment decided",
		zap.String("entryId", req.EntryID),
		zap.String("kind", req.Kind),
		zap.String("status", ev.Status),
	)
	return nil
}

func (p *Processor) Decide(req events.PaymentRequested) events.PaymentSettled {
	roll := rand.Float64
	if p.Roll != nil {
		roll = p.Roll
	}
	rate := p.Rates.Deposit
	reason := "card_declined"
	if req.Kind == "withdrawal" {
		rate = p.Rates.Withdrawal
		reason = "bank_rejected"
	}

	ev := events.PaymentSettled{
		EntryID:   req.EntryID,
		AccountID: req.AccountID,
		Ts:        p.Clock.Now(),
	}
	if roll() < rate {
		ev.Status = events.PaymentSucceeded
		ev.ProviderRef = providerRef(req)
		return ev
	}
	ev.Status = events.PaymentFailed
	ev.Reason = reason
	return ev
}

// providerRef reaproveita a referência do ledger (TXN-<ts>-<rnd>), única por lançamento
func providerRef(req events.PaymentRequested) string {
	if ref := strings.TrimPrefix(req.Reference, "TXN-"); ref != "" {
		return "PAY-" + ref
	}
	return "PAY-" + req.EntryID
}
