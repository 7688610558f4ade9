package projector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/pkg/contracts/events"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type BalanceCache interface {
	SetBalance(ctx context.Context, u events.BalanceUpdate) error
}

type Repository interface {
	UpsertBalance(ctx context.Context, e events.LedgerEntryChanged) error
	InsertAudit(ctx context.Context, e events.LedgerEntryChanged) error
}

// Processor consome ledger_entries, atualiza o cache e a projeção no Postgres
// e avisa o hub WebSocket do novo saldo
type Processor struct {
	Log     *zap.Logger
	Reader  MessageReader
	Repo    Repository
	Cache   BalanceCache
	Publish func(ctx context.Context, u events.BalanceUpdate) error

	OnConsumed func()
	OnError    func(stage string)
}

func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.failed("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		p.Handle(ctx, m.Value)
	}
}

// Handle aplica um evento. Falha de cache ou de publicação não impede a persistência.
func (p *Processor) Handle(ctx context.Context, payload []byte) {
	if p.OnConsumed != nil {
		p.OnConsumed()
	}
	var ev events.LedgerEntryChanged
	if err := json.Unmarshal(payload, &ev); err != nil || ev.AccountID == "" {
		p.Log.Warn("invalid ledger event", zap.Error(err))
		p.failed("decode")
		return
	}

	upd := events.BalanceUpdate{
		AccountID:    ev.AccountID,
		BalanceCents: ev.BalanceCents,
		EntryID:      ev.EntryID,
		Ts:           time.UnixMilli(ev.TsUnixMs).UTC(),
	}
	if err := p.Cache.SetBalance(ctx, upd); err != nil {
		p.Log.Warn("redis set failed", zap.Error(err))
		p.failed("cache")
	}

	if err := p.Repo.UpsertBalance(ctx, ev); err != nil {
		p.Log.Warn("db upsert failed", zap.String("accountId", ev.AccountID), zap.Error(err))
		p.failed("db_upsert")
		return
	}
	if err := p.Repo.InsertAudit(ctx, ev); err != nil {
		p.Log.Warn("db audit failed", zap.String("entryId", ev.EntryID), zap.Error(err))
		p.failed("db_audit")
		return
	}

	if p.Publish != nil {
		if err := p.Publish(ctx, upd); err != nil {
			p.Log.Warn("balance broadcast failed", zap.Error(err))
			p.failed("publish")
		}
	}
}

func (p *Processor) failed(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
