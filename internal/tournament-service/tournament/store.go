package tournament

import (
	"context"

	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// Store persiste o snapshot do torneio com lock otimista (Version)
type Store interface {
	Save(ctx context.Context, t *Tournament) error
	Get(ctx context.Context, id string) (*Tournament, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Tournament, error)
}

// Wallet é o lado do ledger usado pelos torneios
type Wallet interface {
	Debit(ctx context.Context, req ledger.Request) (ledger.Entry, error)
	Credit(ctx context.Context, req ledger.Request) (ledger.Entry, error)
}
