package session

import (
	"context"

	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// Store persiste o snapshot da sessão. Save falha com ErrVersionConflict se a
// versão gravada mudou desde a leitura e incrementa Version no sucesso.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Session, error)
	// ListWithVoidBets devolve as sessões, de qualquer status, com apostas a estornar
	ListWithVoidBets(ctx context.Context) ([]*Session, error)
}

// Wallet é o lado do ledger usado pelas sessões (*ledger.Ledger ou o client HTTP)
type Wallet interface {
	Debit(ctx context.Context, req ledger.Request) (ledger.Entry, error)
	Credit(ctx context.Context, req ledger.Request) (ledger.Entry, error)
}

// Notifier propaga eventos de sessão (Redis Pub/Sub no serviço)
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}
