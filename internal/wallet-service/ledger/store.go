package ledger

import (
	"context"
	"time"
)

// Store é o repositório transacional de contas e lançamentos.
// WithAccount serializa o acesso por conta (lock pessimista) e aplica tudo ou nada.
type Store interface {
	CreateAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, id string) (Account, error)
	FindEntry(ctx context.Context, id string) (Entry, error)
	ListEntries(ctx context.Context, accountID string, q Query) ([]Entry, error)
	WithAccount(ctx context.Context, accountID string, fn func(tx Tx) error) error
}

// Tx é a visão de uma conta bloqueada dentro de uma transação
type Tx interface {
	Account() Account
	SaveAccount(ctx context.Context, a Account) error
	Entry(ctx context.Context, id string) (Entry, bool, error)
	InsertEntry(ctx context.Context, e Entry) error
	UpdateEntry(ctx context.Context, e Entry) error
	// SumAmounts soma lançamentos dos tipos informados desde since, ignorando falhos e cancelados
	SumAmounts(ctx context.Context, kinds []Kind, since time.Time) (int64, error)
	// PostedBalance reconstrói o saldo a partir dos lançamentos efetivados
	PostedBalance(ctx context.Context) (int64, error)
}

// PaymentProcessor é o colaborador externo de depósitos e saques.
// Initiate é assíncrono: o resultado volta por Ledger.Settle.
type PaymentProcessor interface {
	Initiate(ctx context.Context, req PaymentRequest) error
}

type PaymentRequest struct {
	EntryID   string
	AccountID string
	Kind      Kind
	Amount    int64
	Method    string
	Reference string
}

// Publisher recebe cada lançamento criado ou alterado (trilha de auditoria)
type Publisher interface {
	EntryChanged(ctx context.Context, e Entry, balance int64) error
}
