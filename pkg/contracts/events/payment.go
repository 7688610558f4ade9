package events

import "time"

// Evento publicado pela wallet-service quando um depósito/saque precisa do processador.
type PaymentRequested struct {
	EntryID   string    `json:"entryId"`
	AccountID string    `json:"accountId"`
	Kind      string    `json:"kind"` // "deposit" | "withdrawal"
	Amount    int64     `json:"amount_cents"`
	Method    string    `json:"method,omitempty"`
	Reference string    `json:"reference"`
	Ts        time.Time `json:"ts"`
}

// Evento emitido pelo processador de pagamentos após decidir a operação.
type PaymentSettled struct {
	EntryID     string    `json:"entryId"`
	AccountID   string    `json:"accountId"`
	Status      string    `json:"status"` // "SUCCEEDED" | "FAILED"
	Reason      string    `json:"reason,omitempty"`
	ProviderRef string    `json:"providerRef,omitempty"`
	Ts          time.Time `json:"ts"`
}

const (
	PaymentSucceeded = "SUCCEEDED"
	PaymentFailed    = "FAILED"
)
