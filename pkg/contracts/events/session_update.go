package events

import "time"

// SessionUpdate é propagado via Redis Pub/Sub para o hub WebSocket
type SessionUpdate struct {
	SessionID string    `json:"sessionId"`
	Type      string    `json:"type"` // joined | started | move | resolved | forfeited | cancelled | chat
	Status    string    `json:"status,omitempty"`
	AccountID string    `json:"accountId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Ts        time.Time `json:"ts"`
}

// BalanceUpdate é propagado via Redis Pub/Sub quando o saldo de uma conta muda
type BalanceUpdate struct {
	AccountID    string    `json:"accountId"`
	BalanceCents int64     `json:"balance_cents"`
	EntryID      string    `json:"entryId"`
	Ts           time.Time `json:"ts"`
}
