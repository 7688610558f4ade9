package events

import "time"

// Publicado no tópico "ledger_entries" sempre que uma entrada muda de estado.
type LedgerEntryChanged struct {
	EntryID      string     `json:"entry_id"`
	AccountID    string     `json:"account_id"`
	Kind         string     `json:"kind"`
	Status       string     `json:"status"`
	AmountCents  int64      `json:"amount_cents"`
	BalanceCents int64      `json:"balance_cents"` // saldo após a operação
	Reference    string     `json:"reference"`
	SessionID    string     `json:"session_id,omitempty"`
	TournamentID string     `json:"tournament_id,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	TsUnixMs     int64      `json:"ts_unix_ms"`
}
