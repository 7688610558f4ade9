package dto

import (
	"time"

	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

type WalletResponse struct {
	UserID       string `json:"userId"`
	BalanceCents int64  `json:"balance_cents"`
	Status       string `json:"status"`
	Frozen       bool   `json:"frozen"`
}

type EntryResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Seq            int64      `json:"seq"`
	Kind           string     `json:"kind"`
	AmountCents    int64      `json:"amount_cents"`
	Status         string     `json:"status"`
	Reference      string     `json:"reference"`
	SessionID      string     `json:"session_id,omitempty"`
	TournamentID   string     `json:"tournament_id,omitempty"`
	RelatedEntryID string     `json:"related_entry_id,omitempty"`
	Method         string     `json:"method,omitempty"`
	Description    string     `json:"description,omitempty"`
	ProviderRef    string     `json:"provider_ref,omitempty"`
	FailureReason  string     `json:"failure_reason,omitempty"`
	RequiresReview bool       `json:"requires_review"`
	Posted         bool       `json:"posted"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

type HistoryResponse struct {
	UserID     string          `json:"userId"`
	Entries    []EntryResponse `json:"entries"`
	NextCursor int64           `json:"next_cursor"`
	Done       bool            `json:"done"`
}

func FromAccount(a ledger.Account) WalletResponse {
	return WalletResponse{UserID: a.ID, BalanceCents: a.Balance, Status: string(a.Status), Frozen: a.Frozen}
}

func FromEntry(e ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:             e.ID,
		UserID:         e.AccountID,
		Seq:            e.Seq,
		Kind:           string(e.Kind),
		AmountCents:    e.Amount,
		Status:         string(e.Status),
		Reference:      e.Reference,
		SessionID:      e.SessionID,
		TournamentID:   e.TournamentID,
		RelatedEntryID: e.RelatedEntryID,
		Method:         e.Method,
		Description:    e.Description,
		ProviderRef:    e.ProviderRef,
		FailureReason:  e.FailureReason,
		RequiresReview: e.RequiresReview,
		Posted:         e.Posted,
		CreatedAt:      e.CreatedAt,
		CompletedAt:    e.CompletedAt,
	}
}

// ToEntry faz o caminho inverso, usado pelo client HTTP
func (r EntryResponse) ToEntry() ledger.Entry {
	return ledger.Entry{
		ID:             r.ID,
		AccountID:      r.UserID,
		Seq:            r.Seq,
		Kind:           ledger.Kind(r.Kind),
		Amount:         r.AmountCents,
		Status:         ledger.Status(r.Status),
		Reference:      r.Reference,
		SessionID:      r.SessionID,
		TournamentID:   r.TournamentID,
		RelatedEntryID: r.RelatedEntryID,
		Method:         r.Method,
		Description:    r.Description,
		ProviderRef:    r.ProviderRef,
		FailureReason:  r.FailureReason,
		RequiresReview: r.RequiresReview,
		Posted:         r.Posted,
		CreatedAt:      r.CreatedAt,
		CompletedAt:    r.CompletedAt,
	}
}
