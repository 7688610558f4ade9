package dto

import "time"

type OpenAccountRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// PaymentRequest cobre depósito e saque
type PaymentRequest struct {
	UserID         string `json:"userId" validate:"required"`
	AmountCents    int64  `json:"amount_cents" validate:"gt=0"`
	Method         string `json:"method,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// EntryRequest é usado pelos serviços internos (game, tournament) para débitos e créditos
type EntryRequest struct {
	UserID         string `json:"userId" validate:"required"`
	Kind           string `json:"kind" validate:"required"`
	AmountCents    int64  `json:"amount_cents" validate:"gt=0"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	TournamentID   string `json:"tournament_id,omitempty"`
	RelatedEntryID string `json:"related_entry_id,omitempty"`
	Description    string `json:"description,omitempty"`
}

type SettleRequest struct {
	Success     bool   `json:"success"`
	ProviderRef string `json:"provider_ref,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type StatusRequest struct {
	UserID string `json:"userId" validate:"required"`
	Status string `json:"status" validate:"required,oneof=active suspended banned"`
}

type LimitsRequest struct {
	UserID                 string     `json:"userId" validate:"required"`
	DailyDepositLimitCents int64      `json:"daily_deposit_limit_cents" validate:"gte=0"`
	DailyWagerLimitCents   int64      `json:"daily_wager_limit_cents" validate:"gte=0"`
	SelfExclusionUntil     *time.Time `json:"self_exclusion_until,omitempty"`
}

// UserRequest serve às operações que só precisam da conta (bônus diário, reconciliação)
type UserRequest struct {
	UserID string `json:"userId" validate:"required"`
}
