package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type PrizeTier struct {
	Rank     int             `json:"rank" validate:"gt=0"`
	Fraction decimal.Decimal `json:"fraction"`
}

// CreateTournamentRequest: prizeStructure vazio usa a tabela padrão
type CreateTournamentRequest struct {
	Name            string      `json:"name" validate:"required"`
	Game            string      `json:"game" validate:"required,oneof=slots roulette blackjack poker"`
	EntryFeeCents   int64       `json:"entry_fee_cents" validate:"gte=0"`
	GuaranteedCents int64       `json:"guaranteed_pool_cents" validate:"gte=0"`
	MinParticipants int         `json:"minParticipants" validate:"gte=2"`
	MaxParticipants int         `json:"maxParticipants" validate:"gtefield=MinParticipants"`
	StartTime       time.Time   `json:"startTime" validate:"required"`
	RegistrationEnd *time.Time  `json:"registrationEnd,omitempty"`
	PrizeStructure  []PrizeTier `json:"prizeStructure,omitempty" validate:"dive"`

	StartingChips int64 `json:"startingChips,omitempty" validate:"gte=0"`
	AllowRebuys   bool  `json:"allowRebuys,omitempty"`
	MaxRebuys     int   `json:"maxRebuys,omitempty" validate:"gte=0"`
	RebuyCents    int64 `json:"rebuy_cents,omitempty" validate:"gte=0"`
	RebuyChips    int64 `json:"rebuyChips,omitempty" validate:"gte=0"`
	AllowAddOn    bool  `json:"allowAddOn,omitempty"`
	AddOnCents    int64 `json:"addon_cents,omitempty" validate:"gte=0"`
	AddOnChips    int64 `json:"addOnChips,omitempty" validate:"gte=0"`
}

// AccountRequest serve para inscrição, desistência, rebuy e add-on
type AccountRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type EliminateRequest struct {
	Accounts []string `json:"accounts" validate:"required,min=1,dive,required"`
	By       string   `json:"by,omitempty"`
}

type TransferRequest struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required,nefield=From"`
	Amount int64  `json:"chips" validate:"gt=0"`
}
