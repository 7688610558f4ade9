package dto

// PlaceBetRequest abre ou entra numa sessão
type PlaceBetRequest struct {
	UserID      string `json:"userId" validate:"required"`
	Game        string `json:"game" validate:"required,oneof=slots roulette blackjack poker"`
	AmountCents int64  `json:"amount_cents" validate:"gt=0"`
	Selection   string `json:"selection,omitempty"`
	Seats       int    `json:"seats,omitempty" validate:"omitempty,min=2,max=10"`
}

type JoinRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type MoveRequest struct {
	UserID    string `json:"userId" validate:"required"`
	Seq       int64  `json:"seq" validate:"gt=0"`
	Action    string `json:"action" validate:"required"`
	Selection string `json:"selection,omitempty"`
}

type LeaveRequest struct {
	UserID string `json:"userId" validate:"required"`
}
