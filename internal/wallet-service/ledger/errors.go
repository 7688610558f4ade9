package ledger

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAccountBlocked      = errors.New("account blocked")
	ErrLimitExceeded       = errors.New("daily limit exceeded")
	ErrBelowMinimum        = errors.New("amount below minimum")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidKind         = errors.New("invalid entry kind")
	ErrInvalidStatus       = errors.New("invalid account status")
	ErrWrongDirection      = errors.New("kind does not match operation direction")
	ErrNotSettleable       = errors.New("entry kind is not settleable")
	ErrInvalidTransition   = errors.New("invalid entry status transition")
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different payload")
	ErrDuplicateEntry      = errors.New("duplicate entry id")
	ErrBonusAlreadyClaimed = errors.New("daily bonus already claimed")

	// ErrSettlementFailure indica que o processador recusou ou não recebeu a operação.
	ErrSettlementFailure = errors.New("settlement failure")

	// ErrInvariantViolation congela a conta até intervenção manual.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)

// codes mapeia os erros de negócio para códigos estáveis usados na API HTTP
var codes = map[error]string{
	ErrNotFound:            "not_found",
	ErrAccountExists:       "account_exists",
	ErrInsufficientFunds:   "insufficient_funds",
	ErrAccountBlocked:      "account_blocked",
	ErrLimitExceeded:       "limit_exceeded",
	ErrBelowMinimum:        "below_minimum",
	ErrInvalidAmount:       "invalid_amount",
	ErrInvalidKind:         "invalid_kind",
	ErrInvalidStatus:       "invalid_status",
	ErrWrongDirection:      "wrong_direction",
	ErrNotSettleable:       "not_settleable",
	ErrInvalidTransition:   "invalid_transition",
	ErrIdempotencyConflict: "idempotency_conflict",
	ErrBonusAlreadyClaimed: "bonus_already_claimed",
	ErrSettlementFailure:   "settlement_failure",
	ErrInvariantViolation:  "invariant_violation",
}

// Code devolve o código do primeiro erro de negócio na cadeia de err ("" se nenhum)
func Code(err error) string {
	for sentinel, code := range codes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}

// FromCode é o inverso de Code; códigos desconhecidos devolvem nil
func FromCode(code string) error {
	for sentinel, c := range codes {
		if c == code {
			return sentinel
		}
	}
	return nil
}
