package tournament

import "errors"

var (
	ErrNotFound              = errors.New("tournament not found")
	ErrRegistrationClosed    = errors.New("registration closed")
	ErrTournamentFull        = errors.New("tournament full")
	ErrAlreadyRegistered     = errors.New("already registered")
	ErrNotRegistered         = errors.New("not registered")
	ErrNotRunning            = errors.New("tournament not running")
	ErrNotActive             = errors.New("participant not active")
	ErrAlreadyFinished       = errors.New("tournament already finished")
	ErrInvalidTournament     = errors.New("invalid tournament")
	ErrInvalidPrizeStructure = errors.New("invalid prize structure")
	ErrInvalidElimination    = errors.New("invalid elimination")
	ErrInsufficientChips     = errors.New("insufficient chips")
	ErrInvalidTransfer       = errors.New("invalid chip transfer")
	ErrRebuyNotAllowed       = errors.New("rebuy not allowed")
	ErrRebuyLimit            = errors.New("rebuy limit reached")
	ErrAddOnNotAllowed       = errors.New("add-on not allowed")
	ErrAddOnUsed             = errors.New("add-on already used")
	ErrVersionConflict       = errors.New("tournament version conflict")
)
