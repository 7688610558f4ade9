package session

import "errors"

var (
	ErrNotFound           = errors.New("session not found")
	ErrSessionFull        = errors.New("session full")
	ErrSessionNotJoinable = errors.New("session not joinable")
	ErrAlreadyJoined      = errors.New("already joined")
	ErrSessionClosed      = errors.New("session closed")
	ErrSessionNotActive   = errors.New("session not active")
	ErrNotSeated          = errors.New("player not seated")
	ErrPlayerOut          = errors.New("player already folded or forfeited")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidMove        = errors.New("invalid move")
	ErrInvalidBet         = errors.New("invalid bet")
	ErrVersionConflict    = errors.New("session version conflict")

	// ErrStaleMove fica interno: o chamador recebe MoveIgnored
	ErrStaleMove = errors.New("stale move")
)
