package domain

import "errors"

// Error kinds surfaced by the core. Services wrap these with context via
// fmt.Errorf("%w: ...") and callers classify with errors.Is; the transport
// layer maps each kind to a status code. Store I/O failures are never wrapped
// into one of these.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)
