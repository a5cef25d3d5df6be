package domain

import "errors"

// Stable error kinds surfaced to API consumers. Services wrap these with
// fmt.Errorf("...: %w", Err...) so callers can branch with errors.Is.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrMissingPrecondition = errors.New("missing precondition")
	ErrConflict            = errors.New("conflict")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInternal            = errors.New("internal error")
)
