package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrNotEligible  = errors.New("not eligible")
	ErrCapReached   = errors.New("cap reached")
	ErrTooSoon      = errors.New("too soon")
	ErrUnsupported  = errors.New("unsupported operation")
	ErrProvider     = errors.New("provider failure")
)
