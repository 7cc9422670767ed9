package core

import "errors"

// Guard failure taxonomy. Validation failures are caught at the gateway
// boundary and turned into caller-only error events; they never broadcast
// and never mutate room state.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)
