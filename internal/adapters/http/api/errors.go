package api

import "errors"

// Sentinel kinds for API errors.
var (
	// ErrInvalidInput marks a malformed submission or query, rejected
	// before touching any store.
	ErrInvalidInput = errors.New("invalid input")
)
