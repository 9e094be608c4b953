package repository

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrUnavailable marks failures reaching the durable backend. It is
	// never recovered locally; the affected request fails.
	ErrUnavailable = errors.New("score store unavailable")

	// ErrInvalidLimit marks a non-positive top-N request.
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
