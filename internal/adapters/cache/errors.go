package cache

import "errors"

// ErrUnavailable marks transport or backend failures of the rank cache.
// Callers must absorb it: the cache is a shortcut, never a dependency of
// correctness.
var ErrUnavailable = errors.New("rank cache unavailable")
