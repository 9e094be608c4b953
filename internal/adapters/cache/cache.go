// Package cache defines the ordered rank cache and its adapters.
//
// The store is the source of truth; the cache is a disposable, rebuildable
// read-optimized mirror. It may be dropped at any time without data loss, so
// no caller may treat a cache failure as fatal: write-through failures are
// logged and discarded, read failures trigger the store fallback.
package cache

import (
	"context"
	"time"

	"github.com/solecism/podium/internal/domain/model"
)

// Cache is an ordered member -> score structure optimized for top-N reads.
// Every method reports backend failures by wrapping ErrUnavailable.
type Cache interface {
	// RebuildFrom replaces the whole leaderboard content with scores.
	// The replacement is atomic relative to reads: a racing read observes
	// either the old or the new generation, never a mix.
	RebuildFrom(ctx context.Context, scores []model.Score) error

	// Upsert inserts a new member or replaces an existing member's score.
	// Best-effort; used by the asynchronous write-through.
	Upsert(ctx context.Context, userID string, score float64) error

	// TopN returns up to n members sorted by score descending. Ties between
	// equal scores are broken by member identifier ascending; an adapter
	// may surface its backend's own tie order instead (see RedisCache).
	TopN(ctx context.Context, n int) ([]model.Score, error)

	// SetExpiry marks the whole leaderboard to auto-invalidate after ttl
	// unless refreshed. Applied after fallback rebuilds only.
	SetExpiry(ctx context.Context, ttl time.Duration) error
}
