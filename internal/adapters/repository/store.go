// Package repository defines the authoritative score store and its adapters.
//
// The store is the source of truth: it is always sufficient to answer any
// read or write on its own. Implementations include MongoDB (production) and
// an in-memory store for tests and backend-less local runs.
package repository

import (
	"context"

	"github.com/solecism/podium/internal/domain/model"
)

// Store provides durable access to one Score per user.
type Store interface {
	// Upsert inserts or replaces the record for userID and returns the
	// stored record. Fails with ErrUnavailable when the backend cannot be
	// reached; that failure propagates to the submission caller.
	Upsert(ctx context.Context, userID string, value float64) (model.Score, error)

	// CountGreater returns the number of records whose value strictly
	// exceeds value. Used for write-path rank computation.
	CountGreater(ctx context.Context, value float64) (int64, error)

	// TopN returns up to n records sorted by value descending. Tie order
	// among equal values follows natural stored order.
	TopN(ctx context.Context, n int) ([]model.Score, error)

	// All returns every record sorted by value descending. Used only for
	// full cache hydration.
	All(ctx context.Context) ([]model.Score, error)
}
