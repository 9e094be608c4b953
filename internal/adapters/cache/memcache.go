package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/solecism/podium/internal/domain/model"
)

// MemoryCache implements Cache with a mutex-guarded map. It backs tests and
// backend-less local runs. Ordering is score descending with ties broken by
// member ascending, the order this interface documents.
type MemoryCache struct {
	mu       sync.RWMutex
	scores   map[string]float64
	deadline time.Time // zero means no expiry set
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		scores: make(map[string]float64),
	}
}

// RebuildFrom replaces the whole content under one lock acquisition, so a
// racing read observes either the old or the new generation.
func (c *MemoryCache) RebuildFrom(_ context.Context, scores []model.Score) error {
	fresh := make(map[string]float64, len(scores))
	for _, s := range scores {
		fresh[s.UserID] = s.Value
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores = fresh
	c.deadline = time.Time{}
	return nil
}

// Upsert inserts or replaces a single member's score.
func (c *MemoryCache) Upsert(_ context.Context, userID string, score float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	c.scores[userID] = score
	return nil
}

// TopN returns up to n members sorted by score descending, ties by member
// ascending.
func (c *MemoryCache) TopN(_ context.Context, n int) ([]model.Score, error) {
	c.mu.Lock()
	c.expireLocked()
	out := make([]model.Score, 0, len(c.scores))
	for id, v := range c.scores {
		out = append(out, model.Score{UserID: id, Value: v})
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// SetExpiry marks the whole cache to invalidate after ttl unless rebuilt.
func (c *MemoryCache) SetExpiry(_ context.Context, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = time.Now().Add(ttl)
	return nil
}

// Len reports the number of cached members, honoring expiry.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	return len(c.scores)
}

// expireLocked drops the content when the deadline has passed. Caller holds
// the write lock.
func (c *MemoryCache) expireLocked() {
	if !c.deadline.IsZero() && time.Now().After(c.deadline) {
		c.scores = make(map[string]float64)
		c.deadline = time.Time{}
	}
}
