package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/solecism/podium/internal/domain/model"
)

// MemoryStore implements Store with a mutex-guarded map. It backs tests and
// backend-less local runs; ordering matches the Mongo adapter (value
// descending, insertion order among ties).
type MemoryStore struct {
	mu     sync.RWMutex
	scores map[string]float64
	order  []string // insertion order, for stable tie order in TopN/All
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scores: make(map[string]float64),
	}
}

// Upsert inserts or replaces the record for userID.
func (s *MemoryStore) Upsert(_ context.Context, userID string, value float64) (model.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scores[userID]; !ok {
		s.order = append(s.order, userID)
	}
	s.scores[userID] = value
	return model.Score{UserID: userID, Value: value}, nil
}

// CountGreater counts records with value strictly greater than value.
func (s *MemoryStore) CountGreater(_ context.Context, value float64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, v := range s.scores {
		if v > value {
			n++
		}
	}
	return n, nil
}

// TopN returns up to n records sorted by value descending.
func (s *MemoryStore) TopN(ctx context.Context, n int) ([]model.Score, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// All returns every record sorted by value descending.
func (s *MemoryStore) All(_ context.Context) ([]model.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Score, 0, len(s.scores))
	for _, id := range s.order {
		out = append(out, model.Score{UserID: id, Value: s.scores[id]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	return out, nil
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores)
}
