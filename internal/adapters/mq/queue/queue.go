// Package queue defines the bounded queue feeding cache write-through workers.
//
// Enqueue is non-blocking by contract: the submission path dispatches an
// update and answers without waiting. A full queue drops the update, which is
// acceptable because the cache is a rebuildable mirror.
package queue

import (
	"context"
	"sync"

	"github.com/solecism/podium/internal/domain/model"
	"github.com/solecism/podium/pkg/metrics"
)

// defaultCapacity bounds the queue when no option overrides it.
const defaultCapacity = 10_000

// Update is the payload flowing through the queue: one cache upsert.
type Update = model.Score

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an update. Returns false when the queue is full or
	// closed; the update is discarded in that case.
	Enqueue(ctx context.Context, u Update) bool

	// Dequeue returns a channel receiving updates as they become
	// available. The channel closes when the queue closes.
	Dequeue(ctx context.Context) <-chan Update

	// Len returns the current number of queued updates.
	Len(ctx context.Context) int

	// Close shuts down the queue; no further enqueues are accepted.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	updates  chan Update
	capacity int

	mu     sync.RWMutex
	closed bool
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum queue depth.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// NewInMemoryQueue creates a bounded in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.updates = make(chan Update, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds an update without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, u Update) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordWriteThroughDropped()
		return false
	}

	select {
	case q.updates <- u:
		q.observe()
		return true
	case <-ctx.Done():
		metrics.RecordWriteThroughDropped()
		return false
	default:
		// Queue full; the cache catches up on the next read fallback.
		metrics.RecordWriteThroughDropped()
		return false
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Update {
	out := make(chan Update)
	go func() {
		defer close(out)
		for u := range q.updates {
			select {
			case out <- u:
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued updates.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.updates)
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.updates)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) observe() {
	size := len(q.updates)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
