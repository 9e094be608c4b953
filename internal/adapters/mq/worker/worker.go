// Package worker drains the write-through queue into the rank cache.
//
// A cache failure here is logged and discarded; the submission that produced
// the update has already been answered and the cache can always be rebuilt
// from the store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/solecism/podium/internal/adapters/cache"
	"github.com/solecism/podium/internal/adapters/mq/queue"
	"github.com/solecism/podium/pkg/logger"
	"github.com/solecism/podium/pkg/metrics"
)

// Worker shutdown configuration constants.
const (
	workerShutdownTimeout = 5 * time.Second
)

// Update aliases what workers read off the queue.
type Update = queue.Update

// Queue defines how workers receive updates.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Update
}

// Worker applies queued updates to the cache until stopped.
type Worker struct {
	queue Queue
	cache cache.Cache
	name  string

	done chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker's name for logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, c cache.Cache, opts ...Option) *Worker {
	w := &Worker{
		queue: q,
		cache: c,
		name:  "worker",
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logger.Get().Named(w.name)
	return w
}

// Run processes updates until ctx is canceled or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	updates := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			w.apply(ctx, u)
		}
	}
}

// apply performs one cache upsert. Failures are absorbed here, never
// propagated: the cache is a disposable mirror.
func (w *Worker) apply(ctx context.Context, u Update) {
	if err := w.cache.Upsert(ctx, u.UserID, u.Value); err != nil {
		metrics.RecordWriteThroughError()
		w.logger.Warn(ctx, "cache write-through failed; discarding",
			logger.String("userId", u.UserID),
			logger.Float64("score", u.Value),
			logger.Error(err),
		)
		return
	}
	metrics.RecordWriteThroughApplied()
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*Worker

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A non-positive count
// defaults to the number of CPUs.
func NewPool(workerCount int, q Queue, c cache.Cache) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewWorker(q, c, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop waits for all workers to finish, bounded per worker.
func (p *Pool) Stop() {
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
			p.logger.Warn(context.Background(), "worker shutdown timed out",
				logger.String("worker", fmt.Sprintf("worker-%d", i)),
			)
		}
	}
	metrics.UpdateWorkerCount(0)
}
