// Package service orchestrates the authoritative store, the rank cache, the
// write-through pipeline and the live channel behind the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/solecism/podium/internal/adapters/cache"
	"github.com/solecism/podium/internal/adapters/mq/queue"
	"github.com/solecism/podium/internal/adapters/mq/worker"
	"github.com/solecism/podium/internal/adapters/repository"
	"github.com/solecism/podium/internal/domain/rank"
	"github.com/solecism/podium/internal/domain/types"
	"github.com/solecism/podium/pkg/logger"
	"github.com/solecism/podium/pkg/metrics"
)

// Leaderboard read provenance values.
const (
	SourceCache = "cache"
	SourceStore = "store"
)

// scoreUpdatedEvent is the single live-channel event name.
const scoreUpdatedEvent = "score_updated"

// Default service configuration constants.
const (
	defaultQueueSize = 10_000
	defaultCacheTTL  = 60 * time.Second
)

// Broadcaster fans a score update out to live subscribers, best-effort.
type Broadcaster interface {
	Publish(ctx context.Context, event string, entry types.Entry)
}

// Service implements the API dependencies for the leaderboard system.
//
// The store is always authoritative and always sufficient to answer any read
// or write; the cache only shortcuts reads. Every cache failure mode here
// degrades to slower-but-correct, never to wrong or unavailable.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	rankCache   cache.Cache
	broadcaster Broadcaster
	writeQueue  queue.Queue
	workerPool  *worker.Pool

	// Configuration
	queueSize   int
	workerCount int
	cacheTTL    time.Duration

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the authoritative score store.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithCache sets the rank cache.
func WithCache(c cache.Cache) Option {
	return func(svc *Service) {
		if c != nil {
			svc.rankCache = c
		}
	}
}

// WithBroadcaster sets the live update broadcaster.
func WithBroadcaster(b Broadcaster) Option {
	return func(svc *Service) {
		if b != nil {
			svc.broadcaster = b
		}
	}
}

// WithQueueSize bounds the write-through queue.
func WithQueueSize(size int) Option {
	return func(svc *Service) {
		if size > 0 {
			svc.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of write-through workers.
func WithWorkerCount(count int) Option {
	return func(svc *Service) {
		if count > 0 {
			svc.workerCount = count
		}
	}
}

// WithCacheTTL sets the expiry applied after a fallback rebuild.
func WithCacheTTL(ttl time.Duration) Option {
	return func(svc *Service) {
		if ttl > 0 {
			svc.cacheTTL = ttl
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize: defaultQueueSize,
		cacheTTL:  defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start wires missing components, hydrates the cache from the store and
// launches the write-through workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory score store")
	}
	if s.rankCache == nil {
		s.rankCache = cache.NewMemoryCache()
		s.logger.Info(ctx, "using in-memory rank cache")
	}
	if s.broadcaster == nil {
		s.broadcaster = noopBroadcaster{}
	}

	s.writeQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.writeQueue, s.rankCache)
	s.workerPool.Start(ctx)

	if err := s.hydrate(ctx); err != nil {
		return err
	}

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("queueSize", s.queueSize),
		logger.Duration("cacheTTL", s.cacheTTL),
	)
	return nil
}

// Stop drains and shuts down the write-through pipeline.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if s.writeQueue != nil {
		_ = s.writeQueue.Close()
	}
	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	s.started = false
	s.logger.Info(context.Background(), "leaderboard service stopped")
}

// hydrate rebuilds the cache from the store on startup. An empty store makes
// hydration a no-op: the cache is left exactly as it was. A cache failure is
// absorbed; the read path falls back and rebuilds later.
func (s *Service) hydrate(ctx context.Context) error {
	scores, err := s.store.All(ctx)
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		return nil
	}

	if err := s.rankCache.RebuildFrom(ctx, scores); err != nil {
		s.logger.Warn(ctx, "startup hydration failed; continuing without cache",
			logger.Error(err),
		)
		return nil
	}
	metrics.RecordCacheRebuild()
	s.logger.Info(ctx, "cache hydrated from store", logger.Int("entries", len(scores)))
	return nil
}

// SubmitScore records the submission durably, computes the write-path rank,
// dispatches the cache write-through and notifies subscribers. Only the store
// write can fail the call.
func (s *Service) SubmitScore(ctx context.Context, userID string, value float64) (types.Entry, error) {
	score, err := s.store.Upsert(ctx, userID, value)
	if err != nil {
		metrics.RecordSubmissionError()
		return types.Entry{}, err
	}

	r, err := rank.WritePath(ctx, s.store, score.Value)
	if err != nil {
		// The record is already durable; report the top rank rather than
		// failing the accepted submission.
		s.logger.Warn(ctx, "write-path rank computation failed",
			logger.String("userId", userID),
			logger.Error(err),
		)
		r = 1
	}

	// Fire-and-forget write-through. The response never waits for the
	// cache; a drop here is recovered by the next read fallback.
	if !s.writeQueue.Enqueue(ctx, queue.Update{UserID: score.UserID, Value: score.Value}) {
		s.logger.Warn(ctx, "write-through queue full; update dropped",
			logger.String("userId", userID),
		)
	}

	entry := types.Entry{UserID: score.UserID, Score: score.Value, Rank: r}
	s.broadcaster.Publish(ctx, scoreUpdatedEvent, entry)

	metrics.RecordSubmission()
	return entry, nil
}

// Leaderboard answers a top-n read from the cache when possible, falling
// back to the store otherwise. It returns the provenance of the answer.
func (s *Service) Leaderboard(ctx context.Context, n int) (string, []types.Entry, error) {
	if n < 1 {
		return "", nil, repository.ErrInvalidLimit
	}

	members, err := s.rankCache.TopN(ctx, n)
	if err == nil && len(members) > 0 {
		metrics.RecordLeaderboardRead(SourceCache)
		return SourceCache, rank.Positional(members), nil
	}
	if err != nil {
		s.logger.Warn(ctx, "cache read failed; falling back to store", logger.Error(err))
	}
	metrics.RecordCacheFallback()

	scores, err := s.store.TopN(ctx, n)
	if err != nil {
		return "", nil, err
	}

	if len(scores) > 0 {
		// Best-effort repopulation; failures never affect the response.
		if err := s.rankCache.RebuildFrom(ctx, scores); err != nil {
			s.logger.Warn(ctx, "cache rebuild failed", logger.Error(err))
		} else {
			metrics.RecordCacheRebuild()
			if err := s.rankCache.SetExpiry(ctx, s.cacheTTL); err != nil {
				s.logger.Warn(ctx, "cache expiry failed", logger.Error(err))
			}
		}
	}

	metrics.RecordLeaderboardRead(SourceStore)
	return SourceStore, rank.Positional(scores), nil
}

// QueueLen reports the current write-through queue depth.
func (s *Service) QueueLen(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.writeQueue == nil {
		return 0
	}
	return s.writeQueue.Len(ctx)
}

// Started reports whether Start has completed.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// noopBroadcaster drops every publish. Used when no live channel is wired.
type noopBroadcaster struct{}

func (noopBroadcaster) Publish(context.Context, string, types.Entry) {}
