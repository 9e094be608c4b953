package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/solecism/podium/internal/domain/model"
	"github.com/solecism/podium/pkg/metrics"
)

// defaultLeaderboardKey is the single sorted-set key holding the leaderboard.
const defaultLeaderboardKey = "leaderboard"

// RedisCache implements Cache over a Redis sorted set.
//
// Tie order note: ZREVRANGE returns members sharing a score in descending
// lexical order, the reverse of the ascending order this interface documents.
// TopN does not reorder; the backend's order is surfaced as-is, matching the
// behavior the presentation layer was originally built against.
type RedisCache struct {
	client *redis.Client
	key    string
}

// RedisOption applies a configuration option to the RedisCache.
type RedisOption func(*RedisCache)

// WithKey overrides the sorted-set key.
func WithKey(key string) RedisOption {
	return func(c *RedisCache) {
		if key != "" {
			c.key = key
		}
	}
}

// NewRedisCache creates a cache over an existing Redis client.
func NewRedisCache(client *redis.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client: client,
		key:    defaultLeaderboardKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RebuildFrom clears and repopulates the leaderboard key.
//
// DEL and the bulk ZADD travel in one MULTI/EXEC pipeline, so no other
// command interleaves between delete and insert; a racing read sees the old
// generation until EXEC and the new one after.
func (c *RedisCache) RebuildFrom(ctx context.Context, scores []model.Score) error {
	defer observeCache(time.Now())

	members := make([]redis.Z, len(scores))
	for i, s := range scores {
		members[i] = redis.Z{Score: s.Value, Member: s.UserID}
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.key)
	if len(members) > 0 {
		pipe.ZAdd(ctx, c.key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: rebuild: %v", ErrUnavailable, err)
	}
	return nil
}

// Upsert inserts or replaces a single member's score.
func (c *RedisCache) Upsert(ctx context.Context, userID string, score float64) error {
	defer observeCache(time.Now())

	if err := c.client.ZAdd(ctx, c.key, redis.Z{Score: score, Member: userID}).Err(); err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrUnavailable, userID, err)
	}
	return nil
}

// TopN returns up to n members sorted by score descending.
func (c *RedisCache) TopN(ctx context.Context, n int) ([]model.Score, error) {
	defer observeCache(time.Now())

	zs, err := c.client.ZRevRangeWithScores(ctx, c.key, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: top %d: %v", ErrUnavailable, n, err)
	}
	out := make([]model.Score, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, model.Score{UserID: member, Value: z.Score})
	}
	return out, nil
}

// SetExpiry marks the leaderboard key to expire after ttl.
func (c *RedisCache) SetExpiry(ctx context.Context, ttl time.Duration) error {
	defer observeCache(time.Now())

	if err := c.client.Expire(ctx, c.key, ttl).Err(); err != nil {
		return fmt.Errorf("%w: expire: %v", ErrUnavailable, err)
	}
	return nil
}

func observeCache(start time.Time) {
	metrics.RecordCacheLatency(float64(time.Since(start).Milliseconds()))
}
