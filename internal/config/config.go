// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer sources.
// - External errors are wrapped via this package's sentinel kinds.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MongoURI points at the authoritative score store. When empty the
	// service falls back to the in-process store (useful for local runs).
	MongoURI string `koanf:"mongo_uri"`

	// MongoDatabase names the database holding the scores collection.
	MongoDatabase string `koanf:"mongo_database"`

	// RedisAddr points at the rank cache backend. When empty the service
	// falls back to the in-process ordered cache.
	RedisAddr string `koanf:"redis_addr"`

	// RedisDB selects the Redis logical database.
	RedisDB int `koanf:"redis_db"`

	// DefaultLimit is the leaderboard size when the request omits ?limit.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// CacheTTLSeconds is applied to the cache after a fallback rebuild.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// QueueSize bounds the in-memory write-through queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of write-through workers.
	WorkerCount int `koanf:"worker_count"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":8080",
		MongoURI:            "",
		MongoDatabase:       "podium",
		RedisAddr:           "",
		RedisDB:             0,
		DefaultLimit:        10,
		MaxLeaderboardLimit: 100,
		CacheTTLSeconds:     60,
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
	}
}
