package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/solecism/podium/internal/adapters/cache"
	"github.com/solecism/podium/internal/adapters/http/api"
	"github.com/solecism/podium/internal/adapters/repository"
	"github.com/solecism/podium/internal/adapters/ws"
	app "github.com/solecism/podium/internal/app"
	"github.com/solecism/podium/internal/config"
	"github.com/solecism/podium/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	connectTimeout    = 10 * time.Second
)

func main() {
	// Optional .env for local runs; absence is not an error.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Authoritative store: Mongo when configured, in-memory otherwise.
	var store repository.Store
	if cfg.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		client, err := mongo.Connect(connectCtx, mongooptions.Client().ApplyURI(cfg.MongoURI))
		cancel()
		if err != nil {
			os.Stderr.WriteString("failed to connect to mongo: " + err.Error() + "\n")
			return
		}
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}()
		store = repository.NewMongoStore(client.Database(cfg.MongoDatabase))
		log.Info(ctx, "connected to mongo", logger.String("database", cfg.MongoDatabase))
	}

	// Rank cache: Redis when configured, in-memory otherwise.
	var rankCache cache.Cache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		defer func() {
			_ = client.Close()
		}()
		rankCache = cache.NewRedisCache(client)
		log.Info(ctx, "using redis rank cache", logger.String("addr", cfg.RedisAddr))
	}

	// Live channel.
	hub := ws.New()
	go hub.Run(ctx)

	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithCache(rankCache),
		app.WithBroadcaster(hub),
		app.WithQueueSize(cfg.QueueSize),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithCacheTTL(time.Duration(cfg.CacheTTLSeconds)*time.Second),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	router := mux.NewRouter()
	apiServer := api.NewServer(svc, cfg.DefaultLimit, cfg.MaxLeaderboardLimit)
	apiServer.Register(ctx, router)
	router.HandleFunc("/ws", hub.ServeHTTP)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
