package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/redis"
	"github.com/phrazzld/taskflow-api/internal/redact"
)

// setupCacheStore connects to Redis. When Redis cannot be reached the server
// still starts on a process-local store; cached data and operation status are
// then lost on restart.
func setupCacheStore(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (cache.Store, func() error) {
	store := redis.New(redis.NewClient(cfg), cfg.KeyPrefix, cfg.DefaultTTL)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := store.Ping(pingCtx); err != nil {
		_ = store.Close()
		logger.Warn("Redis unavailable, using in-memory cache",
			"addr", cfg.Addr,
			"error", redact.Error(err))
		return cache.NewMemoryStore(cfg.DefaultTTL), func() error { return nil }
	}

	logger.Info("Redis cache connected", "addr", cfg.Addr, "db", cfg.DB)
	return store, store.Close
}
