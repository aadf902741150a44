package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"golang.org/x/sync/singleflight"
)

// Loader implements cache-aside reads. Concurrent misses on the same key
// share a single load.
type Loader struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewLoader creates a Loader caching loaded values for ttl.
func NewLoader(store Store, ttl time.Duration, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{store: store, ttl: ttl, logger: logger.With("component", "cache_loader")}
}

// GetOrLoad returns the cached value under key, or calls load, caches its
// result and returns it. Cache errors degrade to a direct load.
func GetOrLoad[T any](ctx context.Context, l *Loader, key string, load func(context.Context) (T, error)) (T, error) {
	log := logger.FromContextOrDefault(ctx, l.logger)

	var cached T
	hit, err := l.store.Get(ctx, key, &cached)
	if err != nil {
		log.Warn("cache read failed, loading from source", "key", key, "error", err)
	} else if hit {
		return cached, nil
	}

	v, err, shared := l.group.Do(key, func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return val, err
		}
		if err := l.store.Set(ctx, key, val, l.ttl); err != nil {
			log.Warn("cache write failed", "key", key, "error", err)
		}
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if shared {
		log.Debug("cache load shared", "key", key)
	}
	return v.(T), nil
}
