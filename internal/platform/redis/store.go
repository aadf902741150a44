package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// Stats tracks store activity.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Deletes uint64 `json:"deletes"`
	Errors  uint64 `json:"errors"`
}

// Store is a cache.Store backed by Redis.
type Store struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	stats  Stats
}

var _ cache.Store = (*Store)(nil)

// NewClient opens a go-redis client from configuration.
func NewClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// New wraps client. Every key is stored under prefix; ttl is the default
// expiry for Set calls that pass zero.
func New(client *goredis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// Get implements cache.Store.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			atomic.AddUint64(&s.stats.Misses, 1)
			return false, nil
		}
		atomic.AddUint64(&s.stats.Errors, 1)
		return false, fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		atomic.AddUint64(&s.stats.Errors, 1)
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	atomic.AddUint64(&s.stats.Hits, 1)
	return true, nil
}

// Set implements cache.Store.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.ttl
	}
	data, err := json.Marshal(value)
	if err != nil {
		atomic.AddUint64(&s.stats.Errors, 1)
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		atomic.AddUint64(&s.stats.Errors, 1)
		return fmt.Errorf("cache set error: %w", err)
	}

	atomic.AddUint64(&s.stats.Sets, 1)
	return nil
}

// Delete implements cache.Store.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}

	n, err := s.client.Del(ctx, full...).Result()
	if err != nil {
		atomic.AddUint64(&s.stats.Errors, 1)
		return fmt.Errorf("cache delete error: %w", err)
	}
	atomic.AddUint64(&s.stats.Deletes, uint64(n))
	return nil
}

// DeletePattern implements cache.Store by walking SCAN cursors.
func (s *Store) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+pattern, 100).Result()
		if err != nil {
			atomic.AddUint64(&s.stats.Errors, 1)
			return deleted, fmt.Errorf("cache scan error: %w", err)
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				atomic.AddUint64(&s.stats.Errors, 1)
				return deleted, fmt.Errorf("cache delete error: %w", err)
			}
			deleted += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	atomic.AddUint64(&s.stats.Deletes, uint64(deleted))
	return deleted, nil
}

// Snapshot returns the current counters.
func (s *Store) Snapshot() Stats {
	return Stats{
		Hits:    atomic.LoadUint64(&s.stats.Hits),
		Misses:  atomic.LoadUint64(&s.stats.Misses),
		Sets:    atomic.LoadUint64(&s.stats.Sets),
		Deletes: atomic.LoadUint64(&s.stats.Deletes),
		Errors:  atomic.LoadUint64(&s.stats.Errors),
	}
}

// Ping checks if the Redis connection is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (s *Store) Close() error {
	return s.client.Close()
}
