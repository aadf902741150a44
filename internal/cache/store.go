package cache

import (
	"context"
	"time"
)

// Store is a TTL key-value store holding JSON-encoded values.
type Store interface {
	// Get decodes the value under key into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set encodes value under key. A zero ttl uses the store's default.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes the given keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes every key matching a glob pattern and returns
	// how many were removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)
}
