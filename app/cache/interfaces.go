package cache

import (
	"context"
	"time"
)

// Store is the minimal key-value surface the cache layer needs. Implemented
// by the Redis-backed store; tests substitute an in-memory fake.
type Store interface {
	// MGet returns one value per key, empty string for missing keys.
	MGet(ctx context.Context, keys ...string) ([]string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}
