package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SourceFunc loads a value from its origin when the cache cannot serve it.
type SourceFunc func(ctx context.Context) ([]byte, error)

// Cache provides get-or-populate caching with stale-while-revalidate
// semantics. Each logical key occupies three store keys: a short-lived
// content slot, a longer-lived fallback slot, and an expiry marker kept for
// external consumers of the key scheme.
//
// Concurrent misses for the same key are not deduplicated by default; the
// duplicate upstream fetches that can result are an accepted trade-off.
// Deduplication can be switched on, which routes cold-key fetches through a
// singleflight group.
type Cache struct {
	store       Store
	defaultTTL  time.Duration
	fallbackTTL time.Duration
	dedup       bool

	group      singleflight.Group
	background sync.WaitGroup
}

func New(store Store, defaultTTL, fallbackTTL time.Duration, dedup bool) *Cache {
	return &Cache{
		store:       store,
		defaultTTL:  defaultTTL,
		fallbackTTL: fallbackTTL,
		dedup:       dedup,
	}
}

func contentKey(key string) string  { return key + ":content" }
func fallbackKey(key string) string { return key + ":content:fallback" }
func expireKey(key string) string   { return key + ":expire" }

// Fetch returns the cached value for key, loading it from source when
// necessary.
//
//   - Both slots empty: source is invoked synchronously, both slots are
//     populated and the fresh value returned.
//   - Content slot expired but fallback present: the fallback is returned
//     immediately and a background refresh repopulates both slots.
//   - Content slot present: it is returned as-is, no refresh.
func (c *Cache) Fetch(ctx context.Context, key string, source SourceFunc, ttl time.Duration) ([]byte, error) {
	values, err := c.store.MGet(ctx, contentKey(key), fallbackKey(key))
	if err != nil {
		return nil, err
	}
	content, fallback := values[0], values[1]

	if content != "" {
		return []byte(content), nil
	}

	if fallback != "" {
		c.refreshInBackground(ctx, key, source, ttl)
		return []byte(fallback), nil
	}

	if !c.dedup {
		return c.fetchAndStore(ctx, key, source, ttl)
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetchAndStore(ctx, key, source, ttl)
	})
	if err != nil {
		return nil, err
	}
	return value.([]byte), nil
}

// Set stores a value under the logical key with the given TTL, populating
// both slots.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.storeValue(ctx, key, value, ttl)
}

// Get returns the short-lived slot for the logical key, nil when absent.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.store.Get(ctx, contentKey(key))
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	return []byte(value), nil
}

// Close waits for in-flight background refreshes to finish.
func (c *Cache) Close() {
	c.background.Wait()
}

func (c *Cache) refreshInBackground(ctx context.Context, key string, source SourceFunc, ttl time.Duration) {
	// The caller returns before the refresh completes; detach from its
	// cancellation so an answered request cannot abort the refresh.
	detached := context.WithoutCancel(ctx)

	c.background.Add(1)
	go func() {
		defer c.background.Done()
		if _, err := c.fetchAndStore(detached, key, source, ttl); err != nil {
			slog.Warn("Background cache refresh failed", "key", key, "error", err)
		}
	}()
}

func (c *Cache) fetchAndStore(ctx context.Context, key string, source SourceFunc, ttl time.Duration) ([]byte, error) {
	value, err := source(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source for key %s: %w", key, err)
	}

	if len(value) > 0 {
		if err := c.storeValue(ctx, key, value, ttl); err != nil {
			return nil, err
		}
	}

	return value, nil
}

func (c *Cache) storeValue(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if err := c.store.Set(ctx, contentKey(key), string(value), ttl); err != nil {
		return err
	}
	if err := c.store.Set(ctx, fallbackKey(key), string(value), c.fallbackTTL); err != nil {
		return err
	}

	// The expiry marker shares the content slot's lifetime; when it is gone
	// the content is gone too, so readers never need to consult it and it
	// takes no space after expiry.
	expiresAt := strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	return c.store.Set(ctx, expireKey(key), expiresAt, ttl)
}
