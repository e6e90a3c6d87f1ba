package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/checkernet/probed/internal/core"
)

// cacheKey holds the JSON-encoded active provider set.
const cacheKey = "probed:active_providers"

// CacheOptions configures a Cache.
type CacheOptions struct {
	// TTL bounds how stale the cached set may get before reads fall back to
	// the store. The providers_refresh job rewrites the entry well inside it.
	TTL    time.Duration
	Logger *slog.Logger
}

// Cache is a Redis read-through cache in front of a provider store. Cache
// failures degrade to the store; they never fail a reconcile tick.
type Cache struct {
	store  core.ProviderLister
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

var _ core.ProviderLister = (*Cache)(nil)

// NewCache wraps store with a Redis cache.
func NewCache(store core.ProviderLister, client redis.UniversalClient, opts CacheOptions) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, client: client, ttl: ttl, logger: logger}
}

// ListActiveProviders returns the cached set when present, otherwise reads
// the store and populates the cache.
func (c *Cache) ListActiveProviders(ctx context.Context) ([]string, error) {
	raw, err := c.client.Get(ctx, cacheKey).Result()
	if err == nil {
		var addrs []string
		if jsonErr := json.Unmarshal([]byte(raw), &addrs); jsonErr == nil {
			return addrs, nil
		}
		c.logger.WarnContext(ctx, "provider cache entry is malformed, refreshing", "key", cacheKey)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "provider cache read failed, falling back to store", "error", err)
	}

	addrs, err := c.store.ListActiveProviders(ctx)
	if err != nil {
		return nil, err
	}
	if cacheErr := c.write(ctx, addrs); cacheErr != nil {
		c.logger.WarnContext(ctx, "provider cache write failed", "error", cacheErr)
	}
	return addrs, nil
}

// Refresh reloads the store set into the cache unconditionally. The
// providers_refresh job calls this on its schedule.
func (c *Cache) Refresh(ctx context.Context) (int, error) {
	addrs, err := c.store.ListActiveProviders(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh provider cache: %w", err)
	}
	if err := c.write(ctx, addrs); err != nil {
		return 0, fmt.Errorf("refresh provider cache: %w", err)
	}
	return len(addrs), nil
}

func (c *Cache) write(ctx context.Context, addrs []string) error {
	payload, err := json.Marshal(addrs)
	if err != nil {
		return fmt.Errorf("encode provider set: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", cacheKey, err)
	}
	return nil
}
