package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
)

// JSONCache stores values of one type as JSON on top of a CacheProvider
type JSONCache[T any] struct {
	provider providers.CacheProvider
	prefix   string
	ttl      time.Duration
	metrics  *observability.Metrics
}

// NewJSONCache creates a typed cache whose keys all start with prefix
func NewJSONCache[T any](provider providers.CacheProvider, prefix string, ttl time.Duration, metrics *observability.Metrics) *JSONCache[T] {
	return &JSONCache[T]{provider: provider, prefix: prefix, ttl: ttl, metrics: metrics}
}

// Get returns the cached value and whether it was present and readable
func (c *JSONCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T
	data, err := c.provider.Get(ctx, c.prefix+key)
	if err != nil {
		observability.RecordCacheMiss(ctx, c.metrics, c.prefix)
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", c.prefix+key).Msg("discarding unreadable cache entry")
		observability.RecordCacheMiss(ctx, c.metrics, c.prefix)
		return value, false
	}
	observability.RecordCacheHit(ctx, c.metrics, c.prefix)
	return value, true
}

// Set marshals value to JSON and stores it with the cache's TTL
func (c *JSONCache[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.provider.Set(ctx, c.prefix+key, data, int(c.ttl.Seconds()))
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Cache write failures are logged, never returned.
func (c *JSONCache[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if value, ok := c.Get(ctx, key); ok {
		return value, nil
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := c.Set(ctx, key, value); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", c.prefix+key).Msg("failed to write cache entry")
	}
	return value, nil
}

// Delete removes a value from cache
func (c *JSONCache[T]) Delete(ctx context.Context, key string) error {
	return c.provider.Delete(ctx, c.prefix+key)
}

// Purge removes every entry under the cache's prefix
func (c *JSONCache[T]) Purge(ctx context.Context) error {
	return c.provider.DeletePattern(ctx, c.prefix+"*")
}
