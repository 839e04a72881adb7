// Package embedding holds EmbeddingProvider decorators and the local embedder
// used when no remote provider is configured.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/zatekoja/localdiscovery/internal/adapters/cache"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
)

const cacheKeyPrefix = "emb:v1:"

// CachedEmbedder caches vectors by model and text
type CachedEmbedder struct {
	inner providers.EmbeddingProvider
	cache *cache.JSONCache[[]float32]
	model string
}

// NewCachedEmbedder wraps inner with a cache. Keys include model so a model
// change never serves stale vectors.
func NewCachedEmbedder(inner providers.EmbeddingProvider, store providers.CacheProvider, model string, ttl time.Duration, metrics *observability.Metrics) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		cache: cache.NewJSONCache[[]float32](store, cacheKeyPrefix, ttl, metrics),
		model: model,
	}
}

// Embed implements providers.EmbeddingProvider
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.cache.GetOrLoad(ctx, c.key(text), func(ctx context.Context) ([]float32, error) {
		return c.inner.Embed(ctx, text)
	})
}

func (c *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(c.model + "\x00" + text))
	return hex.EncodeToString(h[:])
}
