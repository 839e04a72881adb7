package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
)

// CacheKeyPrefix starts every cached response key
const CacheKeyPrefix = "http:cache:"

// CacheConfig holds cache configuration for specific routes
type CacheConfig struct {
	TTLSeconds int
	Enabled    bool
	// BypassFlags are boolean query params that make a request depend on the
	// clock; a true value skips the cache
	BypassFlags []string
}

// DefaultCacheRoutes are the read endpoints whose responses are cached.
// /api/search and /api/promo-ads evaluate promo validity windows at read time
// and are never cached.
var DefaultCacheRoutes = map[string]CacheConfig{
	"/api/businesses":      {TTLSeconds: 300, Enabled: true, BypassFlags: []string{"openNow"}},
	"/api/sale-ads":        {TTLSeconds: 300, Enabled: true},
	"/api/semantic-search": {TTLSeconds: 120, Enabled: true},
}

// CacheMiddleware provides HTTP response caching. Requests carrying an
// Authorization header are personalized and never cached.
type CacheMiddleware struct {
	cache        providers.CacheProvider
	routeConfigs map[string]CacheConfig
	metrics      *observability.Metrics
}

// NewCacheMiddleware creates a new cache middleware over DefaultCacheRoutes
func NewCacheMiddleware(cache providers.CacheProvider, metrics *observability.Metrics) *CacheMiddleware {
	return NewCacheMiddlewareWithRoutes(cache, DefaultCacheRoutes, metrics)
}

// NewCacheMiddlewareWithRoutes creates a cache middleware with custom route config
func NewCacheMiddlewareWithRoutes(cache providers.CacheProvider, routes map[string]CacheConfig, metrics *observability.Metrics) *CacheMiddleware {
	return &CacheMiddleware{cache: cache, routeConfigs: routes, metrics: metrics}
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.cache == nil || r.Header.Get("Authorization") != "" {
			next.ServeHTTP(w, r)
			return
		}

		config := m.getRouteConfig(r.URL.Path)
		if !config.Enabled || config.bypassed(r) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		logger := observability.LoggerFromContext(ctx)
		cacheKey := generateCacheKey(r)

		if cached, err := m.cache.Get(ctx, cacheKey); err == nil {
			observability.RecordCacheHit(ctx, m.metrics, r.URL.Path)
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}

		observability.RecordCacheMiss(ctx, m.metrics, r.URL.Path)
		w.Header().Set("X-Cache", "MISS")

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		next.ServeHTTP(recorder, r)

		// Only cache successful responses
		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 {
			if err := m.cache.Set(ctx, cacheKey, recorder.body.Bytes(), config.TTLSeconds); err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("failed to cache response")
			}
		}
	})
}

// Purge removes every cached response
func (m *CacheMiddleware) Purge(ctx context.Context) error {
	if m.cache == nil {
		return nil
	}
	return m.cache.DeletePattern(ctx, CacheKeyPrefix+"*")
}

func (c CacheConfig) bypassed(r *http.Request) bool {
	query := r.URL.Query()
	for _, flag := range c.BypassFlags {
		if on, err := strconv.ParseBool(query.Get(flag)); err == nil && on {
			return true
		}
	}
	return false
}

// getRouteConfig returns the config of the exact path, else of the longest matching prefix
func (m *CacheMiddleware) getRouteConfig(path string) CacheConfig {
	if config, exists := m.routeConfigs[path]; exists {
		return config
	}

	best, bestLen := CacheConfig{}, 0
	for pattern, config := range m.routeConfigs {
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(path, pattern) && len(pattern) > bestLen {
			best, bestLen = config, len(pattern)
		}
	}
	return best
}

// generateCacheKey hashes the method, path and sorted query parameters
func generateCacheKey(r *http.Request) string {
	key := r.Method + ":" + r.URL.Path
	if query := r.URL.Query().Encode(); query != "" {
		key += "?" + query
	}

	hash := sha256.Sum256([]byte(key))
	return CacheKeyPrefix + hex.EncodeToString(hash[:])
}

// responseRecorder captures the response for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

// WriteHeader captures the status code
func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

// Write captures the response body and writes to the client
func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
