package routes

import (
	"net/http"

	"github.com/zatekoja/localdiscovery/internal/api/handlers"
	"github.com/zatekoja/localdiscovery/internal/api/middleware"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	discoveryHandler *handlers.DiscoveryHandler
	semanticHandler  *handlers.SemanticHandler
	healthHandler    *handlers.HealthHandler

	identity        providers.IdentityProvider
	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  string
	metrics         *observability.Metrics
}

// NewRouter creates a new router. identity and cacheMiddleware may be nil.
func NewRouter(
	discoveryHandler *handlers.DiscoveryHandler,
	semanticHandler *handlers.SemanticHandler,
	healthHandler *handlers.HealthHandler,
	identity providers.IdentityProvider,
	cacheMiddleware *middleware.CacheMiddleware,
	allowedOrigins string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		discoveryHandler: discoveryHandler,
		semanticHandler:  semanticHandler,
		healthHandler:    healthHandler,
		identity:         identity,
		cacheMiddleware:  cacheMiddleware,
		allowedOrigins:   allowedOrigins,
		metrics:          metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)

	// Discovery endpoints
	r.mux.HandleFunc("GET /api/search", r.discoveryHandler.Search)
	r.mux.HandleFunc("GET /api/businesses", r.discoveryHandler.ListBusinesses)
	r.mux.HandleFunc("GET /api/sale-ads", r.discoveryHandler.ListSaleAds)
	r.mux.HandleFunc("GET /api/promo-ads", r.discoveryHandler.ListPromoAds)

	// Semantic endpoints
	r.mux.HandleFunc("GET /api/semantic-search", r.semanticHandler.Search)
	r.mux.HandleFunc("POST /api/index/{entityType}/{id}", r.semanticHandler.IndexEntity)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.IdentityMiddleware(r.identity)(handler)
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// Compression, ETag and cache headers apply after the response cache so
	// cached bodies stay uncompressed
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
