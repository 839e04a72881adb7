// Package bootstrap wires the storage, cache, messaging and provider adapters
// selected by configuration. Both the API server and the indexer CLI build on it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zatekoja/localdiscovery/internal/adapters/cache"
	"github.com/zatekoja/localdiscovery/internal/adapters/database"
	"github.com/zatekoja/localdiscovery/internal/adapters/events"
	"github.com/zatekoja/localdiscovery/internal/adapters/loaders"
	"github.com/zatekoja/localdiscovery/internal/adapters/memory"
	"github.com/zatekoja/localdiscovery/internal/adapters/providers/embedding"
	"github.com/zatekoja/localdiscovery/internal/adapters/providers/geolocation"
	"github.com/zatekoja/localdiscovery/internal/adapters/search"
	"github.com/zatekoja/localdiscovery/internal/application/services"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/clients/openai"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/clients/redis"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
	"github.com/zatekoja/localdiscovery/internal/query/builders"
	queryservices "github.com/zatekoja/localdiscovery/internal/query/services"
	"github.com/zatekoja/localdiscovery/pkg/config"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Dependencies holds the adapters selected for one process
type Dependencies struct {
	Businesses repositories.BusinessRepository
	Sales      repositories.SaleAdRepository
	Promos     repositories.PromoAdRepository
	References repositories.ReferenceRepository
	Documents  repositories.EmbeddingRepository

	// GeoIndex is nil unless Typesense is enabled and reachable
	GeoIndex *search.GeoIndexedBusinessRepository

	// Cache is nil when Redis is unavailable
	Cache    providers.CacheProvider
	EventBus providers.EventBus
	Embedder providers.EmbeddingProvider
	Geocoder providers.GeolocationProvider
	// Identity is nil for the memory driver
	Identity providers.IdentityProvider

	Postgres *postgres.Client
	Redis    *redis.Client

	// HealthChecks pings each external dependency by name
	HealthChecks map[string]func(context.Context) error

	cfg     *config.Config
	metrics *observability.Metrics
	closers []func() error
}

// New builds the dependencies for cfg.Database.Driver
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*Dependencies, error) {
	d := &Dependencies{
		cfg:          cfg,
		metrics:      metrics,
		HealthChecks: make(map[string]func(context.Context) error),
	}

	var err error
	switch cfg.Database.Driver {
	case DriverMemory:
		d.buildMemory()
	case DriverPostgres, "":
		err = d.buildPostgres(ctx)
	default:
		err = fmt.Errorf("unknown DB_DRIVER %q", cfg.Database.Driver)
	}
	if err != nil {
		_ = d.Close()
		return nil, err
	}

	d.Geocoder = d.geocoder()
	return d, nil
}

func (d *Dependencies) logger() *zerolog.Logger {
	return observability.GetLogger()
}

func (d *Dependencies) buildMemory() {
	stores := memory.NewStores()
	if d.cfg.Database.SeedDemo {
		stores.SeedDemo(time.Now())
	}
	d.Businesses = stores.Businesses
	d.Sales = stores.Sales
	d.Promos = stores.Promos
	d.References = stores.References
	d.Documents = memory.NewEmbeddingStore()
	d.Cache = cache.NewMemoryAdapter()
	d.EventBus = events.NewLocalEventBus()
	d.Embedder = embedding.NewHashingEmbedder(d.cfg.Embedding.Dimensions)
	d.closers = append(d.closers, d.EventBus.Close)

	d.logger().Info().Bool("demo_data", d.cfg.Database.SeedDemo).Msg("using in-memory storage")
}

func (d *Dependencies) buildPostgres(ctx context.Context) error {
	pgClient, err := postgres.NewClient(&d.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}
	d.Postgres = pgClient.WithMetrics(d.metrics)
	d.closers = append(d.closers, pgClient.Close)
	d.HealthChecks["postgres"] = pgClient.Ping

	d.Businesses = database.NewBusinessAdapter(pgClient)
	d.Sales = database.NewSaleAdAdapter(pgClient)
	d.Promos = database.NewPromoAdAdapter(pgClient)
	d.References = database.NewReferenceAdapter(pgClient)
	d.Documents = database.NewEmbeddingAdapter(pgClient)
	d.Identity = database.NewSessionAdapter(pgClient)

	// The application can work without Redis; caching and cross-process events are lost
	redisClient, err := redis.NewClient(&d.cfg.Redis)
	if err != nil {
		d.logger().Warn().Err(err).Msg("Redis unavailable, continuing without cache")
		d.EventBus = events.NewLocalEventBus()
	} else {
		d.Redis = redisClient
		d.closers = append(d.closers, redisClient.Close)
		d.HealthChecks["redis"] = redisClient.Ping
		d.Cache = cache.NewRedisAdapter(redisClient)
		d.EventBus = events.NewRedisEventBus(redisClient)
	}
	d.closers = append(d.closers, d.EventBus.Close)

	if d.cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(&d.cfg.Typesense)
		if err != nil {
			d.logger().Warn().Err(err).Msg("Typesense unavailable, nearest-neighbor retrieval stays in PostgreSQL")
		} else {
			geoIndex := search.NewGeoIndexedBusinessRepository(d.Businesses, tsClient)
			if err := geoIndex.InitSchema(ctx); err != nil {
				d.logger().Warn().Err(err).Msg("failed to init Typesense schema")
			}
			d.GeoIndex = geoIndex
			d.Businesses = geoIndex
		}
	}

	d.Embedder = d.embedder()
	return nil
}

// embedder prefers the OpenAI-compatible provider, cached when Redis is up
func (d *Dependencies) embedder() providers.EmbeddingProvider {
	ecfg := d.cfg.Embedding
	if ecfg.APIKey == "" {
		d.logger().Warn().Msg("EMBEDDING_API_KEY is not set; using the local hashing embedder")
		return embedding.NewHashingEmbedder(ecfg.Dimensions)
	}

	client, err := openai.NewClient(&ecfg, d.metrics)
	if err != nil {
		d.logger().Warn().Err(err).Msg("failed to initialize embedding client; using the local hashing embedder")
		return embedding.NewHashingEmbedder(ecfg.Dimensions)
	}
	if d.Cache == nil {
		return client
	}
	ttl := time.Duration(ecfg.CacheTTLSeconds) * time.Second
	return embedding.NewCachedEmbedder(client, d.Cache, ecfg.Model, ttl, d.metrics)
}

func (d *Dependencies) geocoder() providers.GeolocationProvider {
	switch d.cfg.Geolocation.Provider {
	case "google":
		if d.cfg.Geolocation.APIKey == "" {
			d.logger().Warn().Msg("GEOLOCATION_API_KEY is not set; using mock geolocation provider")
			return geolocation.NewMockGeolocationProvider()
		}
		return geolocation.NewGoogleGeolocationProvider(d.cfg.Geolocation.APIKey, d.Cache)
	default:
		return geolocation.NewMockGeolocationProvider()
	}
}

// BusinessGeoIndex returns the geo index as the service-level interface, or a
// nil interface when it is disabled
func (d *Dependencies) BusinessGeoIndex() services.BusinessGeoIndex {
	if d.GeoIndex == nil {
		return nil
	}
	return d.GeoIndex
}

// Services holds the application services built over one set of dependencies
type Services struct {
	Search     *queryservices.MergeEngine
	Listings   *queryservices.ListingService
	Indexer    *services.EmbeddingIndexService
	Semantic   *services.SemanticSearchService
	Reindex    *services.ReindexService
	Subscriber *services.IndexEventSubscriber
}

// Services builds the query and indexing services
func (d *Dependencies) Services() (*Services, error) {
	loc, err := d.cfg.Search.Location()
	if err != nil {
		return nil, err
	}

	builder := builders.NewBuilder(d.References)
	refLoader := loaders.NewReferenceLoader(d.References)
	indexer := services.NewEmbeddingIndexService(d.Businesses, d.Sales, d.Promos, refLoader, d.Documents, d.Embedder)

	return &Services{
		Search:   queryservices.NewMergeEngine(d.Businesses, d.Sales, d.Promos, builder, d.cfg.Search, loc, d.metrics),
		Listings: queryservices.NewListingService(d.Businesses, d.Sales, d.Promos, builder, d.cfg.Search, loc),
		Indexer:  indexer,
		Semantic: services.NewSemanticSearchService(d.Documents, d.Embedder),
		Reindex: services.NewReindexService(d.Businesses, d.Sales, d.Promos, indexer, d.BusinessGeoIndex(),
			d.cfg.Indexer.Workers, d.cfg.Indexer.BatchSize),
		Subscriber: services.NewIndexEventSubscriber(d.EventBus, indexer, d.Businesses, d.BusinessGeoIndex(), d.Cache),
	}, nil
}

// Close releases every client in reverse order of creation
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
