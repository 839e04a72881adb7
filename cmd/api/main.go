package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/zatekoja/localdiscovery/internal/api/handlers"
	"github.com/zatekoja/localdiscovery/internal/api/middleware"
	"github.com/zatekoja/localdiscovery/internal/api/routes"
	"github.com/zatekoja/localdiscovery/internal/bootstrap"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
	"github.com/zatekoja/localdiscovery/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.GetLogger().Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)
	logger := observability.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry if enabled
	var metrics *observability.Metrics
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()

			if metrics, err = observability.InitMetrics(); err != nil {
				logger.Fatal().Err(err).Msg("failed to initialize metrics")
			}
			logger.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	deps, err := bootstrap.New(ctx, cfg, metrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing dependencies")
		}
	}()

	svc, err := deps.Services()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize services")
	}

	if err := svc.Subscriber.Start(); err != nil {
		logger.Warn().Err(err).Msg("failed to start index event subscriber")
	}
	defer svc.Subscriber.Stop()

	checks := make(map[string]handlers.HealthCheck, len(deps.HealthChecks))
	for name, check := range deps.HealthChecks {
		checks[name] = check
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if deps.Cache != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(deps.Cache, metrics)
	}

	router := routes.NewRouter(
		handlers.NewDiscoveryHandler(svc.Search, svc.Listings, deps.Geocoder),
		handlers.NewSemanticHandler(svc.Semantic, svc.Indexer),
		handlers.NewHealthHandler(checks),
		deps.Identity,
		cacheMiddleware,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Str("driver", cfg.Database.Driver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	logger.Info().Msg("server stopped")
}
