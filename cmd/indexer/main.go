package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/zatekoja/localdiscovery/internal/bootstrap"
	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
	"github.com/zatekoja/localdiscovery/pkg/config"
)

func main() {
	app := &cli.App{
		Name:  "indexer",
		Usage: "Maintain the discovery schema, embedding index and geo index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create any missing tables and indexes",
				Action: migrateCommand,
			},
			{
				Name:   "reindex",
				Usage:  "Embed every entity of the given types and refresh the geo index",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Entity types to reindex (business, sale, promo); all when omitted",
					},
					&cli.IntFlag{
						Name:    "workers",
						Usage:   "Concurrent embedding workers",
						EnvVars: []string{"INDEXER_WORKERS"},
					},
					&cli.IntFlag{
						Name:    "batch-size",
						Usage:   "Entity IDs fetched per page",
						EnvVars: []string{"INDEXER_BATCH_SIZE"},
					},
					&cli.DurationFlag{
						Name:    "interval",
						Usage:   "Repeat interval for reindexing (e.g. 6h, 30m); runs once when zero",
						EnvVars: []string{"REINDEX_INTERVAL"},
					},
				},
			},
			{
				Name:   "index",
				Usage:  "Embed a single entity",
				Action: indexCommand,
				Flags:  entityFlags(),
			},
			{
				Name:   "notify",
				Usage:  "Publish an entity change event for running API servers",
				Action: notifyCommand,
				Flags: append(entityFlags(), &cli.BoolFlag{
					Name:  "deleted",
					Usage: "Publish a deletion instead of an upsert",
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		observability.GetLogger().Fatal().Err(err).Msg("indexer failed")
	}
}

func entityFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "type",
			Aliases:  []string{"t"},
			Usage:    "Entity type (business, sale, promo)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "id",
			Usage:    "Entity ID",
			Required: true,
		},
	}
}

// setup loads configuration and builds the dependency graph for one command
func setup(c *cli.Context) (context.Context, context.CancelFunc, *config.Config, *bootstrap.Dependencies, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	cfg.LogLevel = c.String("log-level")
	observability.InitLogger(cfg.OTEL.ServiceName+"-indexer", cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	deps, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		stop()
		return nil, nil, nil, nil, err
	}
	return ctx, stop, cfg, deps, nil
}

func migrateCommand(c *cli.Context) error {
	ctx, stop, _, deps, err := setup(c)
	if err != nil {
		return err
	}
	defer stop()
	defer deps.Close()

	if deps.Postgres == nil {
		return errors.New("migrate requires DB_DRIVER=postgres")
	}
	if err := deps.Postgres.Migrate(ctx); err != nil {
		return err
	}
	observability.GetLogger().Info().Msg("schema is up to date")
	return nil
}

func reindexCommand(c *cli.Context) error {
	types, err := parseTypes(c.StringSlice("type"))
	if err != nil {
		return err
	}
	interval := c.Duration("interval")
	if interval < 0 {
		return errors.New("interval must not be negative")
	}

	ctx, stop, cfg, deps, err := setup(c)
	if err != nil {
		return err
	}
	defer stop()
	defer deps.Close()

	if c.IsSet("workers") {
		cfg.Indexer.Workers = c.Int("workers")
	}
	if c.IsSet("batch-size") {
		cfg.Indexer.BatchSize = c.Int("batch-size")
	}

	svc, err := deps.Services()
	if err != nil {
		return err
	}
	logger := observability.GetLogger()

	for {
		for _, t := range types {
			report, err := svc.Reindex.Reindex(ctx, t)
			if err != nil {
				return err
			}
			logger.Info().
				Str("entity_type", string(report.EntityType)).
				Int("indexed", report.Indexed).
				Int("failed", report.Failed).
				Msg("reindex complete")
		}

		if interval == 0 {
			return nil
		}
		logger.Info().Dur("interval", interval).Msg("next reindex scheduled")

		select {
		case <-ctx.Done():
			logger.Info().Msg("reindexer shutting down")
			return nil
		case <-time.After(interval):
		}
	}
}

func indexCommand(c *cli.Context) error {
	entityType, err := entities.ParseEntityType(c.String("type"))
	if err != nil {
		return err
	}

	ctx, stop, _, deps, err := setup(c)
	if err != nil {
		return err
	}
	defer stop()
	defer deps.Close()

	svc, err := deps.Services()
	if err != nil {
		return err
	}
	docID, err := svc.Indexer.IndexEntity(ctx, entityType, c.String("id"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, docID)
	return nil
}

func notifyCommand(c *cli.Context) error {
	entityType, err := entities.ParseEntityType(c.String("type"))
	if err != nil {
		return err
	}
	action := entities.EntityActionUpserted
	if c.Bool("deleted") {
		action = entities.EntityActionDeleted
	}

	ctx, stop, _, deps, err := setup(c)
	if err != nil {
		return err
	}
	defer stop()
	defer deps.Close()

	event := entities.NewEntityEvent(entityType, c.String("id"), action)
	if err := deps.EventBus.Publish(ctx, providers.EventChannelEntityChanged, event); err != nil {
		return err
	}
	observability.GetLogger().Info().Str("event_id", event.ID).Msg("entity change published")
	return nil
}

// parseTypes resolves --type values, defaulting to every entity type
func parseTypes(values []string) ([]entities.EntityType, error) {
	if len(values) == 0 {
		return entities.AllEntityTypes, nil
	}
	types := make([]entities.EntityType, 0, len(values))
	for _, v := range values {
		t, err := entities.ParseEntityType(v)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}
