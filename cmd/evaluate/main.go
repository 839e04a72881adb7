package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zatekoja/localdiscovery/internal/bootstrap"
	"github.com/zatekoja/localdiscovery/internal/evaluation"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
	"github.com/zatekoja/localdiscovery/pkg/config"
)

func main() {
	var (
		goldenPath string
		k          int
		thresholds evaluation.Thresholds
	)
	flag.StringVar(&goldenPath, "golden", "config/golden_queries.json", "path to the golden query set")
	flag.IntVar(&k, "k", evaluation.DefaultK, "rank cutoff for recall and MRR")
	flag.Float64Var(&thresholds.MinRecall, "min-recall", 0, "fail when average recall@k is below this value")
	flag.Float64Var(&thresholds.MinMRR, "min-mrr", 0, "fail when average MRR@k is below this value")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		observability.GetLogger().Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-evaluate", cfg.Env, cfg.LogLevel)
	logger := observability.GetLogger()

	queries, err := evaluation.LoadGoldenQueries(goldenPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load golden queries")
	}
	if err := evaluation.ValidateGoldenQueries(queries); err != nil {
		logger.Fatal().Err(err).Msg("invalid golden queries")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize dependencies")
	}
	defer deps.Close()

	svc, err := deps.Services()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize services")
	}

	summary, err := evaluation.NewRunner(svc.Semantic, k).Run(ctx, queries)
	if err != nil {
		logger.Fatal().Err(err).Msg("evaluation failed")
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))

	if err := thresholds.Check(summary); err != nil {
		logger.Error().Err(err).Msg("relevance below threshold")
		stop()
		os.Exit(1)
	}
}
