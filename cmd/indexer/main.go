package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
	"github.com/xela07ax/cylestio-dashboard/internal/indexer"
	"github.com/xela07ax/cylestio-dashboard/internal/infra"
	"github.com/xela07ax/cylestio-dashboard/internal/repository/postgres"
	"go.uber.org/zap"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, indexer.ErrLocked) {
			logger.Warn("indexer already running, skipping")
			return
		}
		logger.Error("indexing failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *infra.Config, logger *zap.Logger) error {
	// 1. Ресурсы
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return err
	}

	repo, err := postgres.NewIndexRepo(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.Ping(pingCtx); err != nil {
		return err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	// 2. Клиент бэкенда с защитой (rate limit, CB, retry)
	client := connectors.NewClient(cfg.API.BaseURL(), cfg.API.Timeout, logger)
	api := connectors.NewReliableRequester(client, connectors.ReliabilityConfig{
		Name:          "indexer-api",
		RateLimit:     cfg.Indexer.RateLimit,
		RateBurst:     cfg.Indexer.RateBurst,
		RetryAttempts: cfg.Indexer.RetryAttempts,
		CBMaxRequests: cfg.Indexer.CBMaxRequests,
		CBInterval:    cfg.Indexer.CBInterval,
		CBTimeout:     cfg.Indexer.CBTimeout,
	}, logger)

	// 3. Прогон
	report, err := indexer.New(api, repo, indexer.NewRedisLocker(rdb), cfg.Indexer, logger).Run(ctx)
	if err != nil {
		return err
	}
	for _, rr := range report.Resources {
		logger.Info("summary",
			zap.String("resource", rr.Resource),
			zap.Int64("indexed", rr.Indexed),
			zap.Int("skipped", rr.Skipped))
	}
	return nil
}
