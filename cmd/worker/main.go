package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/harmonia-shop/harmonia/internal/app"
	"github.com/harmonia-shop/harmonia/internal/audit"
	"github.com/harmonia-shop/harmonia/internal/catalog"
	"github.com/harmonia-shop/harmonia/internal/inventory"
	"github.com/harmonia-shop/harmonia/internal/shared"
	"github.com/harmonia-shop/harmonia/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	catalogRepo := catalog.NewRepository(pool)
	auditStore := audit.NewStore(pool)
	alertCache := inventory.NewAlertCache(redisClient, cfg.AlertCacheTTL)
	inventoryService := inventory.NewService(catalogRepo, auditStore, alertCache, nil, logger)

	mailer := jobs.NewMailer(logger, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	scanner := jobs.NewLowStockScanner(inventoryService, logger)
	janitor := jobs.NewIdempotencyJanitor(shared.NewIdempotencyStore(pool), 30*24*time.Hour, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeOrderConfirmation, Handler: mailer.HandleOrderConfirmation},
			{Type: jobs.TaskTypeLowStockScan, Handler: scanner.HandleLowStockScan},
			{Type: jobs.TaskTypeIdempotencyCleanup, Handler: janitor.HandleIdempotencyCleanup},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/30 * * * *", Task: jobs.NewLowStockScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 3 * * *", Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
