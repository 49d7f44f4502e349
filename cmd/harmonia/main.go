package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/harmonia-shop/harmonia/internal/app"
	"github.com/harmonia-shop/harmonia/internal/audit"
	"github.com/harmonia-shop/harmonia/internal/catalog"
	"github.com/harmonia-shop/harmonia/internal/inventory"
	"github.com/harmonia-shop/harmonia/internal/observability"
	"github.com/harmonia-shop/harmonia/internal/orders"
	"github.com/harmonia-shop/harmonia/internal/platform/cache"
	"github.com/harmonia-shop/harmonia/internal/platform/db"
	"github.com/harmonia-shop/harmonia/internal/shared"
	"github.com/harmonia-shop/harmonia/jobs"
)

// asynqNotifier sends order confirmations through the job queue so the
// webhook response never waits on SMTP.
type asynqNotifier struct {
	client *jobs.Client
}

func (n asynqNotifier) OrderConfirmation(ctx context.Context, email, orderNumber string) error {
	_, err := n.client.EnqueueOrderConfirmation(ctx, jobs.OrderConfirmationPayload{
		To:          email,
		OrderNumber: orderNumber,
	})
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, alert cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	catalogRepo := catalog.NewRepository(dbpool)
	catalogHandler := catalog.NewHandler(logger, catalogRepo)
	auditStore := audit.NewStore(dbpool)
	auditHandler := audit.NewHandler(logger, auditStore)

	var alertCache *inventory.AlertCache
	if redisClient != nil {
		alertCache = inventory.NewAlertCache(redisClient, cfg.AlertCacheTTL)
	}
	inventoryService := inventory.NewService(catalogRepo, auditStore, alertCache, metrics, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo, inventoryService, idempotencyStore, asynqNotifier{client: jobClient}, logger)
	ordersHandler := orders.NewHandler(logger, ordersService, ordersRepo, cfg.WebhookSecret)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalogHandler,
		InventoryHandler: inventoryHandler,
		AuditHandler:     auditHandler,
		OrdersHandler:    ordersHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
