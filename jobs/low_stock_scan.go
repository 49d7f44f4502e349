package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/harmonia-shop/harmonia/internal/inventory"
)

// AlertSource yields the current low stock alerts.
type AlertSource interface {
	GetLowStockAlerts(ctx context.Context) ([]inventory.LowStockAlert, error)
}

// LowStockScanner runs the periodic low stock scan and logs every variant
// at or below its threshold so the alerts show up in operational logs even
// when nobody opens the admin dashboard.
type LowStockScanner struct {
	alerts AlertSource
	logger *slog.Logger
}

// NewLowStockScanner constructs a LowStockScanner.
func NewLowStockScanner(alerts AlertSource, logger *slog.Logger) *LowStockScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LowStockScanner{alerts: alerts, logger: logger}
}

// HandleLowStockScan processes TaskTypeLowStockScan tasks.
func (s *LowStockScanner) HandleLowStockScan(ctx context.Context, t *asynq.Task) error {
	alerts, err := s.alerts.GetLowStockAlerts(ctx)
	if err != nil {
		return fmt.Errorf("jobs: low stock scan: %w", err)
	}
	for _, alert := range alerts {
		s.logger.Warn("low stock",
			slog.String("product_id", alert.ProductID.String()),
			slog.String("variant_id", alert.VariantID.String()),
			slog.String("sku", alert.SKU),
			slog.String("status", string(alert.Status)),
			slog.Int("stock", alert.Stock),
			slog.Int("threshold", alert.LowStockThreshold))
	}
	s.logger.Info("low stock scan complete", slog.Int("alerts", len(alerts)))
	return nil
}
