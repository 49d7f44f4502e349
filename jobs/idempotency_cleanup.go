package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// KeyStore prunes dedup keys past their retention window.
type KeyStore interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyJanitor removes webhook dedup keys old enough that the payment
// gateway will never redeliver their events.
type IdempotencyJanitor struct {
	keys      KeyStore
	retention time.Duration
	logger    *slog.Logger
}

// NewIdempotencyJanitor constructs the janitor.
func NewIdempotencyJanitor(keys KeyStore, retention time.Duration, logger *slog.Logger) *IdempotencyJanitor {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &IdempotencyJanitor{keys: keys, retention: retention, logger: logger}
}

// HandleIdempotencyCleanup processes TaskTypeIdempotencyCleanup tasks.
func (j *IdempotencyJanitor) HandleIdempotencyCleanup(ctx context.Context, t *asynq.Task) error {
	if err := j.keys.Cleanup(ctx, j.retention); err != nil {
		return fmt.Errorf("jobs: idempotency cleanup: %w", err)
	}
	j.logger.Info("idempotency keys pruned", slog.Duration("retention", j.retention))
	return nil
}
