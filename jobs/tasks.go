package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeOrderConfirmation is the task type for order confirmation emails.
	TaskTypeOrderConfirmation = "mail:order_confirmation"
	// TaskTypeLowStockScan is the periodic low stock scan task.
	TaskTypeLowStockScan = "inventory:low_stock_scan"
	// TaskTypeIdempotencyCleanup prunes expired webhook dedup keys.
	TaskTypeIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// OrderConfirmationPayload describes one confirmation email.
type OrderConfirmationPayload struct {
	To          string `json:"to"`
	OrderNumber string `json:"orderNumber"`
}

// NewOrderConfirmationTask constructs an order confirmation task.
func NewOrderConfirmationTask(payload OrderConfirmationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOrderConfirmation, data), nil
}

// NewLowStockScanTask constructs the low stock scan task. It carries no
// payload; the handler reads current thresholds from the catalog.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeLowStockScan, nil)
}

// NewIdempotencyCleanupTask constructs the dedup key pruning task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil)
}
