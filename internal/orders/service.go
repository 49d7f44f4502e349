package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harmonia-shop/harmonia/internal/inventory"
	"github.com/harmonia-shop/harmonia/internal/shared"
)

// InventoryPort is the stock mutation contract used by order ingestion.
type InventoryPort interface {
	DecreaseStock(ctx context.Context, items []inventory.LineItem) (inventory.BatchResult, error)
}

// IdempotencyPort deduplicates replayed webhook events. Delete releases a key
// whose processing failed before the order existed, so the gateway retry is
// not mistaken for a replay.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Notifier sends the customer-facing order confirmation.
type Notifier interface {
	OrderConfirmation(ctx context.Context, email, orderNumber string) error
}

// IngestResult reports the outcome of one webhook event.
type IngestResult struct {
	Order     Order
	Duplicate bool
	Inventory inventory.BatchResult
}

// Service builds orders from completed checkouts and drives the inventory
// decrement. The webhook response to the gateway must never depend on
// inventory success, so inventory failures become private order notes.
type Service struct {
	repo        Repository
	inventory   InventoryPort
	idempotency IdempotencyPort
	notifier    Notifier
	logger      *slog.Logger
}

// NewService builds the order ingestion service.
func NewService(repo Repository, inv InventoryPort, idem IdempotencyPort, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, inventory: inv, idempotency: idem, notifier: notifier, logger: logger}
}

const idempotencyModule = "orders"

// ProcessPaidCheckout turns one completed checkout event into an order and
// applies the stock decrement. A replayed session id is reported as a
// duplicate without touching stock again.
func (s *Service) ProcessPaidCheckout(ctx context.Context, event CheckoutEvent) (IngestResult, error) {
	key := "checkout:" + event.SessionID
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				s.logger.Info("duplicate checkout event ignored", slog.String("session_id", event.SessionID))
				return IngestResult{Duplicate: true}, nil
			}
			return IngestResult{}, fmt.Errorf("orders: idempotency check: %w", err)
		}
	}

	now := time.Now().UTC()
	number, err := s.repo.GenerateNumber(ctx, now)
	if err != nil {
		s.releaseKey(ctx, key)
		return IngestResult{}, fmt.Errorf("orders: generate number: %w", err)
	}

	order := Order{
		Number:            number,
		CheckoutSessionID: event.SessionID,
		Email:             event.Email,
		Currency:          event.Currency,
		TotalAmount:       event.Amount,
		Status:            OrderStatusPaid,
	}
	for _, item := range event.Items {
		order.Lines = append(order.Lines, OrderLine{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.UnitPrice * float64(item.Quantity),
		})
	}

	order, err = s.repo.Create(ctx, order)
	if err != nil {
		// No order row exists yet; release the key so the gateway retry is
		// processed instead of being answered as already done.
		s.releaseKey(ctx, key)
		return IngestResult{}, fmt.Errorf("orders: create order: %w", err)
	}

	items := make([]inventory.LineItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, inventory.LineItem{
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			Quantity:    line.Quantity,
			OrderID:     &order.ID,
			OrderNumber: &order.Number,
		})
	}

	batch, err := s.inventory.DecreaseStock(ctx, items)
	if err != nil {
		// Payment is already captured; keep the order and surface the
		// failure to admins instead of failing the webhook.
		s.logger.Error("inventory decrement failed for paid order",
			slog.Any("error", err), slog.String("order_number", order.Number))
		s.attachNote(ctx, &order, "Inventory processing failed: "+err.Error())
	} else if !batch.Success {
		s.attachNote(ctx, &order, inventoryNote(batch))
	}

	if s.notifier != nil {
		if err := s.notifier.OrderConfirmation(ctx, order.Email, order.Number); err != nil {
			s.logger.Warn("enqueue order confirmation", slog.Any("error", err), slog.String("order_number", order.Number))
		}
	}

	if err := s.repo.UpdateStatus(ctx, order.ID, OrderStatusProcessed); err != nil {
		s.logger.Warn("mark order processed", slog.Any("error", err), slog.String("order_number", order.Number))
	} else {
		order.Status = OrderStatusProcessed
	}

	return IngestResult{Order: order, Inventory: batch}, nil
}

// releaseKey drops the idempotency key after a failure that left no order
// behind. Best effort: if the delete also fails the key expires via the
// periodic cleanup, and the stuck event surfaces in the logs.
func (s *Service) releaseKey(ctx context.Context, key string) {
	if s.idempotency == nil {
		return
	}
	if err := s.idempotency.Delete(ctx, key); err != nil {
		s.logger.Error("release idempotency key", slog.Any("error", err), slog.String("key", key))
	}
}

func (s *Service) attachNote(ctx context.Context, order *Order, note string) {
	if err := s.repo.AppendPrivateNote(ctx, order.ID, note); err != nil {
		s.logger.Error("attach order note", slog.Any("error", err), slog.String("order_number", order.Number))
		return
	}
	order.PrivateNote = &note
}

func inventoryNote(batch inventory.BatchResult) string {
	parts := make([]string, 0, len(batch.Errors))
	for _, itemErr := range batch.Errors {
		part := fmt.Sprintf("%s %s/%s", itemErr.Code, itemErr.ProductID, itemErr.VariantID)
		if itemErr.CurrentStock != nil && itemErr.RequestedQuantity != nil {
			part += fmt.Sprintf(" (have %d, requested %d)", *itemErr.CurrentStock, *itemErr.RequestedQuantity)
		}
		parts = append(parts, part)
	}
	return fmt.Sprintf("Inventory decrement incomplete (%d of %d items applied): %s",
		len(batch.UpdatedItems), len(batch.UpdatedItems)+len(batch.Errors), strings.Join(parts, "; "))
}
