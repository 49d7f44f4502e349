package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/harmonia-shop/harmonia/internal/audit"
	"github.com/harmonia-shop/harmonia/internal/catalog"
)

// CatalogPort abstracts catalog persistence for the service.
type CatalogPort interface {
	Get(ctx context.Context, id uuid.UUID) (catalog.Product, error)
	DecrementStock(ctx context.Context, productID, variantID uuid.UUID, qty int) (catalog.StockUpdate, error)
	IncrementStock(ctx context.Context, productID, variantID uuid.UUID, qty int) (catalog.StockUpdate, error)
	ListLowStock(ctx context.Context) ([]catalog.LowStockRow, error)
	RefreshStatus(ctx context.Context, productID uuid.UUID) error
}

// AuditPort abstracts the append-only audit trail.
type AuditPort interface {
	LogChange(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}

// MetricsPort records mutation outcomes. Implementations must tolerate a nil
// receiver.
type MetricsPort interface {
	RecordStockMutation(changeType string, ok bool)
	RecordAuditWriteFailure()
}

// Service orchestrates stock mutations across order line items and guarantees
// every applied delta is logged.
type Service struct {
	catalog  CatalogPort
	auditLog AuditPort
	alerts   *AlertCache
	metrics  MetricsPort
	logger   *slog.Logger
}

// NewService builds the inventory service.
func NewService(catalogRepo CatalogPort, auditLog AuditPort, alerts *AlertCache, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: catalogRepo, auditLog: auditLog, alerts: alerts, metrics: metrics, logger: logger}
}

var unitsPrinter = message.NewPrinter(language.English)

var increaseChangeTypes = map[audit.ChangeType]bool{
	audit.ChangeTypeRestock:      true,
	audit.ChangeTypeReturn:       true,
	audit.ChangeTypeCancellation: true,
	audit.ChangeTypeRelease:      true,
}

// DecreaseStock applies a sale decrement for each line item independently.
// Items are processed sequentially and failures never abort the batch; an
// error return happens only when the catalog was unreachable before any item
// produced an outcome.
func (s *Service) DecreaseStock(ctx context.Context, items []LineItem) (BatchResult, error) {
	result := BatchResult{Success: true}
	if len(items) == 0 {
		return result, nil
	}

	processedAny := false
	for _, item := range items {
		product, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				result.addError(itemError(item, ErrorCodeProductNotFound, "Product not found"))
				processedAny = true
				continue
			}
			if !processedAny {
				return BatchResult{}, fmt.Errorf("inventory: decrease stock: %w", err)
			}
			result.addError(itemError(item, ErrorCodeInternal, err.Error()))
			continue
		}
		processedAny = true

		variant, ok := product.Variant(item.VariantID)
		if !ok {
			result.addError(itemError(item, ErrorCodeVariantNotFound, "Variant not found"))
			continue
		}
		if !variant.Inventory.TrackInventory {
			continue
		}
		if item.Quantity <= 0 {
			result.addError(itemError(item, ErrorCodeInternal, "quantity must be positive"))
			continue
		}

		update, err := s.catalog.DecrementStock(ctx, item.ProductID, item.VariantID, item.Quantity)
		if err != nil {
			s.recordMutation(audit.ChangeTypeSale, false)
			var insufficient *catalog.InsufficientStockError
			switch {
			case errors.As(err, &insufficient):
				ie := itemError(item, ErrorCodeInsufficientStock, "Insufficient stock")
				ie.CurrentStock = intPtr(insufficient.CurrentStock)
				ie.RequestedQuantity = intPtr(insufficient.RequestedQuantity)
				result.addError(ie)
			case errors.Is(err, catalog.ErrVariantNotFound):
				result.addError(itemError(item, ErrorCodeVariantNotFound, "Variant not found"))
			default:
				result.addError(itemError(item, ErrorCodeInternal, err.Error()))
			}
			continue
		}
		s.recordMutation(audit.ChangeTypeSale, true)

		result.UpdatedItems = append(result.UpdatedItems, UpdatedItem{
			ProductID:     item.ProductID,
			VariantID:     item.VariantID,
			SKU:           variant.SKU,
			PreviousStock: update.PreviousStock,
			NewStock:      update.NewStock,
			Quantity:      item.Quantity,
		})

		s.logChange(ctx, product, *variant, item, audit.ChangeTypeSale, update, "Order fulfillment")
		s.refreshStatus(ctx, item.ProductID)
	}

	s.invalidateAlerts(ctx, result)
	result.Success = len(result.Errors) == 0
	return result, nil
}

// IncreaseStock adds quantity back for each line item. It mirrors
// DecreaseStock's per-item semantics and never errors for missing rows.
func (s *Service) IncreaseStock(ctx context.Context, items []LineItem, changeType audit.ChangeType) (BatchResult, error) {
	if !increaseChangeTypes[changeType] {
		return BatchResult{}, fmt.Errorf("%w: %s", ErrInvalidChangeType, changeType)
	}
	result := BatchResult{Success: true}
	if len(items) == 0 {
		return result, nil
	}

	processedAny := false
	for _, item := range items {
		product, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				result.addError(itemError(item, ErrorCodeProductNotFound, "Product not found"))
				processedAny = true
				continue
			}
			if !processedAny {
				return BatchResult{}, fmt.Errorf("inventory: increase stock: %w", err)
			}
			result.addError(itemError(item, ErrorCodeInternal, err.Error()))
			continue
		}
		processedAny = true

		variant, ok := product.Variant(item.VariantID)
		if !ok {
			result.addError(itemError(item, ErrorCodeVariantNotFound, "Variant not found"))
			continue
		}
		if !variant.Inventory.TrackInventory {
			continue
		}
		if item.Quantity <= 0 {
			result.addError(itemError(item, ErrorCodeInternal, "quantity must be positive"))
			continue
		}

		update, err := s.catalog.IncrementStock(ctx, item.ProductID, item.VariantID, item.Quantity)
		if err != nil {
			s.recordMutation(changeType, false)
			if errors.Is(err, catalog.ErrVariantNotFound) {
				result.addError(itemError(item, ErrorCodeVariantNotFound, "Variant not found"))
			} else {
				result.addError(itemError(item, ErrorCodeInternal, err.Error()))
			}
			continue
		}
		s.recordMutation(changeType, true)

		result.UpdatedItems = append(result.UpdatedItems, UpdatedItem{
			ProductID:     item.ProductID,
			VariantID:     item.VariantID,
			SKU:           variant.SKU,
			PreviousStock: update.PreviousStock,
			NewStock:      update.NewStock,
			Quantity:      item.Quantity,
		})

		s.logChange(ctx, product, *variant, item, changeType, update, "Stock increase")
		s.refreshStatus(ctx, item.ProductID)
	}

	s.invalidateAlerts(ctx, result)
	result.Success = len(result.Errors) == 0
	return result, nil
}

// ValidateStock performs the advisory pre-checkout check. It inspects the
// product's first active variant and never mutates state; time may pass
// before payment completes, so DecreaseStock re-validates.
func (s *Service) ValidateStock(ctx context.Context, cartItems []CartItem) (ValidationResult, error) {
	result := ValidationResult{IsValid: true}

	for _, item := range cartItems {
		product, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				result.Errors = append(result.Errors, ValidationIssue{
					ProductID:         item.ProductID,
					Reason:            "Product not found",
					RequestedQuantity: item.Quantity,
				})
				continue
			}
			return ValidationResult{}, fmt.Errorf("inventory: validate stock: %w", err)
		}

		variant, ok := product.FirstActiveVariant()
		if !ok {
			result.OutOfStock = append(result.OutOfStock, ValidationIssue{
				ProductID:         item.ProductID,
				ProductName:       product.Name,
				Reason:            "No active variant available",
				RequestedQuantity: item.Quantity,
			})
			continue
		}
		if !variant.Inventory.TrackInventory {
			continue
		}

		available := variant.Inventory.Stock
		switch {
		case available == 0 && !variant.Inventory.AllowBackorder:
			result.OutOfStock = append(result.OutOfStock, ValidationIssue{
				ProductID:         item.ProductID,
				ProductName:       product.Name,
				Reason:            "Out of stock",
				AvailableStock:    intPtr(0),
				RequestedQuantity: item.Quantity,
			})
		case available < item.Quantity && !variant.Inventory.AllowBackorder:
			result.InsufficientStock = append(result.InsufficientStock, ValidationIssue{
				ProductID:         item.ProductID,
				ProductName:       product.Name,
				Reason:            unitsPrinter.Sprintf("Only %d units available", available),
				AvailableStock:    intPtr(available),
				RequestedQuantity: item.Quantity,
			})
		}
	}

	result.IsValid = len(result.Errors) == 0 && len(result.OutOfStock) == 0 && len(result.InsufficientStock) == 0
	return result, nil
}

// GetLowStockAlerts scans published products' active tracked variants at or
// below their thresholds. Read-only; results are cached for periodic polling.
func (s *Service) GetLowStockAlerts(ctx context.Context) ([]LowStockAlert, error) {
	loader := func(ctx context.Context) ([]LowStockAlert, error) {
		rows, err := s.catalog.ListLowStock(ctx)
		if err != nil {
			return nil, fmt.Errorf("inventory: low stock scan: %w", err)
		}
		alerts := make([]LowStockAlert, 0, len(rows))
		for _, row := range rows {
			status := AlertStatusLowStock
			if row.Stock == 0 {
				status = AlertStatusOutOfStock
			}
			alerts = append(alerts, LowStockAlert{
				ProductID:         row.ProductID,
				ProductName:       row.ProductName,
				VariantID:         row.VariantID,
				SKU:               row.SKU,
				Stock:             row.Stock,
				LowStockThreshold: row.LowStockThreshold,
				Status:            status,
			})
		}
		return alerts, nil
	}

	if s.alerts == nil {
		return loader(ctx)
	}
	return s.alerts.Fetch(ctx, loader)
}

// logChange appends one audit entry. A write failure is downgraded to a
// warning: stock correctness takes priority over audit completeness, and the
// discrepancy is surfaced through logs for reconciliation.
func (s *Service) logChange(ctx context.Context, product catalog.Product, variant catalog.Variant, item LineItem, changeType audit.ChangeType, update catalog.StockUpdate, reason string) {
	if s.auditLog == nil {
		return
	}
	entry := audit.Entry{
		ProductID:       product.ID,
		VariantID:       variant.ID,
		ProductName:     product.Name,
		SKU:             variant.SKU,
		ChangeType:      changeType,
		PreviousStock:   update.PreviousStock,
		NewStock:        update.NewStock,
		QuantityChanged: item.Quantity,
		OrderID:         item.OrderID,
		OrderNumber:     item.OrderNumber,
		Reason:          reason,
		PerformedBy:     audit.Attribution{Source: audit.ActorSourceSystem},
	}
	if _, err := s.auditLog.LogChange(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.RecordAuditWriteFailure()
		}
		s.logger.Warn("audit log write failed, stock mutation kept",
			slog.Any("error", err),
			slog.String("change_type", string(changeType)),
			slog.String("product_id", product.ID.String()),
			slog.String("variant_id", variant.ID.String()),
			slog.Int("previous_stock", update.PreviousStock),
			slog.Int("new_stock", update.NewStock))
	}
}

func (s *Service) refreshStatus(ctx context.Context, productID uuid.UUID) {
	if err := s.catalog.RefreshStatus(ctx, productID); err != nil {
		s.logger.Warn("refresh product status", slog.Any("error", err), slog.String("product_id", productID.String()))
	}
}

func (s *Service) recordMutation(changeType audit.ChangeType, ok bool) {
	if s.metrics != nil {
		s.metrics.RecordStockMutation(string(changeType), ok)
	}
}

func (s *Service) invalidateAlerts(ctx context.Context, result BatchResult) {
	if s.alerts == nil || len(result.UpdatedItems) == 0 {
		return
	}
	if err := s.alerts.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate alert cache", slog.Any("error", err))
	}
}

func (r *BatchResult) addError(e ItemError) {
	r.Errors = append(r.Errors, e)
}

func itemError(item LineItem, code ErrorCode, message string) ItemError {
	return ItemError{
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Code:      code,
		Message:   message,
	}
}

func intPtr(v int) *int {
	return &v
}
