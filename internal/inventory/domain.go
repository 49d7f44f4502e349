package inventory

import (
	"errors"

	"github.com/google/uuid"
)

// ErrorCode classifies per-item failures.
type ErrorCode string

const (
	ErrorCodeProductNotFound   ErrorCode = "PRODUCT_NOT_FOUND"
	ErrorCodeVariantNotFound   ErrorCode = "VARIANT_NOT_FOUND"
	ErrorCodeInsufficientStock ErrorCode = "INSUFFICIENT_STOCK"
	// ErrorCodeInternal is the catch-all bucket carrying the raw error message.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// LineItem is one order line consumed by the inventory service. It is owned by
// order ingestion; the service only reads it.
type LineItem struct {
	ProductID   uuid.UUID  `json:"productId"`
	VariantID   uuid.UUID  `json:"variantId"`
	Quantity    int        `json:"quantity"`
	OrderID     *uuid.UUID `json:"orderId,omitempty"`
	OrderNumber *string    `json:"orderNumber,omitempty"`
}

// ItemError is one failed line item. The batch keeps processing past it.
type ItemError struct {
	ProductID         uuid.UUID `json:"productId"`
	VariantID         uuid.UUID `json:"variantId"`
	Code              ErrorCode `json:"code"`
	Message           string    `json:"message"`
	CurrentStock      *int      `json:"currentStock,omitempty"`
	RequestedQuantity *int      `json:"requestedQuantity,omitempty"`
}

// UpdatedItem reports one applied stock mutation.
type UpdatedItem struct {
	ProductID     uuid.UUID `json:"productId"`
	VariantID     uuid.UUID `json:"variantId"`
	SKU           string    `json:"sku"`
	PreviousStock int       `json:"previousStock"`
	NewStock      int       `json:"newStock"`
	Quantity      int       `json:"quantity"`
}

// BatchResult aggregates per-item outcomes. Success is false when any item
// failed, even though the remaining items were still processed.
type BatchResult struct {
	Success      bool          `json:"success"`
	UpdatedItems []UpdatedItem `json:"updatedItems"`
	Errors       []ItemError   `json:"errors"`
}

// CartItem is one advisory validation input. The variant id is carried for
// display but validation always checks the product's first active variant.
type CartItem struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,gt=0"`
}

// ValidationIssue is one cart item that failed advisory validation.
type ValidationIssue struct {
	ProductID         uuid.UUID `json:"productId"`
	ProductName       string    `json:"productName,omitempty"`
	Reason            string    `json:"reason"`
	AvailableStock    *int      `json:"availableStock,omitempty"`
	RequestedQuantity int       `json:"requestedQuantity"`
}

// ValidationResult buckets cart items by advisory outcome. It never mutates
// stock; a later DecreaseStock call is the authoritative check.
type ValidationResult struct {
	IsValid           bool              `json:"isValid"`
	Errors            []ValidationIssue `json:"errors"`
	OutOfStock        []ValidationIssue `json:"outOfStock"`
	InsufficientStock []ValidationIssue `json:"insufficientStock"`
}

// AlertStatus classifies a low-stock alert.
type AlertStatus string

const (
	AlertStatusLowStock   AlertStatus = "LOW_STOCK"
	AlertStatusOutOfStock AlertStatus = "OUT_OF_STOCK"
)

// LowStockAlert is one tracked variant at or below its threshold.
type LowStockAlert struct {
	ProductID         uuid.UUID   `json:"productId"`
	ProductName       string      `json:"productName"`
	VariantID         uuid.UUID   `json:"variantId"`
	SKU               string      `json:"sku"`
	Stock             int         `json:"stock"`
	LowStockThreshold int         `json:"lowStockThreshold"`
	Status            AlertStatus `json:"status"`
}

// ErrInvalidChangeType indicates an unsupported change type for IncreaseStock.
var ErrInvalidChangeType = errors.New("inventory: invalid change type for stock increase")
