package orders

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus tracks ingestion progress. Payment is already captured by the
// time an order exists, so failures downstream never invalidate the order.
type OrderStatus string

const (
	// OrderStatusPaid marks an order built from a completed checkout.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusProcessed marks an order whose inventory pass finished.
	OrderStatusProcessed OrderStatus = "processed"
)

// OrderLine is one purchased variant.
type OrderLine struct {
	ID        int64     `json:"id"`
	OrderID   uuid.UUID `json:"orderId"`
	ProductID uuid.UUID `json:"productId"`
	VariantID uuid.UUID `json:"variantId"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unitPrice"`
	LineTotal float64   `json:"lineTotal"`
}

// Order is built from a completed checkout session.
type Order struct {
	ID                uuid.UUID   `json:"id"`
	Number            string      `json:"number"`
	CheckoutSessionID string      `json:"checkoutSessionId"`
	Email             string      `json:"email"`
	Currency          string      `json:"currency"`
	TotalAmount       float64     `json:"totalAmount"`
	Status            OrderStatus `json:"status"`
	PrivateNote       *string     `json:"privateNote,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
	Lines             []OrderLine `json:"lines,omitempty"`
}

// CheckoutItem is one line of an incoming payment event.
type CheckoutItem struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	VariantID uuid.UUID `json:"variantId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64   `json:"unitPrice" validate:"gte=0"`
}

// CheckoutEvent is the opaque "order paid" event delivered by the payment
// gateway webhook.
type CheckoutEvent struct {
	EventID   string         `json:"eventId" validate:"required"`
	Type      string         `json:"type" validate:"required"`
	SessionID string         `json:"sessionId" validate:"required"`
	Email     string         `json:"email" validate:"required,email"`
	Currency  string         `json:"currency" validate:"required,len=3"`
	Amount    float64        `json:"amount" validate:"gte=0"`
	Items     []CheckoutItem `json:"items" validate:"required,min=1,dive"`
}

// EventTypeCheckoutCompleted is the only event type order ingestion handles.
const EventTypeCheckoutCompleted = "checkout.session.completed"
