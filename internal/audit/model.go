package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ChangeType enumerates supported stock mutation kinds.
type ChangeType string

const (
	ChangeTypeSale         ChangeType = "sale"
	ChangeTypeRestock      ChangeType = "restock"
	ChangeTypeReturn       ChangeType = "return"
	ChangeTypeCancellation ChangeType = "cancellation"
	ChangeTypeAdjustment   ChangeType = "adjustment"
	ChangeTypeReservation  ChangeType = "reservation"
	ChangeTypeRelease      ChangeType = "release"
)

// ActorSource identifies which surface triggered a mutation.
type ActorSource string

const (
	ActorSourceSystem   ActorSource = "system"
	ActorSourceAdmin    ActorSource = "admin"
	ActorSourceCustomer ActorSource = "customer"
	ActorSourceWebhook  ActorSource = "webhook"
	ActorSourceAPI      ActorSource = "api"
)

// Attribution records who performed a stock mutation.
type Attribution struct {
	UserID *string     `json:"userId,omitempty"`
	Source ActorSource `json:"source"`
}

// Entry is one immutable stock mutation record. Entries are only appended and
// queried; there is no update or delete path. Product name and SKU are
// denormalized snapshots valid at mutation time.
type Entry struct {
	ID              uuid.UUID   `json:"id"`
	ProductID       uuid.UUID   `json:"productId"`
	VariantID       uuid.UUID   `json:"variantId"`
	ProductName     string      `json:"productName"`
	SKU             string      `json:"sku"`
	ChangeType      ChangeType  `json:"changeType"`
	PreviousStock   int         `json:"previousStock"`
	NewStock        int         `json:"newStock"`
	QuantityChanged int         `json:"quantityChanged"`
	OrderID         *uuid.UUID  `json:"orderId,omitempty"`
	OrderNumber     *string     `json:"orderNumber,omitempty"`
	Reason          string      `json:"reason,omitempty"`
	PerformedBy     Attribution `json:"performedBy"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// HistoryFilter bounds a history query.
type HistoryFilter struct {
	Limit     int
	StartDate time.Time
	EndDate   time.Time
}

// StatsFilter bounds an aggregate query.
type StatsFilter struct {
	StartDate  time.Time
	EndDate    time.Time
	ChangeType ChangeType
}

// Stat is one aggregate row per change type.
type Stat struct {
	ChangeType    ChangeType `json:"changeType"`
	Count         int        `json:"count"`
	TotalQuantity int        `json:"totalQuantity"`
}

// Validate checks required fields before insertion.
func (e Entry) Validate() error {
	if e.ProductID == uuid.Nil || e.VariantID == uuid.Nil {
		return errors.New("audit: product and variant required")
	}
	if e.ChangeType == "" {
		return errors.New("audit: change type required")
	}
	if e.QuantityChanged <= 0 {
		return errors.New("audit: quantity changed must be positive")
	}
	if e.PreviousStock < 0 || e.NewStock < 0 {
		return errors.New("audit: stock values must be non-negative")
	}
	if e.PerformedBy.Source == "" {
		return errors.New("audit: attribution source required")
	}
	return nil
}
