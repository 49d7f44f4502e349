package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProductStatus enumerates catalog publish states.
type ProductStatus string

const (
	// ProductStatusActive marks a published, purchasable product.
	ProductStatusActive ProductStatus = "active"
	// ProductStatusDraft marks an unpublished product.
	ProductStatusDraft ProductStatus = "draft"
	// ProductStatusOutOfStock marks a published product with no remaining stock.
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
)

// InventoryCounter tracks per-variant stock settings.
type InventoryCounter struct {
	Stock             int  `json:"stock"`
	LowStockThreshold int  `json:"lowStockThreshold"`
	TrackInventory    bool `json:"trackInventory"`
	AllowBackorder    bool `json:"allowBackorder"`
}

// Variant is a purchasable unit embedded in a product. Variants are owned by
// their product and addressed by (product id, variant id); they are never
// shared between products.
type Variant struct {
	ID        uuid.UUID        `json:"id"`
	SKU       string           `json:"sku"`
	Price     float64          `json:"price"`
	SalePrice *float64         `json:"salePrice,omitempty"`
	Currency  string           `json:"currency"`
	IsActive  bool             `json:"isActive"`
	Position  int              `json:"position"`
	Inventory InventoryCounter `json:"inventory"`
}

// Product is a catalog entity with an ordered, non-empty list of variants.
type Product struct {
	ID        uuid.UUID     `json:"id"`
	Slug      string        `json:"slug"`
	Name      string        `json:"name"`
	Category  string        `json:"category"`
	Status    ProductStatus `json:"status"`
	Variants  []Variant     `json:"variants"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Variant returns the embedded variant with the given id.
func (p *Product) Variant(id uuid.UUID) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// FirstActiveVariant returns the first active variant in display order.
func (p *Product) FirstActiveVariant() (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].IsActive {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// TotalTrackedStock sums stock across variants with inventory tracking enabled.
func (p *Product) TotalTrackedStock() (total int, tracked bool) {
	for i := range p.Variants {
		if p.Variants[i].Inventory.TrackInventory {
			tracked = true
			total += p.Variants[i].Inventory.Stock
		}
	}
	return total, tracked
}

// DerivedStatus computes the publish status from aggregate variant stock.
// Draft products stay draft; published products with zero tracked stock are
// forced out of stock.
func (p *Product) DerivedStatus() ProductStatus {
	if p.Status == ProductStatusDraft {
		return ProductStatusDraft
	}
	if total, tracked := p.TotalTrackedStock(); tracked && total <= 0 {
		return ProductStatusOutOfStock
	}
	return ProductStatusActive
}

// EffectivePrice returns the sale price when set, otherwise the base price.
func (v *Variant) EffectivePrice() float64 {
	if v.SalePrice != nil && *v.SalePrice < v.Price {
		return *v.SalePrice
	}
	return v.Price
}

// NormalizeSKU upper-cases and trims a SKU for case-insensitive matching.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
