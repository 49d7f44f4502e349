package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDerivedStatus(t *testing.T) {
	salePrice := 8.0
	p := Product{
		Status: ProductStatusActive,
		Variants: []Variant{
			{ID: uuid.New(), SKU: "ALB-001-CD", Price: 10, SalePrice: &salePrice, IsActive: true,
				Inventory: InventoryCounter{Stock: 0, TrackInventory: true}},
			{ID: uuid.New(), SKU: "ALB-001-LP", Price: 25, IsActive: true,
				Inventory: InventoryCounter{Stock: 0, TrackInventory: true}},
		},
	}
	require.Equal(t, ProductStatusOutOfStock, p.DerivedStatus())

	p.Variants[1].Inventory.Stock = 3
	require.Equal(t, ProductStatusActive, p.DerivedStatus())

	p.Status = ProductStatusDraft
	require.Equal(t, ProductStatusDraft, p.DerivedStatus())
}

func TestDerivedStatusUntrackedCountsAsInStock(t *testing.T) {
	p := Product{
		Status: ProductStatusActive,
		Variants: []Variant{
			{ID: uuid.New(), SKU: "DL-001", Price: 5, IsActive: true,
				Inventory: InventoryCounter{Stock: 0, TrackInventory: false}},
		},
	}
	require.Equal(t, ProductStatusActive, p.DerivedStatus())
}

func TestFirstActiveVariant(t *testing.T) {
	inactive := Variant{ID: uuid.New(), SKU: "A", IsActive: false}
	active := Variant{ID: uuid.New(), SKU: "B", IsActive: true}
	p := Product{Variants: []Variant{inactive, active}}

	v, ok := p.FirstActiveVariant()
	require.True(t, ok)
	require.Equal(t, active.ID, v.ID)

	p = Product{Variants: []Variant{inactive}}
	_, ok = p.FirstActiveVariant()
	require.False(t, ok)
}

func TestEffectivePrice(t *testing.T) {
	sale := 7.5
	v := Variant{Price: 10, SalePrice: &sale}
	require.InDelta(t, 7.5, v.EffectivePrice(), 0.0001)

	tooHigh := 12.0
	v = Variant{Price: 10, SalePrice: &tooHigh}
	require.InDelta(t, 10.0, v.EffectivePrice(), 0.0001)

	v = Variant{Price: 10}
	require.InDelta(t, 10.0, v.EffectivePrice(), 0.0001)
}

func TestNormalizeSKU(t *testing.T) {
	require.Equal(t, "ALB-001-CD", NormalizeSKU("  alb-001-cd "))
}
