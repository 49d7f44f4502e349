package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrProductNotFound indicates a missing product row.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrVariantNotFound indicates the variant does not belong to the product.
	ErrVariantNotFound = errors.New("catalog: variant not found")
)

// InsufficientStockError reports a rejected conditional decrement.
type InsufficientStockError struct {
	CurrentStock      int
	RequestedQuantity int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("catalog: insufficient stock: have %d, requested %d", e.CurrentStock, e.RequestedQuantity)
}

// StockUpdate reports the stock counter before and after a mutation.
type StockUpdate struct {
	PreviousStock int
	NewStock      int
}

// LowStockRow is one tracked variant at or below its threshold.
type LowStockRow struct {
	ProductID         uuid.UUID
	ProductName       string
	VariantID         uuid.UUID
	SKU               string
	Stock             int
	LowStockThreshold int
}

// Repository is the catalog persistence contract used by the inventory service
// and the storefront read endpoints.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	List(ctx context.Context, page, perPage int) ([]Product, int, error)
	DecrementStock(ctx context.Context, productID, variantID uuid.UUID, qty int) (StockUpdate, error)
	IncrementStock(ctx context.Context, productID, variantID uuid.UUID, qty int) (StockUpdate, error)
	ListLowStock(ctx context.Context) ([]LowStockRow, error)
	RefreshStatus(ctx context.Context, productID uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed catalog repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	const query = `SELECT id, slug, name, category, status, created_at, updated_at FROM products WHERE id = $1`
	var p Product
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Slug, &p.Name, &p.Category, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	if p.Variants, err = r.variants(ctx, p.ID); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (Product, error) {
	const query = `SELECT id, slug, name, category, status, created_at, updated_at FROM products WHERE slug = $1`
	var p Product
	err := r.pool.QueryRow(ctx, query, slug).Scan(&p.ID, &p.Slug, &p.Name, &p.Category, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	if p.Variants, err = r.variants(ctx, p.ID); err != nil {
		return Product{}, err
	}
	return p, nil
}

// List returns one page of published products with their variants, newest
// first, plus the total count of published products.
func (r *repository) List(ctx context.Context, page, perPage int) ([]Product, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE status <> 'draft'`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT id, slug, name, category, status, created_at, updated_at
		FROM products
		WHERE status <> 'draft'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Category, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range products {
		if products[i].Variants, err = r.variants(ctx, products[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return products, total, nil
}

func (r *repository) variants(ctx context.Context, productID uuid.UUID) ([]Variant, error) {
	const query = `
		SELECT id, sku, price, sale_price, currency, is_active, position,
		       stock, low_stock_threshold, track_inventory, allow_backorder
		FROM product_variants
		WHERE product_id = $1
		ORDER BY position, sku`
	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		var v Variant
		err := rows.Scan(&v.ID, &v.SKU, &v.Price, &v.SalePrice, &v.Currency, &v.IsActive, &v.Position,
			&v.Inventory.Stock, &v.Inventory.LowStockThreshold, &v.Inventory.TrackInventory, &v.Inventory.AllowBackorder)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// DecrementStock applies a conditional decrement in a single statement. The
// row is only updated when stock covers the quantity or backorder is allowed;
// the result is clamped at zero. Doing the check and the write in one
// statement is what prevents lost updates between concurrent orders.
func (r *repository) DecrementStock(ctx context.Context, productID, variantID uuid.UUID, qty int) (StockUpdate, error) {
	const query = `
		UPDATE product_variants v
		SET stock = GREATEST(v.stock - $3, 0), updated_at = NOW()
		FROM (
			SELECT id, stock FROM product_variants
			WHERE product_id = $1 AND id = $2
			FOR UPDATE
		) prev
		WHERE v.product_id = $1 AND v.id = prev.id
		  AND v.track_inventory
		  AND (prev.stock >= $3 OR v.allow_backorder)
		RETURNING prev.stock, v.stock`

	var update StockUpdate
	err := r.pool.QueryRow(ctx, query, productID, variantID, qty).Scan(&update.PreviousStock, &update.NewStock)
	if err == nil {
		return update, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return StockUpdate{}, err
	}
	// The condition did not hold; distinguish missing variant from a rejection.
	current, lookupErr := r.currentStock(ctx, productID, variantID)
	if lookupErr != nil {
		return StockUpdate{}, lookupErr
	}
	return StockUpdate{}, &InsufficientStockError{CurrentStock: current, RequestedQuantity: qty}
}

// IncrementStock adds quantity back to a tracked variant with no upper bound.
func (r *repository) IncrementStock(ctx context.Context, productID, variantID uuid.UUID, qty int) (StockUpdate, error) {
	const query = `
		UPDATE product_variants v
		SET stock = v.stock + $3, updated_at = NOW()
		FROM (
			SELECT id, stock FROM product_variants
			WHERE product_id = $1 AND id = $2
			FOR UPDATE
		) prev
		WHERE v.product_id = $1 AND v.id = prev.id AND v.track_inventory
		RETURNING prev.stock, v.stock`

	var update StockUpdate
	err := r.pool.QueryRow(ctx, query, productID, variantID, qty).Scan(&update.PreviousStock, &update.NewStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, lookupErr := r.currentStock(ctx, productID, variantID); lookupErr != nil {
				return StockUpdate{}, lookupErr
			}
			return StockUpdate{}, ErrVariantNotFound
		}
		return StockUpdate{}, err
	}
	return update, nil
}

func (r *repository) currentStock(ctx context.Context, productID, variantID uuid.UUID) (int, error) {
	var stock int
	err := r.pool.QueryRow(ctx,
		`SELECT stock FROM product_variants WHERE product_id = $1 AND id = $2`,
		productID, variantID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVariantNotFound
		}
		return 0, err
	}
	return stock, nil
}

func (r *repository) ListLowStock(ctx context.Context) ([]LowStockRow, error) {
	const query = `
		SELECT p.id, p.name, v.id, v.sku, v.stock, v.low_stock_threshold
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE p.status <> 'draft'
		  AND v.is_active
		  AND v.track_inventory
		  AND v.stock <= v.low_stock_threshold
		ORDER BY v.stock, p.name, v.sku`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LowStockRow
	for rows.Next() {
		var row LowStockRow
		if err := rows.Scan(&row.ProductID, &row.ProductName, &row.VariantID, &row.SKU, &row.Stock, &row.LowStockThreshold); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// RefreshStatus re-derives the publish status from aggregate tracked stock.
// Draft products are left alone; products without tracked variants count as
// in stock.
func (r *repository) RefreshStatus(ctx context.Context, productID uuid.UUID) error {
	const query = `
		UPDATE products p
		SET status = CASE
			WHEN p.status = 'draft' THEN p.status
			WHEN COALESCE((SELECT SUM(stock) FROM product_variants
			               WHERE product_id = p.id AND track_inventory), 1) <= 0 THEN 'out_of_stock'
			ELSE 'active'
		END,
		updated_at = NOW()
		WHERE p.id = $1`
	tag, err := r.pool.Exec(ctx, query, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
