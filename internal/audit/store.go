package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the append-only audit trail contract. It is injected into callers
// so tests can substitute an in-memory fake.
type Store interface {
	LogChange(ctx context.Context, entry Entry) (Entry, error)
	GetHistory(ctx context.Context, productID, variantID uuid.UUID, filter HistoryFilter) ([]Entry, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) ([]Entry, error)
	GetStats(ctx context.Context, filter StatsFilter) ([]Stat, error)
}

type store struct {
	pool *pgxpool.Pool
}

// NewStore constructs the PostgreSQL-backed audit store.
func NewStore(pool *pgxpool.Pool) Store {
	return &store{pool: pool}
}

// LogChange appends one entry. The store never retries; the caller decides
// whether a write failure is fatal to the surrounding operation.
func (s *store) LogChange(ctx context.Context, entry Entry) (Entry, error) {
	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO inventory_audit_log
			(id, product_id, variant_id, product_name, sku, change_type,
			 previous_stock, new_stock, quantity_changed, order_id, order_number,
			 reason, performed_by_user, performed_by_source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.ProductID, entry.VariantID, entry.ProductName, entry.SKU, entry.ChangeType,
		entry.PreviousStock, entry.NewStock, entry.QuantityChanged, entry.OrderID, entry.OrderNumber,
		entry.Reason, entry.PerformedBy.UserID, entry.PerformedBy.Source, entry.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("audit: log change: %w", err)
	}
	return entry, nil
}

const entryColumns = `
	e.id, e.product_id, e.variant_id, e.product_name, e.sku, e.change_type,
	e.previous_stock, e.new_stock, e.quantity_changed, e.order_id,
	COALESCE(e.order_number, o.number), e.reason,
	e.performed_by_user, e.performed_by_source, e.created_at`

// GetHistory returns entries for one variant newest-first, optionally
// date-bounded, with the order number resolved for display.
func (s *store) GetHistory(ctx context.Context, productID, variantID uuid.UUID, filter HistoryFilter) ([]Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM inventory_audit_log e
		LEFT JOIN orders o ON o.id = e.order_id
		WHERE e.product_id = $1 AND e.variant_id = $2`
	args := []any{productID, variantID}

	if !filter.StartDate.IsZero() {
		args = append(args, filter.StartDate)
		query += fmt.Sprintf(" AND e.created_at >= $%d", len(args))
	}
	if !filter.EndDate.IsZero() {
		args = append(args, filter.EndDate)
		query += fmt.Sprintf(" AND e.created_at <= $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY e.created_at DESC LIMIT $%d", len(args))

	return s.queryEntries(ctx, query, args...)
}

// GetByOrder returns all entries tied to one order, newest-first.
func (s *store) GetByOrder(ctx context.Context, orderID uuid.UUID) ([]Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM inventory_audit_log e
		LEFT JOIN orders o ON o.id = e.order_id
		WHERE e.order_id = $1
		ORDER BY e.created_at DESC`
	return s.queryEntries(ctx, query, orderID)
}

// GetStats aggregates counts and summed quantities per change type, sorted by
// count descending.
func (s *store) GetStats(ctx context.Context, filter StatsFilter) ([]Stat, error) {
	query := `
		SELECT change_type, COUNT(*), COALESCE(SUM(quantity_changed), 0)
		FROM inventory_audit_log
		WHERE 1=1`
	var args []any

	if !filter.StartDate.IsZero() {
		args = append(args, filter.StartDate)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filter.EndDate.IsZero() {
		args = append(args, filter.EndDate)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	if filter.ChangeType != "" {
		args = append(args, filter.ChangeType)
		query += fmt.Sprintf(" AND change_type = $%d", len(args))
	}

	query += " GROUP BY change_type ORDER BY COUNT(*) DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []Stat
	for rows.Next() {
		var st Stat
		if err := rows.Scan(&st.ChangeType, &st.Count, &st.TotalQuantity); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(&e.ID, &e.ProductID, &e.VariantID, &e.ProductName, &e.SKU, &e.ChangeType,
			&e.PreviousStock, &e.NewStock, &e.QuantityChanged, &e.OrderID,
			&e.OrderNumber, &e.Reason, &e.PerformedBy.UserID, &e.PerformedBy.Source, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
