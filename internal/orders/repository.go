package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harmonia-shop/harmonia/internal/platform/db"
)

// ErrNotFound indicates a missing order row.
var ErrNotFound = errors.New("orders: not found")

// Repository persists orders and their lines.
type Repository interface {
	Create(ctx context.Context, order Order) (Order, error)
	Get(ctx context.Context, id uuid.UUID) (Order, error)
	List(ctx context.Context, page, perPage int) ([]Order, int, error)
	AppendPrivateNote(ctx context.Context, id uuid.UUID, note string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error
	GenerateNumber(ctx context.Context, at time.Time) (string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed order repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Create inserts the order header and lines in one transaction.
func (r *repository) Create(ctx context.Context, order Order) (Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insertOrder = `
			INSERT INTO orders (id, number, checkout_session_id, email, currency, total_amount, status, private_note, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		_, err := tx.Exec(ctx, insertOrder,
			order.ID, order.Number, order.CheckoutSessionID, order.Email, order.Currency,
			order.TotalAmount, order.Status, order.PrivateNote, order.CreatedAt, order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		const insertLine = `
			INSERT INTO order_lines (order_id, product_id, variant_id, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`
		for i := range order.Lines {
			line := &order.Lines[i]
			line.OrderID = order.ID
			err := tx.QueryRow(ctx, insertLine,
				order.ID, line.ProductID, line.VariantID, line.Quantity, line.UnitPrice, line.LineTotal,
			).Scan(&line.ID)
			if err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	const query = `
		SELECT id, number, checkout_session_id, email, currency, total_amount, status, private_note, created_at, updated_at
		FROM orders WHERE id = $1`
	var o Order
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.Number, &o.CheckoutSessionID, &o.Email, &o.Currency,
		&o.TotalAmount, &o.Status, &o.PrivateNote, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}

	const lineQuery = `
		SELECT id, order_id, product_id, variant_id, quantity, unit_price, line_total
		FROM order_lines WHERE order_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, lineQuery, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.VariantID, &line.Quantity, &line.UnitPrice, &line.LineTotal); err != nil {
			return Order{}, err
		}
		o.Lines = append(o.Lines, line)
	}
	return o, rows.Err()
}

// List returns one page of order headers, newest first, plus the total count.
func (r *repository) List(ctx context.Context, page, perPage int) ([]Order, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT id, number, checkout_session_id, email, currency, total_amount, status, private_note, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Number, &o.CheckoutSessionID, &o.Email, &o.Currency,
			&o.TotalAmount, &o.Status, &o.PrivateNote, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, o)
	}
	return list, total, rows.Err()
}

// AppendPrivateNote adds an admin-visible note, keeping any existing text.
func (r *repository) AppendPrivateNote(ctx context.Context, id uuid.UUID, note string) error {
	const query = `
		UPDATE orders
		SET private_note = CASE
			WHEN private_note IS NULL OR private_note = '' THEN $2
			ELSE private_note || E'\n' || $2
		END,
		updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateNumber produces ORD-{YY}{MM}-{SEQ} order numbers.
func (r *repository) GenerateNumber(ctx context.Context, at time.Time) (string, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE created_at >= date_trunc('month', $1::timestamptz)`,
		at).Scan(&count)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%04d", at.Format("0601"), count+1), nil
}
