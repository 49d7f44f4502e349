package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-shop/harmonia/internal/inventory"
	"github.com/harmonia-shop/harmonia/internal/shared"
)

type fakeRepo struct {
	orders    map[uuid.UUID]*Order
	seq       int
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: make(map[uuid.UUID]*Order)}
}

func (f *fakeRepo) Create(ctx context.Context, order Order) (Order, error) {
	if f.createErr != nil {
		return Order{}, f.createErr
	}
	order.ID = uuid.New()
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	for i := range order.Lines {
		order.Lines[i].ID = int64(i + 1)
		order.Lines[i].OrderID = order.ID
	}
	stored := order
	f.orders[order.ID] = &stored
	return order, nil
}

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return *o, nil
}

func (f *fakeRepo) List(ctx context.Context, page, perPage int) ([]Order, int, error) {
	var list []Order
	for _, o := range f.orders {
		list = append(list, *o)
	}
	return list, len(list), nil
}

func (f *fakeRepo) AppendPrivateNote(ctx context.Context, id uuid.UUID, note string) error {
	o, ok := f.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.PrivateNote == nil || *o.PrivateNote == "" {
		o.PrivateNote = &note
		return nil
	}
	joined := *o.PrivateNote + "\n" + note
	o.PrivateNote = &joined
	return nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error {
	o, ok := f.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (f *fakeRepo) GenerateNumber(ctx context.Context, at time.Time) (string, error) {
	f.seq++
	return fmt.Sprintf("ORD-%s-%04d", at.Format("0601"), f.seq), nil
}

type fakeInventory struct {
	calls  [][]inventory.LineItem
	result inventory.BatchResult
	err    error
}

func (f *fakeInventory) DecreaseStock(ctx context.Context, items []inventory.LineItem) (inventory.BatchResult, error) {
	f.calls = append(f.calls, items)
	if f.err != nil {
		return inventory.BatchResult{}, f.err
	}
	return f.result, nil
}

type fakeIdempotency struct {
	seen map[string]bool
}

func (f *fakeIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	f.seen[key] = true
	return nil
}

func (f *fakeIdempotency) Delete(ctx context.Context, key string) error {
	delete(f.seen, key)
	return nil
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) OrderConfirmation(ctx context.Context, email, orderNumber string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, orderNumber)
	return nil
}

func testEvent() CheckoutEvent {
	return CheckoutEvent{
		EventID:   "evt_1",
		Type:      EventTypeCheckoutCompleted,
		SessionID: "cs_test_123",
		Email:     "buyer@example.com",
		Currency:  "EUR",
		Amount:    59.80,
		Items: []CheckoutItem{
			{ProductID: uuid.New(), VariantID: uuid.New(), Quantity: 2, UnitPrice: 29.90},
		},
	}
}

func TestProcessPaidCheckoutSuccess(t *testing.T) {
	repo := newFakeRepo()
	inv := &fakeInventory{result: inventory.BatchResult{Success: true}}
	notifier := &fakeNotifier{}
	svc := NewService(repo, inv, &fakeIdempotency{}, notifier, nil)

	result, err := svc.ProcessPaidCheckout(context.Background(), testEvent())
	require.NoError(t, err)
	require.False(t, result.Duplicate)
	require.Equal(t, OrderStatusProcessed, result.Order.Status)
	require.Nil(t, result.Order.PrivateNote)
	require.Contains(t, result.Order.Number, "ORD-")

	require.Len(t, inv.calls, 1)
	require.Len(t, inv.calls[0], 1)
	require.Equal(t, 2, inv.calls[0][0].Quantity)
	require.NotNil(t, inv.calls[0][0].OrderID)
	require.NotNil(t, inv.calls[0][0].OrderNumber)
	require.Equal(t, result.Order.Number, *inv.calls[0][0].OrderNumber)

	require.Equal(t, []string{result.Order.Number}, notifier.sent)
}

func TestProcessPaidCheckoutDuplicateSession(t *testing.T) {
	repo := newFakeRepo()
	inv := &fakeInventory{result: inventory.BatchResult{Success: true}}
	idem := &fakeIdempotency{}
	svc := NewService(repo, inv, idem, &fakeNotifier{}, nil)

	event := testEvent()
	first, err := svc.ProcessPaidCheckout(context.Background(), event)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := svc.ProcessPaidCheckout(context.Background(), event)
	require.NoError(t, err)
	require.True(t, second.Duplicate)

	// Stock must be decremented exactly once.
	require.Len(t, inv.calls, 1)
	require.Len(t, repo.orders, 1)
}

func TestProcessPaidCheckoutRetryAfterTransientCreateFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("connection reset")
	inv := &fakeInventory{result: inventory.BatchResult{Success: true}}
	svc := NewService(repo, inv, &fakeIdempotency{}, &fakeNotifier{}, nil)

	event := testEvent()
	_, err := svc.ProcessPaidCheckout(context.Background(), event)
	require.Error(t, err)
	require.Empty(t, repo.orders)

	// The gateway retries after the transient failure clears. The session key
	// must have been released, so the retry persists the order.
	repo.createErr = nil
	retry, err := svc.ProcessPaidCheckout(context.Background(), event)
	require.NoError(t, err)
	require.False(t, retry.Duplicate)
	require.Len(t, repo.orders, 1)
	require.Len(t, inv.calls, 1)
}

func TestProcessPaidCheckoutPartialInventoryFailure(t *testing.T) {
	repo := newFakeRepo()
	event := testEvent()
	stock := 1
	requested := 2
	inv := &fakeInventory{result: inventory.BatchResult{
		Success: false,
		Errors: []inventory.ItemError{{
			ProductID:         event.Items[0].ProductID,
			VariantID:         event.Items[0].VariantID,
			Code:              inventory.ErrorCodeInsufficientStock,
			Message:           "Insufficient stock",
			CurrentStock:      &stock,
			RequestedQuantity: &requested,
		}},
	}}
	svc := NewService(repo, inv, &fakeIdempotency{}, &fakeNotifier{}, nil)

	result, err := svc.ProcessPaidCheckout(context.Background(), event)
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), result.Order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PrivateNote)
	require.Contains(t, *stored.PrivateNote, "INSUFFICIENT_STOCK")
	require.Contains(t, *stored.PrivateNote, "have 1, requested 2")
	require.Equal(t, OrderStatusProcessed, stored.Status)
}

func TestProcessPaidCheckoutInventoryDownStillSucceeds(t *testing.T) {
	repo := newFakeRepo()
	inv := &fakeInventory{err: errors.New("catalog unreachable")}
	svc := NewService(repo, inv, &fakeIdempotency{}, &fakeNotifier{}, nil)

	result, err := svc.ProcessPaidCheckout(context.Background(), testEvent())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, result.Order.ID)

	stored, err := repo.Get(context.Background(), result.Order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PrivateNote)
	require.True(t, strings.HasPrefix(*stored.PrivateNote, "Inventory processing failed:"))
}

func TestProcessPaidCheckoutNotifierFailureIsNonFatal(t *testing.T) {
	repo := newFakeRepo()
	inv := &fakeInventory{result: inventory.BatchResult{Success: true}}
	svc := NewService(repo, inv, &fakeIdempotency{}, &fakeNotifier{err: errors.New("queue full")}, nil)

	result, err := svc.ProcessPaidCheckout(context.Background(), testEvent())
	require.NoError(t, err)
	require.Equal(t, OrderStatusProcessed, result.Order.Status)
}
