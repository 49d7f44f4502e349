package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*AlertCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAlertCache(client, time.Minute), mr
}

func TestAlertCacheFetchPopulatesAndReuses(t *testing.T) {
	cache, _ := newTestCache(t)

	alerts := []LowStockAlert{{
		ProductID:         uuid.New(),
		ProductName:       "Classic Tee",
		VariantID:         uuid.New(),
		SKU:               "TSHIRT-M",
		Stock:             2,
		LowStockThreshold: 5,
		Status:            AlertStatusLowStock,
	}}

	calls := 0
	loader := func(ctx context.Context) ([]LowStockAlert, error) {
		calls++
		return alerts, nil
	}

	got, err := cache.Fetch(context.Background(), loader)
	require.NoError(t, err)
	require.Equal(t, alerts, got)
	require.Equal(t, 1, calls)

	got, err = cache.Fetch(context.Background(), loader)
	require.NoError(t, err)
	require.Equal(t, alerts, got)
	require.Equal(t, 1, calls)
}

func TestAlertCacheInvalidateForcesReload(t *testing.T) {
	cache, _ := newTestCache(t)

	calls := 0
	loader := func(ctx context.Context) ([]LowStockAlert, error) {
		calls++
		return []LowStockAlert{}, nil
	}

	_, err := cache.Fetch(context.Background(), loader)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(context.Background()))

	_, err = cache.Fetch(context.Background(), loader)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestAlertCacheRebuildsCorruptPayload(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set(alertCacheKey, "{not json"))

	loader := func(ctx context.Context) ([]LowStockAlert, error) {
		return []LowStockAlert{}, nil
	}
	got, err := cache.Fetch(context.Background(), loader)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestAlertCacheNilFallsThrough(t *testing.T) {
	var cache *AlertCache
	want := errors.New("loader hit")
	_, err := cache.Fetch(context.Background(), func(ctx context.Context) ([]LowStockAlert, error) {
		return nil, want
	})
	require.ErrorIs(t, err, want)
}
