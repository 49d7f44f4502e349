package inventory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const alertCacheKey = "inventory:low_stock_alerts:v1"

// AlertCache wraps Redis caching for low-stock alert scans. A nil cache or
// client falls through to the loader.
type AlertCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAlertCache instantiates the cache helper.
func NewAlertCache(client *redis.Client, ttl time.Duration) *AlertCache {
	return &AlertCache{client: client, ttl: ttl}
}

// Fetch loads cached alerts or populates the cache using the loader.
func (c *AlertCache) Fetch(ctx context.Context, loader func(context.Context) ([]LowStockAlert, error)) ([]LowStockAlert, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	payload, err := c.client.Get(ctx, alertCacheKey).Bytes()
	if err == nil {
		var alerts []LowStockAlert
		if err := json.Unmarshal(payload, &alerts); err == nil {
			return alerts, nil
		}
		// Fall through and rebuild on a corrupt payload.
	} else if err != redis.Nil {
		return nil, err
	}

	alerts, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(alerts)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, alertCacheKey, raw, c.ttl).Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Invalidate drops the cached scan after a stock mutation.
func (c *AlertCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, alertCacheKey).Err()
}
