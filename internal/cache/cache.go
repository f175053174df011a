// Package cache provides a Redis-backed, read-through cache for preloaded
// OHLCV bar series, so the grid-search optimizer's concurrent workers share
// one decoded series instead of each re-parsing or re-fetching it (§4.8
// step 2, "load the price series once and share it").
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/metrics"
)

// SeriesCache is the read-through cache contract; BarSeries loads stand
// behind this interface so optimizer/walk-forward code never imports
// go-redis directly.
type SeriesCache interface {
	GetSeries(ctx context.Context, key string) ([]domain.Bar, bool)
	SetSeries(ctx context.Context, key string, bars []domain.Bar, ttl time.Duration) error
}

// RedisSeriesCache is the Redis-backed SeriesCache.
type RedisSeriesCache struct {
	client  *redis.Client
	metrics *metrics.Registry
}

// New constructs a RedisSeriesCache against an already-configured client.
func New(client *redis.Client) *RedisSeriesCache {
	return &RedisSeriesCache{client: client}
}

// WithMetrics attaches a metrics.Registry that records hit/miss counts under
// the cache name "series".
func (c *RedisSeriesCache) WithMetrics(registry *metrics.Registry) *RedisSeriesCache {
	c.metrics = registry
	return c
}

// SeriesKey builds the cache key for one symbol's bar series over a date
// range, so different windows of the same symbol never collide.
func SeriesKey(symbol string, start, end time.Time) string {
	return fmt.Sprintf("series:%s:%s:%s", symbol, start.Format("20060102"), end.Format("20060102"))
}

// GetSeries returns the cached bars for key, or (nil, false) on a miss or
// any transport error — a cache is never allowed to turn a miss into a hard
// failure for its caller.
func (c *RedisSeriesCache) GetSeries(ctx context.Context, key string) ([]domain.Bar, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		c.recordMiss()
		return nil, false
	}
	var bars []domain.Bar
	if err := json.Unmarshal(raw, &bars); err != nil {
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	return bars, true
}

func (c *RedisSeriesCache) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit("series")
	}
}

func (c *RedisSeriesCache) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss("series")
	}
}

// SetSeries stores bars under key with the given TTL (0 means no expiry).
func (c *RedisSeriesCache) SetSeries(ctx context.Context, key string, bars []domain.Bar, ttl time.Duration) error {
	raw, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("marshal bar series: %w", err)
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

var _ SeriesCache = (*RedisSeriesCache)(nil)
