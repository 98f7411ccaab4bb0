package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"quant-desk/internal/interfaces"
	"quant-desk/internal/types"
)

// CachingHistory decorates a HistorySource with Redis. A nil client
// bypasses the cache; cache failures never fail the lookup.
type CachingHistory struct {
	inner     interfaces.HistorySource
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ interfaces.HistorySource = (*CachingHistory)(nil)

// NewCachingHistory defaults ttl to 5 minutes and namespace to "history".
func NewCachingHistory(rdb *redis.Client, ttl time.Duration, inner interfaces.HistorySource, namespace string) *CachingHistory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "history"
	}
	return &CachingHistory{inner: inner, rdb: rdb, ttl: ttl, namespace: namespace}
}

func (c *CachingHistory) History(ctx context.Context, inst types.Instrument, points int) ([]types.PricePoint, error) {
	if c.rdb == nil {
		return c.inner.History(ctx, inst, points)
	}

	key := c.cacheKey(inst.Symbol, points)
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []types.PricePoint
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.History(ctx, inst, points)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return out, nil
}

func (c *CachingHistory) cacheKey(symbol string, points int) string {
	return fmt.Sprintf("%s:%s:%d", c.namespace, safe(symbol), points)
}

func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, ":", "_")
}

// FallbackHistory tries each source in order and returns the first success.
type FallbackHistory []interfaces.HistorySource

func (f FallbackHistory) History(ctx context.Context, inst types.Instrument, points int) ([]types.PricePoint, error) {
	var lastErr error
	for _, src := range f {
		out, err := src.History(ctx, inst, points)
		if err == nil && len(out) > 0 {
			return out, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no history for %s", inst.Symbol)
	}
	return nil, lastErr
}
