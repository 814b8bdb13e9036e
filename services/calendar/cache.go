package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rallyrent/models"
	"rallyrent/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type cachedBusy struct {
	Gateway
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedBusy caches BusyPeriods answers in Redis for ttl. Cache failures
// fall through to g; writes are passed on untouched.
func NewCachedBusy(g Gateway, cache *redis.Client, ttl time.Duration, logger *zap.Logger) Gateway {
	return &cachedBusy{Gateway: g, cache: cache, ttl: ttl, logger: logger}
}

func busyKey(window models.Interval) string {
	return fmt.Sprintf("%s%d:%d", utils.BusyCachePrefix, window.Start.Unix(), window.End.Unix())
}

func (c *cachedBusy) BusyPeriods(ctx context.Context, window models.Interval) ([]models.Interval, error) {
	key := busyKey(window)

	data, err := c.cache.Get(ctx, key).Bytes()
	if err == nil {
		var busy []models.Interval
		if err := json.Unmarshal(data, &busy); err == nil {
			return busy, nil
		}
		c.logger.Warn("Discarding unreadable busy cache entry", zap.String("key", key))
	} else if err != redis.Nil {
		c.logger.Debug("Busy cache read failed", zap.String("key", key), zap.Error(err))
	}

	busy, err := c.Gateway.BusyPeriods(ctx, window)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(busy); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Debug("Busy cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return busy, nil
}
