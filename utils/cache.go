// File: utils/cache.go
package utils

import (
	"context"
	"fmt"
	"time"

	"rallyrent/config"

	"github.com/go-redis/redis/v8"
)

// NewCacheClient connects the Redis client used for short-lived caches.
func NewCacheClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	return newRedisClient(ctx, cfg, cfg.RedisCacheDB)
}

// NewQueueRedisClient connects a client to the database the task queue uses,
// so health checks observe the broker the worker depends on.
func NewQueueRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	return newRedisClient(ctx, cfg, cfg.RedisQueueDB)
}

func newRedisClient(ctx context.Context, cfg *config.Config, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis db %d: %w", db, err)
	}
	return client, nil
}
