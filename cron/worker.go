// Package cron runs the background worker that delivers queued
// notifications and scheduled reminders.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	maxStartAttempts   = 5
	redisCheckInterval = 10 * time.Second
)

// Worker wraps the asynq server and its broker health monitor.
type Worker struct {
	srv     *asynq.Server
	handler asynq.Handler
	redis   *redis.Client
	logger  *zap.Logger

	// startBackoff is the base delay between start attempts.
	startBackoff time.Duration
}

// NewWorker builds a worker serving handler from the queue at redisOpt.
// monitor may be nil.
func NewWorker(redisOpt asynq.RedisClientOpt, handler asynq.Handler, concurrency int, monitor *redis.Client, logger *zap.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 10
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error("Notification task failed",
				zap.String("type", task.Type()),
				zap.Int("retry", retried),
				zap.Int("maxRetry", maxRetry),
				zap.Error(err))
		}),
		Logger: newAsynqLogger(logger),
	})
	return &Worker{srv: srv, handler: handler, redis: monitor, logger: logger, startBackoff: 2 * time.Second}
}

// Run starts the server, retrying with backoff, and blocks until ctx is
// done. In-flight tasks are given the server's shutdown timeout to finish.
func (w *Worker) Run(ctx context.Context) error {
	if w.redis != nil {
		go w.monitorRedisConnection(ctx)
	}

	w.logger.Info("Starting notification worker")
	if err := startWithRetry(ctx, w.srv.Start, w.handler, maxStartAttempts, w.startBackoff, w.logger); err != nil {
		return err
	}

	<-ctx.Done()
	w.logger.Info("Notification worker shutting down")
	w.srv.Shutdown()
	return nil
}

// startWithRetry calls start until it succeeds, attempts run out or ctx ends.
func startWithRetry(ctx context.Context, start func(asynq.Handler) error, handler asynq.Handler, attempts int, backoff time.Duration, logger *zap.Logger) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = start(handler); err == nil {
			return nil
		}
		if errors.Is(err, asynq.ErrServerClosed) {
			return err
		}
		logger.Warn("Worker failed to start",
			zap.Int("attempt", attempt), zap.Int("maxAttempts", attempts), zap.Error(err))
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * backoff):
		}
	}
	return fmt.Errorf("worker did not start after %d attempts: %w", attempts, err)
}

// monitorRedisConnection pings the broker periodically to surface outages.
func (w *Worker) monitorRedisConnection(ctx context.Context) {
	ticker := time.NewTicker(redisCheckInterval)
	defer ticker.Stop()
	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := w.redis.Ping(ctx).Err()
			switch {
			case err != nil && healthy:
				w.logger.Warn("Queue Redis connection lost", zap.Error(err))
			case err == nil && !healthy:
				w.logger.Info("Queue Redis connection restored")
			}
			healthy = err == nil
		}
	}
}
