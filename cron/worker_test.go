package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func TestStartWithRetry(t *testing.T) {
	handler := asynq.NewServeMux()

	calls := 0
	flaky := func(asynq.Handler) error {
		calls++
		if calls < 3 {
			return errors.New("redis: connection refused")
		}
		return nil
	}
	if err := startWithRetry(context.Background(), flaky, handler, 5, time.Millisecond, zap.NewNop()); err != nil {
		t.Fatalf("startWithRetry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}

	calls = 0
	down := func(asynq.Handler) error {
		calls++
		return errors.New("redis: connection refused")
	}
	if err := startWithRetry(context.Background(), down, handler, 2, time.Millisecond, zap.NewNop()); err == nil {
		t.Fatal("expected failure after retries")
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = 0
	if err := startWithRetry(ctx, down, handler, 5, time.Hour, zap.NewNop()); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
