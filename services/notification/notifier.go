// Package notification hands lifecycle messages to a background queue and
// delivers them from the worker. Producers never wait on delivery.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rallyrent/models"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Notifier is what the booking and purchase flows call.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
	ScheduleReminder(ctx context.Context, n models.Notification, fireAt time.Time) error
}

// Enqueuer is the subset of *asynq.Client the notifier uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier turns notifications into asynq tasks.
type QueueNotifier struct {
	queue  Enqueuer
	logger *zap.Logger
}

func NewQueueNotifier(queue Enqueuer, logger *zap.Logger) *QueueNotifier {
	return &QueueNotifier{queue: queue, logger: logger}
}

func (q *QueueNotifier) Notify(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	task, opts, err := NewLifecycleTask(n)
	if err != nil {
		return err
	}
	return q.enqueue(ctx, task, opts, n)
}

// ScheduleReminder queues a reminder for fireAt. Reminders whose time has
// already passed are dropped.
func (q *QueueNotifier) ScheduleReminder(ctx context.Context, n models.Notification, fireAt time.Time) error {
	if !fireAt.After(time.Now()) {
		q.logger.Debug("Reminder time already passed, not scheduling", zap.String("bookingId", n.BookingID))
		return nil
	}
	n.Type = models.NotifyReminder
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	task, opts, err := NewReminderTask(n, fireAt)
	if err != nil {
		return err
	}
	return q.enqueue(ctx, task, opts, n)
}

func (q *QueueNotifier) enqueue(ctx context.Context, task *asynq.Task, opts []asynq.Option, n models.Notification) error {
	info, err := q.queue.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue %s notification: %w", n.Type, err)
	}
	q.logger.Debug("Queued notification",
		zap.String("type", string(n.Type)),
		zap.String("taskId", info.ID),
		zap.String("bookingId", n.BookingID))
	return nil
}

// Nop drops every notification. Commands that run without a queue use it.
type Nop struct{}

func (Nop) Notify(context.Context, models.Notification) error { return nil }

func (Nop) ScheduleReminder(context.Context, models.Notification, time.Time) error { return nil }
