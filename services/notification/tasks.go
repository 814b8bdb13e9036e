package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"rallyrent/models"

	"github.com/hibiken/asynq"
)

const (
	TypeLifecycle = "notify:lifecycle"
	TypeReminder  = "notify:reminder"
)

// NewLifecycleTask wraps a notification for immediate delivery. The task id
// is the notification id so a retried enqueue does not send twice.
func NewLifecycleTask(n models.Notification) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeLifecycle, b)
	opts := []asynq.Option{
		asynq.TaskID(n.ID),
		asynq.MaxRetry(5),
	}
	return task, opts, nil
}

// NewReminderTask schedules the reminder at fireAt. The id is derived from
// the booking and its start so a reschedule queues a fresh reminder and the
// stale one is discarded by the worker.
func NewReminderTask(n models.Notification, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID(ReminderTaskID(n.BookingID, n.StartAt)),
		asynq.MaxRetry(3),
	}
	return task, opts, nil
}

func ReminderTaskID(bookingID string, startAt time.Time) string {
	return fmt.Sprintf("reminder:%s:%d", bookingID, startAt.Unix())
}
