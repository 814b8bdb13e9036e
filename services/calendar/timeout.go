package calendar

import (
	"context"
	"time"

	"rallyrent/models"
)

type timeoutGateway struct {
	next    Gateway
	timeout time.Duration
}

// WithTimeout bounds every call on g so a stuck calendar cannot hold a
// booking operation.
func WithTimeout(g Gateway, d time.Duration) Gateway {
	return &timeoutGateway{next: g, timeout: d}
}

func (t *timeoutGateway) CreateEvent(ctx context.Context, ev Event) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.CreateEvent(ctx, ev)
}

func (t *timeoutGateway) UpdateEvent(ctx context.Context, eventID string, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.UpdateEvent(ctx, eventID, ev)
}

func (t *timeoutGateway) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DeleteEvent(ctx, eventID)
}

func (t *timeoutGateway) BusyPeriods(ctx context.Context, window models.Interval) ([]models.Interval, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.BusyPeriods(ctx, window)
}
