package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"rallyrent/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// BookingLookup lets the reminder handler re-read the booking it refers to.
type BookingLookup interface {
	GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error)
}

// Processor handles queued notification tasks on the worker side.
type Processor struct {
	sender   Sender
	bookings BookingLookup
	logger   *zap.Logger
}

func NewProcessor(sender Sender, bookings BookingLookup, logger *zap.Logger) *Processor {
	return &Processor{sender: sender, bookings: bookings, logger: logger}
}

// Mux routes task types to their handlers.
func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeLifecycle, p.HandleLifecycle)
	mux.HandleFunc(TypeReminder, p.HandleReminder)
	return mux
}

func decode(task *asynq.Task) (models.Notification, error) {
	var n models.Notification
	if err := json.Unmarshal(task.Payload(), &n); err != nil {
		return n, fmt.Errorf("invalid %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return n, nil
}

func (p *Processor) HandleLifecycle(ctx context.Context, task *asynq.Task) error {
	n, err := decode(task)
	if err != nil {
		p.logger.Error("Dropping notification", zap.Error(err))
		return err
	}
	if err := p.sender.Send(ctx, n); err != nil {
		p.logger.Warn("Notification delivery failed", zap.String("type", string(n.Type)), zap.Error(err))
		return err
	}
	return nil
}

// HandleReminder sends the reminder only if the booking is still scheduled
// at the start the reminder was queued for.
func (p *Processor) HandleReminder(ctx context.Context, task *asynq.Task) error {
	n, err := decode(task)
	if err != nil {
		p.logger.Error("Dropping reminder", zap.Error(err))
		return err
	}

	booking, err := p.bookings.GetBookingByID(ctx, n.BookingID)
	if err != nil {
		return fmt.Errorf("reminder lookup for booking %s: %w", n.BookingID, err)
	}
	switch {
	case booking == nil:
		p.logger.Info("Reminder skipped, booking gone", zap.String("bookingId", n.BookingID))
		return nil
	case booking.Status != models.BookingScheduled:
		p.logger.Info("Reminder skipped, booking cancelled", zap.String("bookingId", n.BookingID))
		return nil
	case !booking.StartAt.Equal(n.StartAt):
		p.logger.Info("Reminder skipped, booking moved", zap.String("bookingId", n.BookingID))
		return nil
	}

	if err := p.sender.Send(ctx, n); err != nil {
		p.logger.Warn("Reminder delivery failed", zap.String("bookingId", n.BookingID), zap.Error(err))
		return err
	}
	return nil
}
