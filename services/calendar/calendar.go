// Package calendar is the best-effort adapter to the external calendar that
// mirrors bookings and contributes busy periods to availability.
package calendar

import (
	"context"
	"time"

	"rallyrent/models"
)

// Event is the calendar-side view of a booking.
type Event struct {
	BookingID     string
	Summary       string
	Description   string
	Location      string
	AttendeeEmail string
	Start         time.Time
	End           time.Time
}

// Gateway is implemented by every calendar backend and decorator.
type Gateway interface {
	CreateEvent(ctx context.Context, ev Event) (string, error)
	UpdateEvent(ctx context.Context, eventID string, ev Event) error
	DeleteEvent(ctx context.Context, eventID string) error
	BusyPeriods(ctx context.Context, window models.Interval) ([]models.Interval, error)
}

// Disabled is used when no calendar credentials are configured. Writes
// produce no event id and the calendar is never busy.
type Disabled struct{}

func (Disabled) CreateEvent(context.Context, Event) (string, error) { return "", nil }

func (Disabled) UpdateEvent(context.Context, string, Event) error { return nil }

func (Disabled) DeleteEvent(context.Context, string) error { return nil }

func (Disabled) BusyPeriods(context.Context, models.Interval) ([]models.Interval, error) {
	return nil, nil
}

// EventForBooking builds the calendar entry for a booking.
func EventForBooking(b *models.Booking, email, name, pickup string) Event {
	summary := "Rental session"
	if name != "" {
		summary = "Rental session: " + name
	}
	return Event{
		BookingID:     b.ID,
		Summary:       summary,
		Description:   "Booking " + b.ID + " for " + email,
		Location:      pickup,
		AttendeeEmail: email,
		Start:         b.StartAt,
		End:           b.EndAt(),
	}
}
