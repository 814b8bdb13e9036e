package schedulerRepo

import (
	"context"
	"errors"
	"time"

	"rallyrent/models"
)

// ErrSlotTaken is returned when a cell is already claimed by another booking.
var ErrSlotTaken = errors.New("slot already claimed")

// SchedulerRepository owns everything that occupies the timeline: bookings,
// their cell claims, operator blocks and business-hours records.
type SchedulerRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error)
	GetBookingByIntakeRef(ctx context.Context, intakeRef string) (*models.Booking, error)
	ListBookingsByCustomer(ctx context.Context, customerID string) ([]models.Booking, error)
	ScheduledBookingsOverlapping(ctx context.Context, window models.Interval) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID string, from, to models.BookingStatus, at time.Time) (bool, error)
	UpdateBookingStart(ctx context.Context, bookingID string, startAt time.Time, date, startTime string, at time.Time) (bool, error)
	SetExternalEventID(ctx context.Context, bookingID, eventID string) error

	ClaimCells(ctx context.Context, bookingID string, cells []time.Time) error
	ReleaseCells(ctx context.Context, bookingID string) error

	CreateBlockedInterval(ctx context.Context, blocked *models.BlockedInterval) error
	ListBlockedIntervals(ctx context.Context, window models.Interval) ([]models.BlockedInterval, error)
	RemoveBlockedInterval(ctx context.Context, blockedID string) (bool, error)

	GetBusinessHours(ctx context.Context, dayOfWeek int) (*models.BusinessHours, error)
	UpsertBusinessHours(ctx context.Context, hours *models.BusinessHours) error
}
