package booking

import (
	"context"
	"time"

	"rallyrent/models"
)

// LifecycleService is the booking engine as the HTTP and webhook layers see it.
type LifecycleService interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)
	Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error)
	Reschedule(ctx context.Context, req RescheduleRequest) (*RescheduleResult, error)
	IngestIntake(ctx context.Context, ev IntakeEvent) (*IntakeResult, error)
	Get(ctx context.Context, bookingID, email string) (*BookingView, error)
	ListForCustomer(ctx context.Context, email string) ([]BookingView, error)
	SessionsRemaining(ctx context.Context, email string) (int, error)
}

type CreateRequest struct {
	Email     string
	Date      string
	StartTime string
}

type CreateResult struct {
	Booking           *models.Booking
	SessionsRemaining int
	CancelURL         string
	RescheduleURL     string
}

type CancelRequest struct {
	BookingID string
	Email     string // optional ownership check
}

type CancelResult struct {
	Booking           *models.Booking
	Refunded          bool
	SessionsRemaining int
}

type RescheduleRequest struct {
	BookingID    string
	NewDate      string
	NewStartTime string
	Email        string // optional ownership check
}

type RescheduleResult struct {
	Booking       *models.Booking
	CancelURL     string
	RescheduleURL string
}

// IntakeAction is what the third-party scheduler reports happened.
type IntakeAction string

const (
	IntakeCreated   IntakeAction = "created"
	IntakeCancelled IntakeAction = "cancelled"
)

// IntakeEvent is a booking made or cancelled through the third-party
// scheduler. Either StartAt or Date and StartTime locate the session.
type IntakeEvent struct {
	EventID   string
	Action    IntakeAction
	Email     string
	Name      string
	Phone     string
	Date      string
	StartTime string
	StartAt   time.Time
}

type IntakeResult struct {
	Booking        *models.Booking
	Duplicate      bool
	CreditConsumed bool
}

// BookingView is a booking as shown to its owner.
type BookingView struct {
	ID            string               `json:"id"`
	Date          string               `json:"date"`
	Time          string               `json:"time"`
	EndTime       string               `json:"endTime"`
	Status        models.BookingStatus `json:"status"`
	Source        models.BookingSource `json:"source"`
	Pickup        string               `json:"pickupLocation,omitempty"`
	CancelURL     string               `json:"cancelUrl,omitempty"`
	RescheduleURL string               `json:"rescheduleUrl,omitempty"`
}
