package models

import (
	"fmt"
	"time"
)

// BookingStatus is the closed set of lifecycle states.
type BookingStatus string

const (
	BookingScheduled BookingStatus = "scheduled"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is one of the known states.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingScheduled, BookingCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled
}

// TransitionTo validates a lifecycle move. The only edge is
// scheduled -> cancelled; rescheduling keeps the status as is.
func (s BookingStatus) TransitionTo(next BookingStatus) (BookingStatus, error) {
	switch s {
	case BookingScheduled:
		if next == BookingCancelled {
			return next, nil
		}
	case BookingCancelled:
		// terminal
	default:
		return s, fmt.Errorf("unknown booking status %q", s)
	}
	return s, fmt.Errorf("invalid booking transition %s -> %s", s, next)
}

// BookingSource tells which producer created the booking.
type BookingSource string

const (
	SourceNative         BookingSource = "native"
	SourceExternalIntake BookingSource = "externalIntake"
)

// Booking represents one reserved session of the rental unit.
type Booking struct {
	ID              string        `bson:"id" json:"id"`
	CustomerID      string        `bson:"customerId" json:"customerId"`
	StartAt         time.Time     `bson:"startAt" json:"startAt"`     // absolute start instant (UTC)
	Date            string        `bson:"date" json:"date"`           // local date "YYYY-MM-DD"
	StartTime       string        `bson:"startTime" json:"startTime"` // local start "HH:MM"
	DurationHours   int           `bson:"durationHours" json:"durationHours"`
	Status          BookingStatus `bson:"status" json:"status"`
	ExternalEventID string        `bson:"externalEventId,omitempty" json:"externalEventId,omitempty"`
	Source          BookingSource `bson:"source" json:"source"`
	IntakeRef       string        `bson:"intakeRef,omitempty" json:"intakeRef,omitempty"`       // third-party event id
	OverlapsWith    []string      `bson:"overlapsWith,omitempty" json:"overlapsWith,omitempty"` // intake only; holds no cell claims when set
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt" json:"updatedAt"`
	CancelledAt     *time.Time    `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
}

// EndAt is the exclusive end of the booked interval.
func (b Booking) EndAt() time.Time {
	return b.StartAt.Add(time.Duration(b.DurationHours) * time.Hour)
}

// Interval returns the half-open busy interval the booking occupies.
func (b Booking) Interval() Interval {
	return Interval{Start: b.StartAt, End: b.EndAt()}
}
