package models

import "time"

// NotificationType names the lifecycle event a notification describes.
type NotificationType string

const (
	NotifyBookingConfirmed   NotificationType = "booking_confirmed"
	NotifyBookingCancelled   NotificationType = "booking_cancelled"
	NotifyBookingRescheduled NotificationType = "booking_rescheduled"
	NotifyCreditsGranted     NotificationType = "credits_granted"
	NotifyReminder           NotificationType = "booking_reminder"
)

// Notification is the payload handed to the queue and then to a sender.
type Notification struct {
	ID                string           `json:"id"`
	Type              NotificationType `json:"type"`
	Email             string           `json:"email"`
	Name              string           `json:"name,omitempty"`
	BookingID         string           `json:"bookingId,omitempty"`
	Date              string           `json:"date,omitempty"`
	StartTime         string           `json:"startTime,omitempty"`
	StartAt           time.Time        `json:"startAt,omitempty"`
	PickupLocation    string           `json:"pickupLocation,omitempty"`
	SessionsRemaining int              `json:"sessionsRemaining"`
	SessionsGranted   int              `json:"sessionsGranted,omitempty"`
	ManageURL         string           `json:"manageUrl,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
}
