package booking

import (
	"context"
	"time"

	"rallyrent/models"
	"rallyrent/services/calendar"
	"rallyrent/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Create books one session for a customer who has a usable credit.
//
// The calendar event is created before the store transaction so its id can
// be saved with the booking; if the transaction fails the event is deleted
// again. Cell claims, the booking insert, the credit decrement and the usage
// record commit or abort together.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	customer, err := m.customerByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	available, err := m.Ledger.AvailableSessions(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	if available <= 0 {
		return nil, utils.PolicyViolation(utils.CodeNoSessionsAvailable, "no sessions available")
	}

	iv, err := m.Availability.CheckSlot(ctx, req.Date, req.StartTime)
	if err != nil {
		return nil, err
	}
	if err := m.checkLeadTime(iv.Start); err != nil {
		return nil, err
	}
	if err := m.checkFree(ctx, iv, ""); err != nil {
		return nil, err
	}

	now := m.Now().UTC()
	date, startTime := m.TZ.LocalFields(iv.Start)
	booking := &models.Booking{
		ID:            uuid.New().String(),
		CustomerID:    customer.ID,
		StartAt:       iv.Start.UTC(),
		Date:          date,
		StartTime:     startTime,
		DurationHours: m.Policy.DurationHours,
		Status:        models.BookingScheduled,
		Source:        models.SourceNative,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	eventID, err := m.Calendar.CreateEvent(ctx, calendar.EventForBooking(booking, customer.Email, customer.Name, m.Policy.PickupLocation))
	if err != nil {
		m.Logger.Warn("Calendar event creation failed, booking without it",
			zap.String("bookingId", booking.ID), zap.Error(err))
		eventID = ""
	}
	booking.ExternalEventID = eventID

	err = m.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := m.Scheduler.ClaimCells(ctx, booking.ID, models.Cells(booking.Interval(), m.cellStep())); err != nil {
			return err
		}
		if err := m.Scheduler.CreateBooking(ctx, booking); err != nil {
			return err
		}
		ref, err := m.Ledger.ConsumeOne(ctx, customer.ID)
		if err != nil {
			return err
		}
		return m.Credits.InsertUsage(ctx, &models.SessionUsage{
			ID:           uuid.New().String(),
			BookingID:    booking.ID,
			CreditID:     ref.CreditID,
			CustomerID:   customer.ID,
			SessionsUsed: 1,
			CreatedAt:    now,
		})
	})
	if err != nil {
		m.compensateCalendar(ctx, booking.ID, eventID)
		return nil, persistError(err)
	}

	remaining := m.remaining(ctx, customer.ID, available-1)
	m.Logger.Info("Booking created",
		zap.String("bookingId", booking.ID),
		zap.String("customerId", customer.ID),
		zap.String("date", booking.Date),
		zap.String("startTime", booking.StartTime),
		zap.Int("sessionsRemaining", remaining))

	m.notify(ctx, m.notification(models.NotifyBookingConfirmed, booking, customer, remaining), true)

	return &CreateResult{
		Booking:           booking,
		SessionsRemaining: remaining,
		CancelURL:         m.manageURL(booking.ID, "cancel"),
		RescheduleURL:     m.manageURL(booking.ID, "reschedule"),
	}, nil
}

// compensateCalendar removes an event whose booking never committed. It
// runs detached from the request so a cancelled request still cleans up.
func (m *Manager) compensateCalendar(ctx context.Context, bookingID, eventID string) {
	if eventID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := m.Calendar.DeleteEvent(ctx, eventID); err != nil {
		m.Logger.Error("Compensating calendar delete failed, orphaned event left behind",
			zap.String("bookingId", bookingID), zap.String("eventId", eventID), zap.Error(err))
		return
	}
	m.Logger.Info("Removed calendar event of failed booking", zap.String("bookingId", bookingID), zap.String("eventId", eventID))
}
