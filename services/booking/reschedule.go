package booking

import (
	"context"

	"rallyrent/models"
	"rallyrent/services/calendar"
	"rallyrent/utils"

	"go.uber.org/zap"
)

// Reschedule moves a scheduled booking in place. Status and credit
// consumption are untouched.
func (m *Manager) Reschedule(ctx context.Context, req RescheduleRequest) (*RescheduleResult, error) {
	booking, customer, err := m.loadOwned(ctx, req.BookingID, req.Email)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.BookingCancelled {
		return nil, utils.Conflict(utils.CodeCannotRescheduleCancelled, "a cancelled booking cannot be rescheduled")
	}
	if err := m.checkNotice(booking.StartAt); err != nil {
		return nil, err
	}

	iv, err := m.Availability.CheckSlot(ctx, req.NewDate, req.NewStartTime)
	if err != nil {
		return nil, err
	}
	if err := m.checkLeadTime(iv.Start); err != nil {
		return nil, err
	}
	if err := m.checkFree(ctx, iv, booking.ID); err != nil {
		return nil, err
	}

	now := m.Now().UTC()
	date, startTime := m.TZ.LocalFields(iv.Start)
	moved := *booking
	moved.StartAt = iv.Start.UTC()
	moved.Date = date
	moved.StartTime = startTime
	moved.UpdatedAt = now

	// The status guard on the update catches a cancel that committed after
	// the checks above; failing here rolls the cell claims back with it.
	err = m.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		ok, err := m.Scheduler.UpdateBookingStart(ctx, booking.ID, moved.StartAt, moved.Date, moved.StartTime, now)
		if err != nil {
			return err
		}
		if !ok {
			return utils.Conflict(utils.CodeCannotRescheduleCancelled, "a cancelled booking cannot be rescheduled")
		}
		if err := m.Scheduler.ReleaseCells(ctx, booking.ID); err != nil {
			return err
		}
		return m.Scheduler.ClaimCells(ctx, booking.ID, models.Cells(moved.Interval(), m.cellStep()))
	})
	if err != nil {
		return nil, persistError(err)
	}

	if moved.Source == models.SourceNative && moved.ExternalEventID != "" {
		ev := calendar.EventForBooking(&moved, customer.Email, customer.Name, m.Policy.PickupLocation)
		if err := m.Calendar.UpdateEvent(ctx, moved.ExternalEventID, ev); err != nil {
			m.Logger.Warn("Calendar event update failed after reschedule",
				zap.String("bookingId", moved.ID), zap.String("eventId", moved.ExternalEventID), zap.Error(err))
		}
	}

	m.Logger.Info("Booking rescheduled",
		zap.String("bookingId", moved.ID),
		zap.String("from", booking.Date+" "+booking.StartTime),
		zap.String("to", moved.Date+" "+moved.StartTime))

	remaining := m.remaining(ctx, moved.CustomerID, 0)
	m.notify(ctx, m.notification(models.NotifyBookingRescheduled, &moved, customer, remaining), true)

	return &RescheduleResult{
		Booking:       &moved,
		CancelURL:     m.manageURL(moved.ID, "cancel"),
		RescheduleURL: m.manageURL(moved.ID, "reschedule"),
	}, nil
}
