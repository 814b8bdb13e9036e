package booking

import (
	"context"
	"fmt"

	"rallyrent/models"
	"rallyrent/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IntakeKey is the idempotency key of a third-party scheduling event.
func IntakeKey(eventID string, action IntakeAction) string {
	return fmt.Sprintf("intake:%s:%s", eventID, action)
}

// IngestIntake applies a booking made or cancelled in the third-party
// scheduler. Redelivered events are detected by their key and change nothing.
func (m *Manager) IngestIntake(ctx context.Context, ev IntakeEvent) (*IntakeResult, error) {
	if ev.EventID == "" {
		return nil, utils.Validation(utils.CodeInvalidRequest, "intake event id is required")
	}
	switch ev.Action {
	case IntakeCreated:
		return m.intakeCreated(ctx, ev)
	case IntakeCancelled:
		return m.intakeCancelled(ctx, ev)
	default:
		return nil, utils.Validation(utils.CodeInvalidRequest, fmt.Sprintf("unknown intake action %q", ev.Action))
	}
}

// intakeCreated records the booking with source externalIntake. The third
// party already took the booking, so neither an overlap nor a missing credit
// rejects it. An overlapping booking is stored without cell claims and
// flagged with the ids it overlaps. A session is drawn only when one is
// usable. The third party owns the calendar event.
func (m *Manager) intakeCreated(ctx context.Context, ev IntakeEvent) (*IntakeResult, error) {
	email := models.NormalizeEmail(ev.Email)
	if !validEmail(email) {
		return nil, utils.Validation(utils.CodeInvalidRequest, "a valid email is required")
	}
	start := ev.StartAt
	if start.IsZero() {
		var err error
		if start, err = m.TZ.LocalToInstant(ev.Date, ev.StartTime); err != nil {
			return nil, err
		}
	}
	date, startTime := m.TZ.LocalFields(start)

	now := m.Now().UTC()
	result := &IntakeResult{}
	var customer *models.Customer

	err := m.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		*result = IntakeResult{}
		fresh, err := m.Events.Claim(ctx, IntakeKey(ev.EventID, ev.Action), "intake")
		if err != nil {
			return err
		}
		if !fresh {
			result.Duplicate = true
			return nil
		}

		customer, err = m.Customers.FindOrCreate(ctx, models.CustomerProfile{Email: email, Name: ev.Name, Phone: ev.Phone})
		if err != nil {
			return err
		}

		booking := &models.Booking{
			ID:            uuid.New().String(),
			CustomerID:    customer.ID,
			StartAt:       start.UTC(),
			Date:          date,
			StartTime:     startTime,
			DurationHours: m.Policy.DurationHours,
			Status:        models.BookingScheduled,
			Source:        models.SourceExternalIntake,
			IntakeRef:     ev.EventID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		overlapping, err := m.Scheduler.ScheduledBookingsOverlapping(ctx, booking.Interval())
		if err != nil {
			return err
		}
		for _, other := range overlapping {
			booking.OverlapsWith = append(booking.OverlapsWith, other.ID)
		}
		// A claim without a visible booking belongs to a create still in
		// flight; its ErrSlotTaken fails this delivery and the retry sees
		// the committed booking as an overlap.
		if len(booking.OverlapsWith) == 0 {
			if err := m.Scheduler.ClaimCells(ctx, booking.ID, models.Cells(booking.Interval(), m.cellStep())); err != nil {
				return err
			}
		}
		if err := m.Scheduler.CreateBooking(ctx, booking); err != nil {
			return err
		}
		result.Booking = booking

		ref, err := m.Ledger.ConsumeOne(ctx, customer.ID)
		if utils.HasCode(err, utils.CodeInsufficientCredit) {
			return nil
		}
		if err != nil {
			return err
		}
		result.CreditConsumed = true
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
		return nil, persistError(err)
	}
	if result.Duplicate {
		m.Logger.Info("Duplicate intake event ignored", zap.String("eventId", ev.EventID), zap.String("action", string(ev.Action)))
		return result, nil
	}

	if len(result.Booking.OverlapsWith) > 0 {
		m.Logger.Warn("Intake booking overlaps existing bookings",
			zap.String("bookingId", result.Booking.ID), zap.Strings("overlapsWith", result.Booking.OverlapsWith))
	}
	if !result.CreditConsumed {
		m.Logger.Warn("Intake booking recorded without a session credit",
			zap.String("bookingId", result.Booking.ID), zap.String("customerId", customer.ID))
	}
	m.Logger.Info("Intake booking recorded",
		zap.String("bookingId", result.Booking.ID),
		zap.String("eventId", ev.EventID),
		zap.Bool("creditConsumed", result.CreditConsumed))

	remaining := m.remaining(ctx, customer.ID, 0)
	m.notify(ctx, m.notification(models.NotifyBookingConfirmed, result.Booking, customer, remaining), true)
	return result, nil
}

// intakeCancelled cancels the booking the third party created. The notice
// rule does not apply since the cancellation already happened upstream.
func (m *Manager) intakeCancelled(ctx context.Context, ev IntakeEvent) (*IntakeResult, error) {
	now := m.Now().UTC()
	result := &IntakeResult{}

	err := m.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		*result = IntakeResult{}
		fresh, err := m.Events.Claim(ctx, IntakeKey(ev.EventID, ev.Action), "intake")
		if err != nil {
			return err
		}
		if !fresh {
			result.Duplicate = true
			return nil
		}

		booking, err := m.Scheduler.GetBookingByIntakeRef(ctx, ev.EventID)
		if err != nil {
			return err
		}
		if booking == nil {
			return utils.NotFound(utils.CodeBookingNotFound, "no booking for intake event "+ev.EventID)
		}
		result.Booking = booking
		if booking.Status == models.BookingCancelled {
			return nil
		}

		ok, err := m.Scheduler.UpdateBookingStatus(ctx, booking.ID, models.BookingScheduled, models.BookingCancelled, now)
		if err != nil {
			return err
		}
		if !ok {
			booking.Status = models.BookingCancelled
			return nil
		}
		refunded, err := m.releaseAndRefund(ctx, booking)
		if err != nil {
			return err
		}
		result.CreditConsumed = refunded
		booking.Status = models.BookingCancelled
		booking.CancelledAt = &now
		return nil
	})
	if err != nil {
		if utils.HasCode(err, utils.CodeBookingNotFound) {
			return nil, err
		}
		return nil, persistError(err)
	}
	if result.Duplicate {
		m.Logger.Info("Duplicate intake event ignored", zap.String("eventId", ev.EventID), zap.String("action", string(ev.Action)))
		return result, nil
	}

	m.Logger.Info("Intake booking cancelled",
		zap.String("bookingId", result.Booking.ID), zap.Bool("refunded", result.CreditConsumed))

	customer, err := m.Customers.GetByID(ctx, result.Booking.CustomerID)
	if err != nil {
		m.Logger.Warn("Could not load customer for cancellation notice", zap.Error(err))
		return result, nil
	}
	remaining := m.remaining(ctx, result.Booking.CustomerID, 0)
	m.notify(ctx, m.notification(models.NotifyBookingCancelled, result.Booking, customer, remaining), false)
	return result, nil
}
