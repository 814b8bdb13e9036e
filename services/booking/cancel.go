package booking

import (
	"context"

	"rallyrent/models"
	"rallyrent/utils"

	"go.uber.org/zap"
)

// Cancel cancels a scheduled booking that is far enough away and refunds
// the session it consumed.
func (m *Manager) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	booking, customer, err := m.loadOwned(ctx, req.BookingID, req.Email)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.BookingCancelled {
		return nil, utils.Conflict(utils.CodeAlreadyCancelled, "booking is already cancelled")
	}
	if err := m.checkNotice(booking.StartAt); err != nil {
		return nil, err
	}

	refunded, err := m.cancelInStore(ctx, booking)
	if err != nil {
		return nil, err
	}

	if booking.Source == models.SourceNative && booking.ExternalEventID != "" {
		if err := m.Calendar.DeleteEvent(ctx, booking.ExternalEventID); err != nil {
			m.Logger.Warn("Calendar event delete failed after cancel",
				zap.String("bookingId", booking.ID), zap.String("eventId", booking.ExternalEventID), zap.Error(err))
		}
	}

	remaining := m.remaining(ctx, booking.CustomerID, 0)
	m.Logger.Info("Booking cancelled",
		zap.String("bookingId", booking.ID),
		zap.Bool("refunded", refunded),
		zap.Int("sessionsRemaining", remaining))

	m.notify(ctx, m.notification(models.NotifyBookingCancelled, booking, customer, remaining), false)

	return &CancelResult{Booking: booking, Refunded: refunded, SessionsRemaining: remaining}, nil
}

// cancelInStore flips the status, frees the cells and refunds in one
// transaction. booking is updated to reflect the committed state.
func (m *Manager) cancelInStore(ctx context.Context, booking *models.Booking) (bool, error) {
	next, err := booking.Status.TransitionTo(models.BookingCancelled)
	if err != nil {
		return false, utils.Conflict(utils.CodeAlreadyCancelled, err.Error())
	}

	now := m.Now().UTC()
	var refunded bool
	err = m.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		ok, err := m.Scheduler.UpdateBookingStatus(ctx, booking.ID, booking.Status, next, now)
		if err != nil {
			return err
		}
		if !ok {
			return utils.Conflict(utils.CodeAlreadyCancelled, "booking is already cancelled")
		}
		refunded, err = m.releaseAndRefund(ctx, booking)
		return err
	})
	if err != nil {
		if utils.HasCode(err, utils.CodeAlreadyCancelled) {
			return false, err
		}
		return false, utils.Persistence(utils.CodeStoreUnavailable, "could not cancel the booking", err)
	}

	booking.Status = next
	booking.UpdatedAt = now
	booking.CancelledAt = &now
	return refunded, nil
}
