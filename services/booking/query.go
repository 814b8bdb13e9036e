package booking

import (
	"context"

	"rallyrent/utils"
)

// Get returns a booking to its owner.
func (m *Manager) Get(ctx context.Context, bookingID, email string) (*BookingView, error) {
	if email == "" {
		return nil, utils.Validation(utils.CodeInvalidRequest, "email is required")
	}
	booking, _, err := m.loadOwned(ctx, bookingID, email)
	if err != nil {
		return nil, err
	}
	v := m.view(booking)
	return &v, nil
}

// ListForCustomer returns the customer's bookings, latest first.
func (m *Manager) ListForCustomer(ctx context.Context, email string) ([]BookingView, error) {
	customer, err := m.customerByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	bookings, err := m.Scheduler.ListBookingsByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, utils.Persistence(utils.CodeStoreUnavailable, "could not load bookings", err)
	}
	views := make([]BookingView, 0, len(bookings))
	for i := range bookings {
		views = append(views, m.view(&bookings[i]))
	}
	return views, nil
}

// SessionsRemaining is the customer's usable balance.
func (m *Manager) SessionsRemaining(ctx context.Context, email string) (int, error) {
	customer, err := m.customerByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	return m.Ledger.AvailableSessions(ctx, customer.ID)
}
