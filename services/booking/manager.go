// Package booking moves sessions between the credit ledger, booking records
// and the external calendar for create, cancel, reschedule and intake.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rallyrent/config"
	"rallyrent/database"
	"rallyrent/database/repository"
	"rallyrent/models"
	"rallyrent/services/availability"
	"rallyrent/services/calendar"
	"rallyrent/services/credits"
	"rallyrent/services/notification"
	"rallyrent/services/timezone"
	"rallyrent/utils"

	"go.uber.org/zap"
)

// Deps are the collaborators a Manager is built from.
type Deps struct {
	Customers    repository.CustomerRepository
	Credits      repository.CreditRepository
	Scheduler    repository.SchedulerRepository
	Events       repository.EventRepository
	Tx           database.Transactor
	Ledger       *credits.Ledger
	Availability *availability.Service
	Calendar     calendar.Gateway
	Notifier     notification.Notifier
	TZ           *timezone.Converter
	Policy       config.Policy
	BaseURL      string
	ReminderLead time.Duration
	Now          func() time.Time
	Logger       *zap.Logger
}

// Manager implements LifecycleService.
type Manager struct {
	Deps
}

func NewManager(d Deps) (*Manager, error) {
	if d.Customers == nil || d.Credits == nil || d.Scheduler == nil || d.Events == nil ||
		d.Tx == nil || d.Ledger == nil || d.Availability == nil || d.TZ == nil {
		return nil, fmt.Errorf("booking manager initialization error: missing store or service dependency")
	}
	if d.Calendar == nil {
		d.Calendar = calendar.Disabled{}
	}
	if d.Notifier == nil {
		d.Notifier = notification.Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Manager{Deps: d}, nil
}

func (m *Manager) cellStep() time.Duration {
	return time.Duration(m.Policy.IncrementMinutes) * time.Minute
}

func (m *Manager) manageURL(bookingID, action string) string {
	base := strings.TrimRight(m.BaseURL, "/")
	if action == "" {
		return fmt.Sprintf("%s/bookings/%s", base, bookingID)
	}
	return fmt.Sprintf("%s/bookings/%s/%s", base, bookingID, action)
}

func (m *Manager) view(b *models.Booking) BookingView {
	_, end := m.TZ.LocalFields(b.EndAt())
	v := BookingView{
		ID:      b.ID,
		Date:    b.Date,
		Time:    b.StartTime,
		EndTime: end,
		Status:  b.Status,
		Source:  b.Source,
		Pickup:  m.Policy.PickupLocation,
	}
	if b.Status == models.BookingScheduled {
		v.CancelURL = m.manageURL(b.ID, "cancel")
		v.RescheduleURL = m.manageURL(b.ID, "reschedule")
	}
	return v
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

// customerByEmail resolves a customer or fails with CustomerNotFound.
func (m *Manager) customerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	email = models.NormalizeEmail(email)
	if !validEmail(email) {
		return nil, utils.Validation(utils.CodeInvalidRequest, "a valid email is required")
	}
	customer, err := m.Customers.GetByEmail(ctx, email)
	if err != nil {
		return nil, utils.Persistence(utils.CodeStoreUnavailable, "could not look up customer", err)
	}
	if customer == nil {
		return nil, utils.NotFound(utils.CodeCustomerNotFound, "no customer found for "+email)
	}
	return customer, nil
}

// loadOwned loads a booking and, when email is given, checks it belongs to
// that customer.
func (m *Manager) loadOwned(ctx context.Context, bookingID, email string) (*models.Booking, *models.Customer, error) {
	if bookingID == "" {
		return nil, nil, utils.Validation(utils.CodeInvalidRequest, "booking id is required")
	}
	booking, err := m.Scheduler.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, nil, utils.Persistence(utils.CodeStoreUnavailable, "could not load booking", err)
	}
	if booking == nil {
		return nil, nil, utils.NotFound(utils.CodeBookingNotFound, "booking not found")
	}
	customer, err := m.Customers.GetByID(ctx, booking.CustomerID)
	if err != nil {
		return nil, nil, utils.Persistence(utils.CodeStoreUnavailable, "could not load booking owner", err)
	}
	if email != "" && (customer == nil || !models.SameEmail(customer.Email, email)) {
		return nil, nil, utils.Validation(utils.CodeEmailMismatch, "email does not match the booking")
	}
	return booking, customer, nil
}

// checkNotice applies the past-booking and notice rules to a start instant.
func (m *Manager) checkNotice(start time.Time) error {
	now := m.Now()
	if start.Before(now) {
		return utils.PolicyViolation(utils.CodePastBooking, "this booking has already started")
	}
	if start.Before(now.Add(m.Policy.Notice)) {
		return utils.PolicyViolation(utils.CodeInsufficientNotice,
			fmt.Sprintf("changes need at least %d hours notice", int(m.Policy.Notice.Hours())))
	}
	return nil
}

// checkLeadTime rejects starts inside the lead-time window.
func (m *Manager) checkLeadTime(start time.Time) error {
	if start.Before(m.Now().Add(m.Policy.LeadTime)) {
		return utils.PolicyViolation(utils.CodeOutsideBookingWindow,
			fmt.Sprintf("sessions must be booked at least %d hours in advance", int(m.Policy.LeadTime.Hours())))
	}
	return nil
}

// checkFree is the non-authoritative pre-check run before any side effect.
// The cell claims inside the transaction are what actually decide.
func (m *Manager) checkFree(ctx context.Context, iv models.Interval, exclude string) error {
	conflicts, err := m.Availability.Conflicting(ctx, iv, exclude)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return utils.Conflict(utils.CodeSlotConflict, "that time is already booked")
	}
	blocks, err := m.Scheduler.ListBlockedIntervals(ctx, iv)
	if err != nil {
		return utils.Persistence(utils.CodeStoreUnavailable, "could not check blocked times", err)
	}
	if len(blocks) > 0 {
		return utils.Conflict(utils.CodeSlotConflict, "that time is unavailable")
	}
	return nil
}

// releaseAndRefund cancels the booking's claims and returns its session if
// it consumed one. Deleting the usage first makes the refund happen at most
// once. It must run inside a transaction.
func (m *Manager) releaseAndRefund(ctx context.Context, b *models.Booking) (bool, error) {
	if err := m.Scheduler.ReleaseCells(ctx, b.ID); err != nil {
		return false, err
	}
	usage, err := m.Credits.GetUsageByBooking(ctx, b.ID)
	if err != nil {
		return false, err
	}
	if usage == nil {
		return false, nil
	}
	deleted, err := m.Credits.DeleteUsage(ctx, b.ID)
	if err != nil || !deleted {
		return false, err
	}
	if err := m.Ledger.RefundOne(ctx, usage.Ref()); err != nil {
		return false, err
	}
	return true, nil
}

// persistError maps a failed booking transaction onto the caller-facing error.
func persistError(err error) error {
	switch {
	case errors.Is(err, repository.ErrSlotTaken):
		return utils.Conflict(utils.CodeSlotConflict, "that time is already booked")
	case utils.HasCode(err, utils.CodeInsufficientCredit):
		return utils.PolicyViolation(utils.CodeNoSessionsAvailable, "no sessions available")
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) && appErr.Kind != utils.KindPersistence {
		return appErr
	}
	return utils.Persistence(utils.CodeBookingPersistFailed, "could not save the booking", err)
}

func (m *Manager) notification(t models.NotificationType, b *models.Booking, c *models.Customer, remaining int) models.Notification {
	n := models.Notification{
		Type:              t,
		BookingID:         b.ID,
		Date:              b.Date,
		StartTime:         b.StartTime,
		StartAt:           b.StartAt,
		PickupLocation:    m.Policy.PickupLocation,
		SessionsRemaining: remaining,
		ManageURL:         m.manageURL(b.ID, ""),
		CreatedAt:         m.Now().UTC(),
	}
	if c != nil {
		n.Email = c.Email
		n.Name = c.Name
	}
	return n
}

// notify is best-effort; failures are logged and never returned.
func (m *Manager) notify(ctx context.Context, n models.Notification, remind bool) {
	if err := m.Notifier.Notify(ctx, n); err != nil {
		m.Logger.Warn("Failed to queue notification",
			zap.String("type", string(n.Type)), zap.String("bookingId", n.BookingID), zap.Error(err))
	}
	if remind && m.ReminderLead > 0 {
		if err := m.Notifier.ScheduleReminder(ctx, n, n.StartAt.Add(-m.ReminderLead)); err != nil {
			m.Logger.Warn("Failed to schedule reminder", zap.String("bookingId", n.BookingID), zap.Error(err))
		}
	}
}

func (m *Manager) remaining(ctx context.Context, customerID string, fallback int) int {
	n, err := m.Ledger.AvailableSessions(ctx, customerID)
	if err != nil {
		m.Logger.Warn("Could not re-read session balance", zap.String("customerId", customerID), zap.Error(err))
		return fallback
	}
	return n
}
