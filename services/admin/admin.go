// Package admin holds the operator actions shared by the admin API and the CLI.
package admin

import (
	"context"
	"fmt"
	"time"

	"rallyrent/database"
	"rallyrent/database/repository"
	"rallyrent/models"
	"rallyrent/services/credits"
	"rallyrent/services/notification"
	"rallyrent/services/timezone"
	"rallyrent/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminService is the operator surface.
type AdminService interface {
	AddBlock(ctx context.Context, in BlockInput, createdBy string) (*BlockResult, error)
	ListBlocks(ctx context.Context, fromDate, toDate string) ([]models.BlockedInterval, error)
	RemoveBlock(ctx context.Context, id string) error
	SetBusinessHours(ctx context.Context, hours models.BusinessHours) (*models.BusinessHours, error)
	GrantCredits(ctx context.Context, in GrantInput) (*models.SessionCredit, error)
	CustomerSummary(ctx context.Context, email string) (*CustomerSummary, error)
}

// BlockInput is a blocked window in local wall-clock terms. EndDate
// defaults to Date.
type BlockInput struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndDate   string `json:"endDate,omitempty"`
	EndTime   string `json:"endTime"`
	Reason    string `json:"reason,omitempty"`
}

// BlockResult carries the stored block and any scheduled bookings it
// overlaps. Those bookings are left alone for the operator to handle.
type BlockResult struct {
	Block     *models.BlockedInterval `json:"block"`
	Conflicts []models.Booking        `json:"conflicts"`
}

type GrantInput struct {
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	Sessions     int    `json:"sessions"`
	ValidityDays int    `json:"validityDays,omitempty"`
}

type CustomerSummary struct {
	Customer          *models.Customer       `json:"customer"`
	SessionsRemaining int                    `json:"sessionsRemaining"`
	Credits           []models.SessionCredit `json:"credits"`
	Bookings          []models.Booking       `json:"bookings"`
}

// DefaultAdminService is the production implementation.
type DefaultAdminService struct {
	Repos           repository.Repositories
	Tx              database.Transactor
	Ledger          *credits.Ledger
	Notifier        notification.Notifier
	TZ              *timezone.Converter
	DefaultValidity time.Duration
	Now             func() time.Time
	Logger          *zap.Logger
}

func (a *DefaultAdminService) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *DefaultAdminService) AddBlock(ctx context.Context, in BlockInput, createdBy string) (*BlockResult, error) {
	start, err := a.TZ.LocalToInstant(in.Date, in.StartTime)
	if err != nil {
		return nil, err
	}
	endDate := in.EndDate
	if endDate == "" {
		endDate = in.Date
	}
	end, err := a.TZ.LocalToInstant(endDate, in.EndTime)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, utils.Validation(utils.CodeInvalidRequest, "block must end after it starts")
	}

	block := &models.BlockedInterval{
		ID:        uuid.New().String(),
		Start:     start.UTC(),
		End:       end.UTC(),
		Reason:    in.Reason,
		CreatedBy: createdBy,
		CreatedAt: a.now().UTC(),
	}
	if err := a.Repos.Scheduler.CreateBlockedInterval(ctx, block); err != nil {
		return nil, utils.Persistence(utils.CodeStoreUnavailable, "could not save blocked interval", err)
	}

	conflicts, err := a.Repos.Scheduler.ScheduledBookingsOverlapping(ctx, block.Interval())
	if err != nil {
		a.Logger.Warn("Could not check bookings under new block", zap.String("blockId", block.ID), zap.Error(err))
	}
	if len(conflicts) > 0 {
		a.Logger.Warn("Blocked interval overlaps scheduled bookings",
			zap.String("blockId", block.ID), zap.Int("bookings", len(conflicts)))
	}
	a.Logger.Info("Blocked interval added",
		zap.String("blockId", block.ID), zap.Time("start", block.Start), zap.Time("end", block.End), zap.String("by", createdBy))
	return &BlockResult{Block: block, Conflicts: conflicts}, nil
}

// ListBlocks returns blocks touching the local date range. Empty bounds
// list everything.
func (a *DefaultAdminService) ListBlocks(ctx context.Context, fromDate, toDate string) ([]models.BlockedInterval, error) {
	var window models.Interval
	if fromDate != "" || toDate != "" {
		if fromDate == "" {
			fromDate = toDate
		}
		if toDate == "" {
			toDate = fromDate
		}
		from, _, err := a.TZ.DayBounds(fromDate)
		if err != nil {
			return nil, err
		}
		_, to, err := a.TZ.DayBounds(toDate)
		if err != nil {
			return nil, err
		}
		if to.Before(from) {
			return nil, utils.Validation(utils.CodeInvalidRequest, "range ends before it starts")
		}
		window = models.Interval{Start: from, End: to}
	}
	blocks, err := a.Repos.Scheduler.ListBlockedIntervals(ctx, window)
	if err != nil {
		return nil, utils.Persistence(utils.CodeStoreUnavailable, "could not list blocked intervals", err)
	}
	return blocks, nil
}

func (a *DefaultAdminService) RemoveBlock(ctx context.Context, id string) error {
	removed, err := a.Repos.Scheduler.RemoveBlockedInterval(ctx, id)
	if err != nil {
		return utils.Persistence(utils.CodeStoreUnavailable, "could not remove blocked interval", err)
	}
	if !removed {
		return utils.NotFound(utils.CodeBlockNotFound, "no blocked interval "+id)
	}
	a.Logger.Info("Blocked interval removed", zap.String("blockId", id))
	return nil
}

func (a *DefaultAdminService) SetBusinessHours(ctx context.Context, hours models.BusinessHours) (*models.BusinessHours, error) {
	if hours.DayOfWeek < 0 || hours.DayOfWeek > 6 {
		return nil, utils.Validation(utils.CodeInvalidRequest, fmt.Sprintf("dayOfWeek must be 0-6, got %d", hours.DayOfWeek))
	}
	if hours.IsAvailable {
		sh, sm, _, err := timezone.ParseClock(hours.Start)
		if err != nil {
			return nil, err
		}
		eh, em, _, err := timezone.ParseClock(hours.End)
		if err != nil {
			return nil, err
		}
		if eh*60+em <= sh*60+sm {
			return nil, utils.Validation(utils.CodeInvalidRequest, "business hours must end after they start")
		}
	}
	if err := a.Repos.Scheduler.UpsertBusinessHours(ctx, &hours); err != nil {
		return nil, utils.Persistence(utils.CodeStoreUnavailable, "could not save business hours", err)
	}
	a.Logger.Info("Business hours updated",
		zap.Int("dayOfWeek", hours.DayOfWeek), zap.String("start", hours.Start), zap.String("end", hours.End), zap.Bool("open", hours.IsAvailable))
	return &hours, nil
}

// GrantCredits adds a manual credit, creating the customer if needed.
func (a *DefaultAdminService) GrantCredits(ctx context.Context, in GrantInput) (*models.SessionCredit, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" {
		return nil, utils.Validation(utils.CodeInvalidRequest, "email is required")
	}
	validity := a.DefaultValidity
	if in.ValidityDays > 0 {
		validity = time.Duration(in.ValidityDays) * 24 * time.Hour
	}

	var customer *models.Customer
	var credit *models.SessionCredit
	err := a.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		customer, err = a.Repos.Customers.FindOrCreate(ctx, models.CustomerProfile{Email: email, Name: in.Name})
		if err != nil {
			return err
		}
		credit, err = a.Ledger.Grant(ctx, customer.ID, in.Sessions, validity, models.CreditSourceManual, "")
		return err
	})
	if err != nil {
		if appErr := utils.AsAppError(err); appErr.Kind == utils.KindValidation {
			return nil, appErr
		}
		return nil, utils.Persistence(utils.CodeStoreUnavailable, "could not grant credits", err)
	}

	remaining, err := a.Ledger.AvailableSessions(ctx, customer.ID)
	if err != nil {
		remaining = in.Sessions
	}
	if a.Notifier != nil {
		n := models.Notification{
			Type:              models.NotifyCreditsGranted,
			Email:             customer.Email,
			Name:              customer.Name,
			SessionsGranted:   in.Sessions,
			SessionsRemaining: remaining,
		}
		if err := a.Notifier.Notify(ctx, n); err != nil {
			a.Logger.Warn("Failed to queue credits notification", zap.String("customerId", customer.ID), zap.Error(err))
		}
	}
	return credit, nil
}

func (a *DefaultAdminService) CustomerSummary(ctx context.Context, email string) (*CustomerSummary, error) {
	email = models.NormalizeEmail(email)
	customer, err := a.Repos.Customers.GetByEmail(ctx, email)
	if err != nil {
		return nil, utils.Persistence(utils.CodeStoreUnavailable, "could not look up customer", err)
	}
	if customer == nil {
		return nil, utils.NotFound(utils.CodeCustomerNotFound, "no customer found for "+email)
	}
	credits, remaining, err := a.Ledger.Balance(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	bookings, err := a.Repos.Scheduler.ListBookingsByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, utils.Persistence(utils.CodeStoreUnavailable, "could not load bookings", err)
	}
	return &CustomerSummary{Customer: customer, SessionsRemaining: remaining, Credits: credits, Bookings: bookings}, nil
}
