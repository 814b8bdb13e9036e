package creditRepo

import (
	"context"
	"time"

	"rallyrent/models"
)

// CreditRepository stores session credits and the usages drawn from them.
// Decrement and Increment are conditional so sessionsRemaining can never
// leave [0, sessionsTotal].
type CreditRepository interface {
	Insert(ctx context.Context, credit *models.SessionCredit) error
	ListUsable(ctx context.Context, customerID string, now time.Time) ([]models.SessionCredit, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.SessionCredit, error)
	Decrement(ctx context.Context, creditID string, now time.Time) (bool, error)
	Increment(ctx context.Context, creditID string) (bool, error)

	InsertUsage(ctx context.Context, usage *models.SessionUsage) error
	GetUsageByBooking(ctx context.Context, bookingID string) (*models.SessionUsage, error)
	DeleteUsage(ctx context.Context, bookingID string) (bool, error)
}
