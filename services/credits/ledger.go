// Package credits keeps per-customer session balances.
package credits

import (
	"context"
	"fmt"
	"time"

	"rallyrent/database/repository"
	"rallyrent/models"
	"rallyrent/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SelectionPolicy orders usable credits for consumption.
type SelectionPolicy func(credits []models.SessionCredit, now time.Time) []models.SessionCredit

// Ledger is the only writer of SessionCredit balances.
type Ledger struct {
	repo   repository.CreditRepository
	policy SelectionPolicy
	now    func() time.Time
	logger *zap.Logger
}

func NewLedger(repo repository.CreditRepository, now func() time.Time, logger *zap.Logger) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{repo: repo, policy: SelectFIFO, now: now, logger: logger}
}

// WithPolicy swaps the selection policy.
func (l *Ledger) WithPolicy(p SelectionPolicy) *Ledger {
	l.policy = p
	return l
}

// AvailableSessions sums sessionsRemaining over the customer's usable credits.
func (l *Ledger) AvailableSessions(ctx context.Context, customerID string) (int, error) {
	credits, err := l.repo.ListUsable(ctx, customerID, l.now())
	if err != nil {
		return 0, utils.Persistence(utils.CodeStoreUnavailable, "could not load session credits", err)
	}
	total := 0
	for _, c := range credits {
		if c.Usable(l.now()) {
			total += c.SessionsRemaining
		}
	}
	return total, nil
}

// ConsumeOne takes one session from the first credit the policy selects.
// A conditional decrement that matches nothing means a concurrent request
// drained that credit, so the next candidate is tried.
func (l *Ledger) ConsumeOne(ctx context.Context, customerID string) (models.CreditRef, error) {
	now := l.now()
	credits, err := l.repo.ListUsable(ctx, customerID, now)
	if err != nil {
		return models.CreditRef{}, utils.Persistence(utils.CodeStoreUnavailable, "could not load session credits", err)
	}

	for _, c := range l.policy(credits, now) {
		ok, err := l.repo.Decrement(ctx, c.ID, now)
		if err != nil {
			return models.CreditRef{}, utils.Persistence(utils.CodeStoreUnavailable, "could not consume a session", err)
		}
		if ok {
			return models.CreditRef{CreditID: c.ID, CustomerID: customerID}, nil
		}
		l.logger.Debug("Credit drained concurrently, trying next", zap.String("creditId", c.ID))
	}
	return models.CreditRef{}, utils.PolicyViolation(utils.CodeInsufficientCredit, "no usable session credit")
}

// RefundOne returns one session to the referenced credit. Callers make sure
// this runs at most once per booking.
func (l *Ledger) RefundOne(ctx context.Context, ref models.CreditRef) error {
	ok, err := l.repo.Increment(ctx, ref.CreditID)
	if err != nil {
		return utils.Persistence(utils.CodeStoreUnavailable, "could not refund session", err)
	}
	if !ok {
		l.logger.Warn("Refund skipped, credit already full or missing", zap.String("creditId", ref.CreditID))
	}
	return nil
}

// Grant creates a new credit for a customer.
func (l *Ledger) Grant(ctx context.Context, customerID string, sessions int, validity time.Duration, source models.CreditSource, purchaseRef string) (*models.SessionCredit, error) {
	if sessions <= 0 {
		return nil, utils.Validation(utils.CodeInvalidRequest, fmt.Sprintf("sessions must be positive, got %d", sessions))
	}
	if validity <= 0 {
		return nil, utils.Validation(utils.CodeInvalidRequest, "validity must be positive")
	}
	now := l.now().UTC()
	credit := &models.SessionCredit{
		ID:                uuid.New().String(),
		CustomerID:        customerID,
		SessionsRemaining: sessions,
		SessionsTotal:     sessions,
		ExpiresAt:         now.Add(validity),
		CreatedAt:         now,
		Source:            source,
		PurchaseRef:       purchaseRef,
	}
	if err := l.repo.Insert(ctx, credit); err != nil {
		return nil, utils.Persistence(utils.CodeStoreUnavailable, "could not save session credit", err)
	}
	l.logger.Info("Granted session credit",
		zap.String("customerId", customerID),
		zap.Int("sessions", sessions),
		zap.String("source", string(source)),
		zap.Time("expiresAt", credit.ExpiresAt))
	return credit, nil
}

// Balance lists every credit of the customer together with the usable total.
func (l *Ledger) Balance(ctx context.Context, customerID string) ([]models.SessionCredit, int, error) {
	credits, err := l.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, 0, utils.Persistence(utils.CodeStoreUnavailable, "could not load session credits", err)
	}
	now := l.now()
	total := 0
	for _, c := range credits {
		if c.Usable(now) {
			total += c.SessionsRemaining
		}
	}
	return credits, total, nil
}
