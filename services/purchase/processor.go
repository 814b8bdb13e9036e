// Package purchase turns completed Stripe checkouts into session credits.
package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rallyrent/database"
	"rallyrent/database/repository"
	"rallyrent/models"
	"rallyrent/services/credits"
	"rallyrent/services/notification"
	"rallyrent/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// Checkout metadata keys set on the Stripe payment link or session.
const (
	MetaSessions     = "sessions"
	MetaValidityDays = "validity_days"
)

// Result describes what a delivered event did.
type Result struct {
	EventID    string                `json:"eventId"`
	Handled    bool                  `json:"handled"`
	Duplicate  bool                  `json:"duplicate"`
	CustomerID string                `json:"customerId,omitempty"`
	Credit     *models.SessionCredit `json:"credit,omitempty"`
}

type Processor struct {
	customers       repository.CustomerRepository
	events          repository.EventRepository
	tx              database.Transactor
	ledger          *credits.Ledger
	notifier        notification.Notifier
	secret          string
	defaultValidity time.Duration
	logger          *zap.Logger
}

func NewProcessor(customers repository.CustomerRepository, events repository.EventRepository, tx database.Transactor,
	ledger *credits.Ledger, notifier notification.Notifier, secret string, defaultValidity time.Duration, logger *zap.Logger) *Processor {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &Processor{
		customers:       customers,
		events:          events,
		tx:              tx,
		ledger:          ledger,
		notifier:        notifier,
		secret:          secret,
		defaultValidity: defaultValidity,
		logger:          logger,
	}
}

// HandleWebhook verifies the Stripe-Signature header and processes the event.
func (p *Processor) HandleWebhook(ctx context.Context, payload []byte, signature string) (*Result, error) {
	if p.secret == "" {
		return nil, utils.Unconfigured("stripe webhook secret is not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		p.logger.Warn("Rejected stripe webhook", zap.Error(err))
		return nil, utils.Validation(utils.CodeInvalidSignature, "webhook signature verification failed")
	}
	return p.Process(ctx, event)
}

// Process applies a verified event. Only paid checkouts grant credits;
// every other event is acknowledged and ignored.
func (p *Processor) Process(ctx context.Context, event stripe.Event) (*Result, error) {
	result := &Result{EventID: event.ID}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
	default:
		p.logger.Debug("Ignoring stripe event", zap.String("eventId", event.ID), zap.String("type", string(event.Type)))
		return result, nil
	}
	if event.Data == nil {
		return nil, utils.Validation(utils.CodeInvalidRequest, "event has no data")
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, utils.Validation(utils.CodeInvalidRequest, fmt.Sprintf("could not decode checkout session: %v", err))
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		p.logger.Info("Checkout not paid yet, waiting for a later event",
			zap.String("eventId", event.ID), zap.String("session", session.ID), zap.String("paymentStatus", string(session.PaymentStatus)))
		return result, nil
	}

	profile, err := buyer(&session)
	if err != nil {
		return nil, err
	}
	sessions, validity, err := p.grantTerms(session.Metadata)
	if err != nil {
		return nil, err
	}

	var customer *models.Customer
	err = p.tx.WithTransaction(ctx, func(ctx context.Context) error {
		result.Duplicate, result.Credit, customer = false, nil, nil
		fresh, err := p.events.Claim(ctx, "stripe:"+event.ID, "stripe")
		if err != nil {
			return err
		}
		if fresh && session.ID != "" {
			// completed and async_payment_succeeded can both arrive paid
			// for one checkout.
			if fresh, err = p.events.Claim(ctx, "stripe-session:"+session.ID, "stripe"); err != nil {
				return err
			}
		}
		if !fresh {
			result.Duplicate = true
			return nil
		}
		customer, err = p.customers.FindOrCreate(ctx, profile)
		if err != nil {
			return err
		}
		result.Credit, err = p.ledger.Grant(ctx, customer.ID, sessions, validity, models.CreditSourcePurchase, session.ID)
		return err
	})
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) && appErr.Kind == utils.KindValidation {
			return nil, appErr
		}
		return nil, utils.Persistence(utils.CodeStoreUnavailable, "could not record purchase", err)
	}

	result.Handled = true
	if result.Duplicate {
		p.logger.Info("Duplicate stripe event ignored", zap.String("eventId", event.ID))
		return result, nil
	}
	result.CustomerID = customer.ID

	p.logger.Info("Purchase recorded",
		zap.String("eventId", event.ID),
		zap.String("checkoutSession", session.ID),
		zap.String("customerId", customer.ID),
		zap.Int("sessions", sessions))

	remaining, err := p.ledger.AvailableSessions(ctx, customer.ID)
	if err != nil {
		remaining = sessions
	}
	n := models.Notification{
		Type:              models.NotifyCreditsGranted,
		Email:             customer.Email,
		Name:              customer.Name,
		SessionsGranted:   sessions,
		SessionsRemaining: remaining,
	}
	if err := p.notifier.Notify(ctx, n); err != nil {
		p.logger.Warn("Failed to queue credits notification", zap.String("customerId", customer.ID), zap.Error(err))
	}
	return result, nil
}

func buyer(session *stripe.CheckoutSession) (models.CustomerProfile, error) {
	var profile models.CustomerProfile
	if d := session.CustomerDetails; d != nil {
		profile = models.CustomerProfile{Email: d.Email, Name: d.Name, Phone: d.Phone}
	}
	if profile.Email == "" {
		profile.Email = session.CustomerEmail
	}
	profile.Email = models.NormalizeEmail(profile.Email)
	if profile.Email == "" {
		return profile, utils.Validation(utils.CodeInvalidRequest, "checkout session has no customer email")
	}
	return profile, nil
}

func (p *Processor) grantTerms(meta map[string]string) (int, time.Duration, error) {
	raw := strings.TrimSpace(meta[MetaSessions])
	sessions, err := strconv.Atoi(raw)
	if err != nil || sessions <= 0 {
		return 0, 0, utils.Validation(utils.CodeInvalidRequest, fmt.Sprintf("checkout metadata %q must be a positive integer, got %q", MetaSessions, raw))
	}
	validity := p.defaultValidity
	if raw := strings.TrimSpace(meta[MetaValidityDays]); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			return 0, 0, utils.Validation(utils.CodeInvalidRequest, fmt.Sprintf("checkout metadata %q must be a positive integer, got %q", MetaValidityDays, raw))
		}
		validity = time.Duration(days) * 24 * time.Hour
	}
	return sessions, validity, nil
}
