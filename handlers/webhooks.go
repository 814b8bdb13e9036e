package handlers

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"time"

	"rallyrent/services/booking"
	"rallyrent/services/purchase"
	"rallyrent/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 65536

// StripeProcessor verifies and applies Stripe events.
type StripeProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*purchase.Result, error)
}

// IntakeIngester applies third-party scheduling events.
type IntakeIngester interface {
	IngestIntake(ctx context.Context, ev booking.IntakeEvent) (*booking.IntakeResult, error)
}

type WebhookHandler struct {
	Purchases   StripeProcessor
	Intake      IntakeIngester
	IntakeToken string
}

func NewWebhookHandler(purchases StripeProcessor, intake IntakeIngester, intakeToken string) *WebhookHandler {
	return &WebhookHandler{Purchases: purchases, Intake: intake, IntakeToken: intakeToken}
}

// StripeWebhookHandler serves POST /api/webhooks/stripe. Store failures
// answer 5xx so Stripe redelivers.
func (h *WebhookHandler) StripeWebhookHandler(c *gin.Context) {
	logger := getLogger(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.JSONError(c, http.StatusRequestEntityTooLarge, utils.CodeInvalidRequest, "could not read webhook body")
		return
	}

	res, err := h.Purchases.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		utils.RespondError(c, logger, err)
		return
	}
	if res.Handled && !res.Duplicate {
		logger.Info("Stripe purchase applied", zap.String("eventId", res.EventID), zap.String("customerId", res.CustomerID))
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "handled": res.Handled, "duplicate": res.Duplicate})
}

type intakePayload struct {
	EventID   string     `json:"eventId" binding:"required"`
	Action    string     `json:"action" binding:"required"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Date      string     `json:"date"`
	StartTime string     `json:"startTime"`
	StartAt   *time.Time `json:"startAt"`
}

// IntakeWebhookHandler serves POST /api/webhooks/intake, authenticated by
// the shared X-Intake-Token header.
func (h *WebhookHandler) IntakeWebhookHandler(c *gin.Context) {
	logger := getLogger(c)

	if h.IntakeToken == "" {
		utils.RespondError(c, logger, utils.Unconfigured("intake webhook token is not configured"))
		return
	}
	token := c.GetHeader("X-Intake-Token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.IntakeToken)) != 1 {
		logger.Warn("Rejected intake webhook with bad token", zap.String("ip", c.ClientIP()))
		utils.JSONError(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid intake token")
		return
	}

	var body intakePayload
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.JSONError(c, http.StatusBadRequest, utils.CodeInvalidRequest, "eventId and action are required")
		return
	}
	ev := booking.IntakeEvent{
		EventID:   body.EventID,
		Action:    booking.IntakeAction(body.Action),
		Email:     body.Email,
		Name:      body.Name,
		Phone:     body.Phone,
		Date:      body.Date,
		StartTime: body.StartTime,
	}
	if body.StartAt != nil {
		ev.StartAt = *body.StartAt
	}

	res, err := h.Intake.IngestIntake(c.Request.Context(), ev)
	if err != nil {
		utils.RespondError(c, logger, err)
		return
	}

	resp := gin.H{"success": true, "duplicate": res.Duplicate, "creditConsumed": res.CreditConsumed}
	if res.Booking != nil {
		resp["bookingId"] = res.Booking.ID
		resp["status"] = res.Booking.Status
	}
	c.JSON(http.StatusOK, resp)
}
