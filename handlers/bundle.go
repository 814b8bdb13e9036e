package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers for route registration.
type HandlerBundle struct {
	// AdminSecret signs and verifies admin bearer tokens.
	AdminSecret []byte

	// Public endpoints
	GetAvailabilityHandler   gin.HandlerFunc
	CreateBookingHandler     gin.HandlerFunc
	GetBookingHandler        gin.HandlerFunc
	CancelBookingHandler     gin.HandlerFunc
	RescheduleBookingHandler gin.HandlerFunc
	SessionsHandler          gin.HandlerFunc

	// Webhooks
	StripeWebhookHandler gin.HandlerFunc
	IntakeWebhookHandler gin.HandlerFunc

	// Admin endpoints
	AdminHandler *AdminHandler

	HealthHandler gin.HandlerFunc
}
