package routes

import (
	"time"

	"rallyrent/handlers"
	"rallyrent/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterPublicRoutes registers the customer-facing booking endpoints.
func RegisterPublicRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api")
	{
		api.GET("/availability", hb.GetAvailabilityHandler)
		api.GET("/customers/sessions", hb.SessionsHandler)

		api.POST("/bookings", hb.CreateBookingHandler)
		api.GET("/bookings/:id", hb.GetBookingHandler)
		api.POST("/bookings/:id/cancel", hb.CancelBookingHandler)
		api.POST("/bookings/:id/reschedule", hb.RescheduleBookingHandler)
	}
}

// RegisterWebhookRoutes registers inbound webhooks. Each authenticates
// itself: Stripe by signature, intake by shared token.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	hooks := r.Group("/api/webhooks")
	{
		hooks.POST("/stripe", hb.StripeWebhookHandler)
		hooks.POST("/intake", hb.IntakeWebhookHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.JWTAuthAdminMiddleware(hb.AdminSecret))
		adminGroup.GET("/blocks", hb.AdminHandler.ListBlocksHandler)
		adminGroup.POST("/blocks", hb.AdminHandler.AddBlockHandler)
		adminGroup.DELETE("/blocks/:id", hb.AdminHandler.RemoveBlockHandler)
		adminGroup.PUT("/business-hours/:day", hb.AdminHandler.SetBusinessHoursHandler)
		adminGroup.POST("/credits", hb.AdminHandler.GrantCreditsHandler)
		adminGroup.GET("/customers/:email", hb.AdminHandler.GetCustomerHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	RegisterHealthRoute(r, hb)
	RegisterPublicRoutes(r, hb)
	RegisterWebhookRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}
