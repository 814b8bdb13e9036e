package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rallyrent/handlers"
	"rallyrent/middleware"
	"rallyrent/routes"
	"rallyrent/services/availability"
	"rallyrent/services/booking"
	"rallyrent/services/calendar"
	"rallyrent/services/purchase"
	"rallyrent/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	if err := a.connectQueue(ctx, false); err != nil {
		return err
	}
	cache, err := utils.NewCacheClient(ctx, a.cfg)
	if err != nil {
		logger.Warn("Cache Redis unavailable, calendar busy periods will not be cached", zap.Error(err))
	} else {
		defer cache.Close()
	}

	gateway, err := buildCalendar(ctx, a, cache)
	if err != nil {
		return err
	}
	stripe.Key = a.cfg.StripeKey

	avail := availability.NewService(a.repos.Scheduler, gateway, a.tz, a.policy, nil, logger)
	manager, err := booking.NewManager(booking.Deps{
		Customers:    a.repos.Customers,
		Credits:      a.repos.Credits,
		Scheduler:    a.repos.Scheduler,
		Events:       a.repos.Events,
		Tx:           a.tx,
		Ledger:       a.ledger,
		Availability: avail,
		Calendar:     gateway,
		Notifier:     a.notifier,
		TZ:           a.tz,
		Policy:       a.policy,
		BaseURL:      a.cfg.BaseURL,
		ReminderLead: a.cfg.ReminderLead(),
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	purchases := purchase.NewProcessor(a.repos.Customers, a.repos.Events, a.tx, a.ledger, a.notifier,
		a.cfg.StripeWebhookSecret, a.cfg.CreditValidity(), logger)

	var redisClients []*redis.Client
	if cache != nil {
		redisClients = append(redisClients, cache)
	}
	if a.queueRedis != nil {
		redisClients = append(redisClients, a.queueRedis)
	}
	health := utils.NewHealthMonitor(a.mongo, redisClients...)
	health.Start(ctx, 30*time.Second)

	bookingHandler := handlers.NewBookingHandler(manager)
	webhookHandler := handlers.NewWebhookHandler(purchases, manager, a.cfg.IntakeWebhookToken)
	handlerBundle := &handlers.HandlerBundle{
		AdminSecret: []byte(a.cfg.JWTSecret),

		GetAvailabilityHandler:   handlers.NewAvailabilityHandler(avail).GetAvailabilityHandler,
		CreateBookingHandler:     bookingHandler.CreateBookingHandler,
		GetBookingHandler:        bookingHandler.GetBookingHandler,
		CancelBookingHandler:     bookingHandler.CancelBookingHandler,
		RescheduleBookingHandler: bookingHandler.RescheduleBookingHandler,
		SessionsHandler:          bookingHandler.SessionsHandler,

		StripeWebhookHandler: webhookHandler.StripeWebhookHandler,
		IntakeWebhookHandler: webhookHandler.IntakeWebhookHandler,

		AdminHandler: handlers.NewAdminHandler(a.adminService()),

		HealthHandler: handlers.HealthHandler(health),
	}

	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.Use(utils.ErrorHandler(logger))
	router.Use(middleware.RateLimitMiddleware(a.cfg.MaxRequestsPerMin))
	routes.RegisterRoutes(router, handlerBundle)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + a.cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Server is shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// buildCalendar returns the Google gateway wrapped in a timeout and, when
// a cache is available, a busy-period cache. Without credentials the
// calendar is disabled.
func buildCalendar(ctx context.Context, a *app, cache *redis.Client) (calendar.Gateway, error) {
	if a.cfg.GoogleCredentialsFile == "" || a.cfg.GoogleCalendarID == "" {
		a.logger.Warn("Google Calendar not configured, bookings will not be mirrored")
		return calendar.Disabled{}, nil
	}
	google, err := calendar.NewGoogleGateway(ctx, a.cfg.GoogleCredentialsFile, a.cfg.GoogleCalendarID, a.cfg.Timezone)
	if err != nil {
		return nil, err
	}
	var gateway calendar.Gateway = calendar.WithTimeout(google, a.cfg.CalendarTimeout())
	if cache != nil && a.cfg.CalendarCacheSeconds > 0 {
		gateway = calendar.NewCachedBusy(gateway, cache, a.cfg.CalendarCacheTTL(), a.logger)
	}
	return gateway, nil
}
