package notification

import (
	"context"

	"rallyrent/models"

	"go.uber.org/zap"
)

// Sender delivers a notification to the customer.
type Sender interface {
	Send(ctx context.Context, n models.Notification) error
}

// LogSender records each delivery as a structured log entry. Mail
// formatting and transport live outside this service.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, n models.Notification) error {
	s.logger.Info("Notification delivered",
		zap.String("type", string(n.Type)),
		zap.String("email", n.Email),
		zap.String("bookingId", n.BookingID),
		zap.String("date", n.Date),
		zap.String("startTime", n.StartTime),
		zap.String("pickup", n.PickupLocation),
		zap.Int("sessionsRemaining", n.SessionsRemaining),
		zap.Int("sessionsGranted", n.SessionsGranted),
		zap.String("manageUrl", n.ManageURL),
	)
	return nil
}
