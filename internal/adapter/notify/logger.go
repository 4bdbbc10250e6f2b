package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// LoggingPublisher writes every event to the structured log
type LoggingPublisher struct {
	logger *zap.Logger
}

// NewLoggingPublisher creates an EventPublisher backed by logger
func NewLoggingPublisher(logger *zap.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(_ context.Context, events ...domain.Event) error {
	for _, e := range events {
		p.logger.Info("domain event",
			zap.String("event_name", e.EventName()),
			zap.String("event_id", e.EventID().String()),
			zap.Time("occurred_at", e.OccurredAt()),
			zap.Any("payload", e),
		)
	}
	return nil
}

// LoggerNotifier delivers notifications to the structured log
type LoggerNotifier struct {
	logger *zap.Logger
}

// NewLoggerNotifier creates a Notifier backed by logger
func NewLoggerNotifier(logger *zap.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

func (n *LoggerNotifier) Notify(_ context.Context, notification domain.Notification) error {
	n.logger.Info(notification.Subject,
		zap.String("kind", notification.Kind),
		zap.String("wallet_id", notification.WalletID.String()),
		zap.String("body", notification.Body),
	)
	return nil
}

// FanOut publishes to every publisher in order and returns the first error
type FanOut []domain.EventPublisher

func (f FanOut) Publish(ctx context.Context, events ...domain.Event) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, events...); err != nil && first == nil {
			first = err
		}
	}
	return first
}
