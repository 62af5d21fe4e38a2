package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xl-support/helpdesk/internal/events"
)

// publishEvent hands event to the dispatcher. Handler failures are logged and
// never fail the operation that raised the event.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
