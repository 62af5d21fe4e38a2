package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/xl-support/helpdesk/internal/events"
)

// NotificationService turns domain events into structured audit log lines.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, t := range []events.EventType{
		events.EventAccountCreated,
		events.EventUserLoggedIn,
		events.EventUserLoggedOut,
		events.EventUserUpdated,
	} {
		n.dispatcher.Subscribe(t, n.handleSessionEvent)
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
}

func (n *NotificationService) handleSessionEvent(_ context.Context, event events.Event) error {
	fields := append(actorFields(event), zap.Any("payload", event.Payload))
	n.logger.Info(string(event.Type), fields...)
	return nil
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	fields := actorFields(event)
	if payload, ok := event.Payload.(events.TicketCreatedPayload); ok {
		fields = append(fields,
			zap.Int64("ticket_id", payload.TicketID),
			zap.String("priority", string(payload.Priority)),
			zap.String("category", payload.Category),
		)
	}
	n.logger.Info(string(event.Type), fields...)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(_ context.Context, event events.Event) error {
	fields := actorFields(event)
	if payload, ok := event.Payload.(events.TicketStatusChangedPayload); ok {
		fields = append(fields,
			zap.Int64("ticket_id", payload.TicketID),
			zap.String("old_status", string(payload.OldStatus)),
			zap.String("new_status", string(payload.NewStatus)),
		)
	}
	n.logger.Info(string(event.Type), fields...)
	return nil
}

func (n *NotificationService) handleTicketAssigned(_ context.Context, event events.Event) error {
	fields := actorFields(event)
	if payload, ok := event.Payload.(events.TicketAssignedPayload); ok {
		fields = append(fields,
			zap.Int64("ticket_id", payload.TicketID),
			zap.Stringp("old_assignee", payload.OldAssignee),
			zap.Stringp("new_assignee", payload.NewAssignee),
		)
	}
	n.logger.Info(string(event.Type), fields...)
	return nil
}

func actorFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.Int64("actor_id", event.Actor.UserID),
		zap.String("actor_role", string(event.Actor.Role)),
		zap.Time("at", event.Timestamp),
	}
}
