package events

import (
	"time"

	"github.com/xl-support/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountCreated      EventType = "account_created"
	EventUserLoggedIn        EventType = "user_logged_in"
	EventUserLoggedOut       EventType = "user_logged_out"
	EventUserUpdated         EventType = "user_updated"
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID int64       `json:"userId"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// ActorFromUser builds an Actor from a user record.
func ActorFromUser(u *domain.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID int64                 `json:"ticketId"`
	Subject  string                `json:"subject"`
	Priority domain.TicketPriority `json:"priority"`
	Category string                `json:"category"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketID  int64               `json:"ticketId"`
	OldStatus domain.TicketStatus `json:"oldStatus"`
	NewStatus domain.TicketStatus `json:"newStatus"`
}

// TicketAssignedPayload payload. Nil means unassigned.
type TicketAssignedPayload struct {
	TicketID    int64   `json:"ticketId"`
	OldAssignee *string `json:"oldAssignee"`
	NewAssignee *string `json:"newAssignee"`
}

// SessionPayload accompanies login, signup and logout events.
type SessionPayload struct {
	SessionID string `json:"sessionId"`
	LogID     int64  `json:"logId"`
	StaffID   string `json:"staffId"`
}

// UserUpdatedPayload lists the fields an admin changed. Values are never
// included so password changes leave no trace beyond the field name.
type UserUpdatedPayload struct {
	UserID int64    `json:"userId"`
	Fields []string `json:"fields"`
}
