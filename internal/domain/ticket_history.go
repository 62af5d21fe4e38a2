package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus   TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee TicketChangeType = "ASSIGNEE_CHANGE"
)

// TicketHistory is an immutable audit trail entry. A nil value means the
// field was empty on that side of the change.
type TicketHistory struct {
	ID         int64
	TicketID   int64
	ChangedBy  int64
	ChangeType TicketChangeType
	OldValue   *string
	NewValue   *string
	CreatedAt  time.Time
}
