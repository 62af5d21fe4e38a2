package dto

import (
	"time"

	"github.com/xl-support/helpdesk/internal/domain"
	"github.com/xl-support/helpdesk/internal/service"
)

// CreateTicketRequest payload. Status and createdBy are accepted for client
// compatibility but ignored: tickets start Open and belong to the caller.
type CreateTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	CreatedBy   string `json:"createdBy"`
}

// ToInput converts the payload, attributing the ticket to creator.
func (r CreateTicketRequest) ToInput(creator string) service.TicketCreateInput {
	return service.TicketCreateInput{
		Subject:     r.Subject,
		Description: r.Description,
		Priority:    r.Priority,
		Category:    r.Category,
		Type:        r.Type,
		CreatedBy:   creator,
	}
}

// UpdateTicketStatusRequest payload.
type UpdateTicketStatusRequest struct {
	Status string `json:"status"`
}

// TicketResponse is the wire view of a ticket.
type TicketResponse struct {
	ID          int64                 `json:"id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Category    string                `json:"category"`
	Type        string                `json:"type"`
	CreatedBy   string                `json:"createdBy"`
	AssignedTo  *string               `json:"assignedTo"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		Subject:     t.Subject,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		Category:    t.Category,
		Type:        t.Type,
		CreatedBy:   t.CreatedBy,
		AssignedTo:  t.AssignedTo,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewTicketListResponse maps a listing; never nil so it encodes as [].
func NewTicketListResponse(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// TicketStatsResponse dashboard counters.
type TicketStatsResponse struct {
	TotalTickets     int `json:"totalTickets"`
	SolvedTickets    int `json:"solvedTickets"`
	AwaitingApproval int `json:"awaitingApproval"`
	InProgress       int `json:"inProgress"`
}

// NewTicketStatsResponse maps stats.
func NewTicketStatsResponse(s domain.TicketStats) TicketStatsResponse {
	return TicketStatsResponse(s)
}

// AssignTicketRequest payload. An empty or null assignedTo unassigns.
type AssignTicketRequest struct {
	AssignedTo *string `json:"assignedTo"`
}

// Assignee returns the requested assignee email, or "" to unassign.
func (r AssignTicketRequest) Assignee() string {
	if r.AssignedTo == nil {
		return ""
	}
	return *r.AssignedTo
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID         int64                   `json:"id"`
	TicketID   int64                   `json:"ticketId"`
	ChangedBy  int64                   `json:"changedBy"`
	ChangeType domain.TicketChangeType `json:"changeType"`
	OldValue   *string                 `json:"oldValue"`
	NewValue   *string                 `json:"newValue"`
	CreatedAt  time.Time               `json:"createdAt"`
}

// NewTicketHistoryListResponse maps a history listing; never nil.
func NewTicketHistoryListResponse(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, h := range entries {
		out = append(out, TicketHistoryResponse{
			ID:         h.ID,
			TicketID:   h.TicketID,
			ChangedBy:  h.ChangedBy,
			ChangeType: h.ChangeType,
			OldValue:   h.OldValue,
			NewValue:   h.NewValue,
			CreatedAt:  h.CreatedAt,
		})
	}
	return out
}
