package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "InProgress"
	TicketStatusResolved   TicketStatus = "Resolved"
)

// TicketPriority enumerates ticket urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

const (
	DefaultTicketCategory = "General"
	DefaultTicketType     = "Support Request"
)

// ParseTicketStatus maps a wire value onto a TicketStatus, accepting the
// spaced legacy spelling.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	switch strings.TrimSpace(raw) {
	case string(TicketStatusOpen):
		return TicketStatusOpen, nil
	case string(TicketStatusInProgress), "In Progress":
		return TicketStatusInProgress, nil
	case string(TicketStatusResolved):
		return TicketStatusResolved, nil
	default:
		return "", fmt.Errorf("unknown ticket status %q", raw)
	}
}

// ParseTicketPriority maps a wire value onto a TicketPriority.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	switch TicketPriority(strings.TrimSpace(raw)) {
	case TicketPriorityLow:
		return TicketPriorityLow, nil
	case TicketPriorityMedium:
		return TicketPriorityMedium, nil
	case TicketPriorityHigh:
		return TicketPriorityHigh, nil
	default:
		return "", fmt.Errorf("unknown ticket priority %q", raw)
	}
}

// rank orders statuses along the workflow.
func (s TicketStatus) rank() int {
	switch s {
	case TicketStatusOpen:
		return 0
	case TicketStatusInProgress:
		return 1
	case TicketStatusResolved:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether a ticket may move from current to next.
// Statuses only move forward.
func CanTransition(current, next TicketStatus) bool {
	from, to := current.rank(), next.rank()
	if from < 0 || to < 0 {
		return false
	}
	return to > from
}

// Ticket is a unit of support work.
type Ticket struct {
	ID          int64
	Subject     string
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	Category    string
	Type        string
	CreatedBy   string
	AssignedTo  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TicketStats aggregates a ticket set for dashboards.
type TicketStats struct {
	TotalTickets     int
	SolvedTickets    int
	AwaitingApproval int
	InProgress       int
}

// ComputeStats counts tickets per workflow bucket.
func ComputeStats(tickets []Ticket) TicketStats {
	stats := TicketStats{TotalTickets: len(tickets)}
	for _, t := range tickets {
		switch t.Status {
		case TicketStatusOpen:
			stats.AwaitingApproval++
		case TicketStatusInProgress:
			stats.InProgress++
		case TicketStatusResolved:
			stats.SolvedTickets++
		}
	}
	return stats
}
