package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xl-support/helpdesk/internal/domain"
	"github.com/xl-support/helpdesk/internal/events"
	"github.com/xl-support/helpdesk/internal/repository"
	apperrors "github.com/xl-support/helpdesk/pkg/util/errorutil"
)

// AssignmentService handles ticket assignment and the audit trail it leaves.
type AssignmentService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// SelfAssignTicket lets any signed-in user claim an unassigned ticket.
func (s *AssignmentService) SelfAssignTicket(ctx context.Context, actor *domain.User, ticketID int64) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AssignedTo != nil && *ticket.AssignedTo != actor.Email {
		return nil, apperrors.NewConflict("ticket already assigned", map[string]any{
			"assignedTo": *ticket.AssignedTo,
		})
	}
	return s.assign(ctx, actor, ticket, &actor.Email)
}

// AssignTicket sets or clears a ticket's assignee. An empty assignee
// unassigns. Admin only.
func (s *AssignmentService) AssignTicket(ctx context.Context, actor *domain.User, ticketID int64, assignee string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	assignee = trimmed(assignee)
	var target *string
	if assignee != "" {
		if err := validate.Var(assignee, "email"); err != nil {
			return nil, apperrors.NewFieldValidationError(map[string]string{"assignedTo": "must be a valid email address"})
		}
		if _, err := s.users.GetByEmail(ctx, assignee); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewFieldValidationError(map[string]string{"assignedTo": "must reference an existing user"})
			}
			return nil, apperrors.NewStoreError(err)
		}
		target = &assignee
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.assign(ctx, actor, ticket, target)
}

// History returns a ticket's audit trail, oldest first. Admin only.
func (s *AssignmentService) History(ctx context.Context, actor *domain.User, ticketID int64) ([]domain.TicketHistory, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if _, err := s.loadTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	if entries == nil {
		entries = []domain.TicketHistory{}
	}
	return entries, nil
}

func (s *AssignmentService) assign(ctx context.Context, actor *domain.User, ticket *domain.Ticket, assignee *string) (*domain.Ticket, error) {
	old := ticket.AssignedTo
	if sameAssignee(old, assignee) {
		return ticket, nil
	}
	updated, err := s.tickets.UpdateAssignee(ctx, ticket.ID, old, assignee)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewConflict("ticket assignment changed concurrently", map[string]any{
				"ticketId": ticket.ID,
			})
		}
		return nil, apperrors.NewStoreError(err)
	}
	ticket = updated
	if err := recordChange(ctx, s.history, actor, ticket.ID, domain.ChangeTypeAssignee, old, assignee); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketAssigned,
		Actor:     events.ActorFromUser(actor),
		Timestamp: s.now().UTC(),
		Payload: events.TicketAssignedPayload{
			TicketID:    ticket.ID,
			OldAssignee: old,
			NewAssignee: assignee,
		},
	})
	return ticket, nil
}

func (s *AssignmentService) loadTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.NewStoreError(err)
	}
	return ticket, nil
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// recordChange appends a history row. A nil repository disables the trail.
func recordChange(ctx context.Context, repo repository.TicketHistoryRepository, actor *domain.User, ticketID int64, change domain.TicketChangeType, oldValue, newValue *string) error {
	if repo == nil || actor == nil {
		return nil
	}
	err := repo.Create(ctx, &domain.TicketHistory{
		TicketID:   ticketID,
		ChangedBy:  actor.ID,
		ChangeType: change,
		OldValue:   oldValue,
		NewValue:   newValue,
	})
	if err != nil {
		return apperrors.NewStoreError(err)
	}
	return nil
}
