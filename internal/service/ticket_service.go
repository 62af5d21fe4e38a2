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

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// TicketCreateInput describes a ticket creation request. There is no status
// field: new tickets always start Open.
type TicketCreateInput struct {
	Subject     string `json:"subject" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Priority    string `json:"priority" validate:"required,oneof=low medium high"`
	Category    string `json:"category" validate:"max=100"`
	Type        string `json:"type" validate:"max=100"`
	CreatedBy   string `json:"createdBy" validate:"required,email"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateTicket validates and stores a new Open ticket.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, in TicketCreateInput) (*domain.Ticket, error) {
	in.Subject = trimmed(in.Subject)
	in.Description = trimmed(in.Description)
	in.Priority = trimmed(in.Priority)
	in.Category = trimmed(in.Category)
	in.Type = trimmed(in.Type)
	in.CreatedBy = trimmed(in.CreatedBy)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, in.CreatedBy); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewFieldValidationError(map[string]string{
				"createdBy": "must reference an existing user",
			})
		}
		return nil, apperrors.NewStoreError(err)
	}

	priority, _ := domain.ParseTicketPriority(in.Priority)
	ticket := &domain.Ticket{
		Subject:     in.Subject,
		Description: in.Description,
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		Category:    orDefault(in.Category, domain.DefaultTicketCategory),
		Type:        orDefault(in.Type, domain.DefaultTicketType),
		CreatedBy:   in.CreatedBy,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewStoreError(err)
	}

	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("created_by", ticket.CreatedBy),
		zap.String("priority", string(ticket.Priority)),
	)
	s.publish(ctx, events.EventTicketCreated, actor, events.TicketCreatedPayload{
		TicketID: ticket.ID,
		Subject:  ticket.Subject,
		Priority: ticket.Priority,
		Category: ticket.Category,
	})
	return ticket, nil
}

// Page bounds a listing. A zero Limit disables paging altogether.
type Page struct {
	Limit  int
	Offset int
}

// ListAllTickets returns every ticket, newest first.
func (s *TicketService) ListAllTickets(ctx context.Context, page Page) ([]domain.Ticket, error) {
	if page.Limit < 0 || page.Offset < 0 {
		return nil, apperrors.NewValidationError("limit and offset must not be negative", nil)
	}
	return s.list(ctx, repository.TicketFilter{Limit: page.Limit, Offset: page.Offset})
}

// ListTicketsByCreator returns the tickets created by email, newest first.
// Agents may only list their own tickets.
func (s *TicketService) ListTicketsByCreator(ctx context.Context, actor *domain.User, email string) ([]domain.Ticket, error) {
	email = trimmed(email)
	if err := s.authorizeCreatorScope(actor, email); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.TicketFilter{CreatedBy: &email})
}

// Stats aggregates tickets, optionally restricted to one creator. An empty
// createdBy covers every ticket.
func (s *TicketService) Stats(ctx context.Context, actor *domain.User, createdBy string) (domain.TicketStats, error) {
	createdBy = trimmed(createdBy)
	filter := repository.TicketFilter{}
	if createdBy != "" {
		if err := s.authorizeCreatorScope(actor, createdBy); err != nil {
			return domain.TicketStats{}, err
		}
		filter.CreatedBy = &createdBy
	}
	tickets, err := s.list(ctx, filter)
	if err != nil {
		return domain.TicketStats{}, err
	}
	return domain.ComputeStats(tickets), nil
}

// AdvanceStatus moves a ticket forward along Open, InProgress, Resolved.
func (s *TicketService) AdvanceStatus(ctx context.Context, actor *domain.User, id int64, status string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	next, err := domain.ParseTicketStatus(status)
	if err != nil {
		return nil, apperrors.NewFieldValidationError(map[string]string{
			"status": "must be one of: Open, InProgress, Resolved",
		})
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.NewStoreError(err)
	}
	if !domain.CanTransition(ticket.Status, next) {
		return nil, apperrors.NewConflict("status transition not allowed", map[string]any{
			"from": string(ticket.Status),
			"to":   string(next),
		})
	}

	previous := ticket.Status
	ticket, err = s.tickets.UpdateStatus(ctx, id, previous, next)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewConflict("ticket status changed concurrently", map[string]any{
				"from": string(previous),
				"to":   string(next),
			})
		}
		return nil, apperrors.NewStoreError(err)
	}
	oldValue, newValue := string(previous), string(next)
	if err := recordChange(ctx, s.history, actor, ticket.ID, domain.ChangeTypeStatus, &oldValue, &newValue); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketStatusChanged, actor, events.TicketStatusChangedPayload{
		TicketID:  ticket.ID,
		OldStatus: previous,
		NewStatus: next,
	})
	return ticket, nil
}

func (s *TicketService) authorizeCreatorScope(actor *domain.User, email string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if actor.IsAdmin() || actor.Email == email {
		return nil
	}
	return apperrors.NewForbidden("agents may only view their own tickets")
}

func (s *TicketService) list(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, actor *domain.User, payload any) {
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      eventType,
		Actor:     events.ActorFromUser(actor),
		Timestamp: s.now().UTC(),
		Payload:   payload,
	})
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
