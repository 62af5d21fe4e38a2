package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/xl-support/helpdesk/internal/domain"
)

// TicketFilter narrows ticket listings. Zero values match everything; a zero
// Limit means no limit.
type TicketFilter struct {
	CreatedBy *string
	Statuses  []domain.TicketStatus
	Limit     int
	Offset    int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// UpdateStatus moves the ticket from one status to another. It fails with
	// ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int64, from, to domain.TicketStatus) (*domain.Ticket, error)
	// UpdateAssignee swaps the assignee. It fails with ErrConflict when the
	// stored assignee is no longer from. Nil means unassigned.
	UpdateAssignee(ctx context.Context, id int64, from, to *string) (*domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DB) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, subject, description, priority, status, category, type, created_by, assigned_to, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (subject, description, priority, status, category, type, created_by, assigned_to, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
        RETURNING id, updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		string(ticket.Priority),
		string(ticket.Status),
		ticket.Category,
		ticket.Type,
		ticket.CreatedBy,
		ticket.AssignedTo,
		ticket.CreatedAt,
	).Scan(&ticket.ID, &ticket.UpdatedAt)
	return translateError(err)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.TicketStatus) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3
        RETURNING ` + ticketColumns
	return conditionalUpdate(scanTicket(r.db.QueryRow(ctx, query, string(to), id, string(from))))
}

func (r *ticketRepository) UpdateAssignee(ctx context.Context, id int64, from, to *string) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET assigned_to=$1, updated_at=NOW()
        WHERE id=$2 AND assigned_to IS NOT DISTINCT FROM $3
        RETURNING ` + ticketColumns
	return conditionalUpdate(scanTicket(r.db.QueryRow(ctx, query, to, id, from)))
}

// conditionalUpdate reports a guarded UPDATE that matched nothing as a
// conflict. Tickets are never deleted, so the row exists.
func conditionalUpdate(ticket *domain.Ticket, err error) (*domain.Ticket, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, ErrConflict
	}
	return ticket, err
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC`,
		ticketColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	tickets := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, translateError(rows.Err())
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		priority string
		status   string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.Description,
		&priority,
		&status,
		&ticket.Category,
		&ticket.Type,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, translateError(err)
	}
	var err error
	if ticket.Priority, err = domain.ParseTicketPriority(priority); err != nil {
		return nil, fmt.Errorf("ticket %d: %w", ticket.ID, err)
	}
	if ticket.Status, err = domain.ParseTicketStatus(status); err != nil {
		return nil, fmt.Errorf("ticket %d: %w", ticket.ID, err)
	}
	return &ticket, nil
}
