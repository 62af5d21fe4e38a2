// Package memrepo keeps users, tickets, user logs and ticket history in process memory. It
// backs the service when no Postgres DSN is configured and gives tests a
// store with the same uniqueness and ordering rules as the SQL schema.
package memrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xl-support/helpdesk/internal/domain"
	"github.com/xl-support/helpdesk/internal/repository"
)

// Store holds every table behind one lock.
type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	users   map[int64]domain.User
	emails  map[string]int64
	tickets map[int64]domain.Ticket
	logs    map[int64]domain.UserLog
	history map[int64]domain.TicketHistory
	nextID  map[string]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:     time.Now,
		users:   map[int64]domain.User{},
		emails:  map[string]int64{},
		tickets: map[int64]domain.Ticket{},
		logs:    map[int64]domain.UserLog{},
		history: map[int64]domain.TicketHistory{},
		nextID:  map[string]int64{},
	}
}

// NewWithClock returns an empty store that timestamps rows with now.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

// Users exposes the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Tickets exposes the store as a TicketRepository.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// UserLogs exposes the store as a UserLogRepository.
func (s *Store) UserLogs() repository.UserLogRepository { return userLogRepo{s} }

// TicketHistory exposes the store as a TicketHistoryRepository.
func (s *Store) TicketHistory() repository.TicketHistoryRepository { return historyRepo{s} }

func (s *Store) allocID(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.emails[user.Email]; taken {
		return fmt.Errorf("%w: users_email_key", repository.ErrDuplicate)
	}
	now := r.s.now()
	user.ID = r.s.allocID("users")
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = cloneUser(*user)
	r.s.emails[user.Email] = user.ID
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if owner, taken := r.s.emails[user.Email]; taken && owner != user.ID {
		return fmt.Errorf("%w: users_email_key", repository.ErrDuplicate)
	}
	delete(r.s.emails, existing.Email)
	r.s.emails[user.Email] = user.ID
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = cloneUser(*user)

	// tickets.created_by and assigned_to follow the email, mirroring
	// ON UPDATE CASCADE.
	if existing.Email != user.Email {
		for id, t := range r.s.tickets {
			if t.CreatedBy == existing.Email {
				t.CreatedBy = user.Email
			}
			if t.AssignedTo != nil && *t.AssignedTo == existing.Email {
				t.AssignedTo = cloneString(&user.Email)
			}
			r.s.tickets[id] = t
		}
	}
	return nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneUser(user)
	return &out, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.emails[email]
	r.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r userRepo) List(_ context.Context) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := make([]domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		return newerFirst(users[i].CreatedAt, users[j].CreatedAt, users[i].ID, users[j].ID)
	})
	return users, nil
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.emails[ticket.CreatedBy]; !ok {
		return fmt.Errorf("tickets.created_by references unknown user %q", ticket.CreatedBy)
	}
	if ticket.AssignedTo != nil {
		if _, ok := r.s.emails[*ticket.AssignedTo]; !ok {
			return fmt.Errorf("tickets.assigned_to references unknown user %q", *ticket.AssignedTo)
		}
	}
	ticket.ID = r.s.allocID("tickets")
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = r.s.now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	r.s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r ticketRepo) UpdateStatus(_ context.Context, id int64, from, to domain.TicketStatus) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok || ticket.Status != from {
		return nil, repository.ErrConflict
	}
	ticket.Status = to
	return r.store(ticket), nil
}

func (r ticketRepo) UpdateAssignee(_ context.Context, id int64, from, to *string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok || !sameString(ticket.AssignedTo, from) {
		return nil, repository.ErrConflict
	}
	if to != nil {
		if _, ok := r.s.emails[*to]; !ok {
			return nil, fmt.Errorf("tickets.assigned_to references unknown user %q", *to)
		}
	}
	ticket.AssignedTo = cloneString(to)
	return r.store(ticket), nil
}

// store saves ticket with a fresh updated_at. Callers hold the write lock.
func (r ticketRepo) store(ticket domain.Ticket) *domain.Ticket {
	ticket.UpdatedAt = r.s.now()
	r.s.tickets[ticket.ID] = ticket
	out := cloneTicket(ticket)
	return &out
}

func (r ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	statuses := map[domain.TicketStatus]bool{}
	for _, st := range filter.Statuses {
		statuses[st] = true
	}

	tickets := []domain.Ticket{}
	for _, t := range r.s.tickets {
		if filter.CreatedBy != nil && t.CreatedBy != *filter.CreatedBy {
			continue
		}
		if len(statuses) > 0 && !statuses[t.Status] {
			continue
		}
		tickets = append(tickets, cloneTicket(t))
	}
	sort.Slice(tickets, func(i, j int) bool {
		return newerFirst(tickets[i].CreatedAt, tickets[j].CreatedAt, tickets[i].ID, tickets[j].ID)
	})

	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		if offset >= len(tickets) {
			return []domain.Ticket{}, nil
		}
		end := offset + filter.Limit
		if end > len(tickets) {
			end = len(tickets)
		}
		tickets = tickets[offset:end]
	}
	return tickets, nil
}

type userLogRepo struct{ s *Store }

func (r userLogRepo) Create(_ context.Context, entry *domain.UserLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[entry.UserID]; !ok {
		return fmt.Errorf("user_logs.user_id references unknown user %d", entry.UserID)
	}
	entry.ID = r.s.allocID("user_logs")
	entry.CreatedAt = r.s.now()
	r.s.logs[entry.ID] = cloneLog(*entry)
	return nil
}

func (r userLogRepo) MarkSignedOut(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry, ok := r.s.logs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if entry.SignOutTime == nil {
		entry.SignOutTime = &at
		r.s.logs[id] = entry
	}
	return nil
}

func (r userLogRepo) List(_ context.Context) ([]domain.UserLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	logs := make([]domain.UserLog, 0, len(r.s.logs))
	for _, l := range r.s.logs {
		logs = append(logs, cloneLog(l))
	}
	sort.Slice(logs, func(i, j int) bool {
		return newerFirst(logs[i].CreatedAt, logs[j].CreatedAt, logs[i].ID, logs[j].ID)
	})
	return logs, nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[entry.TicketID]; !ok {
		return fmt.Errorf("ticket_history.ticket_id references unknown ticket %d", entry.TicketID)
	}
	if _, ok := r.s.users[entry.ChangedBy]; !ok {
		return fmt.Errorf("ticket_history.changed_by references unknown user %d", entry.ChangedBy)
	}
	entry.ID = r.s.allocID("ticket_history")
	entry.CreatedAt = r.s.now()
	stored := *entry
	stored.OldValue = cloneString(entry.OldValue)
	stored.NewValue = cloneString(entry.NewValue)
	r.s.history[entry.ID] = stored
	return nil
}

func (r historyRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.TicketHistory{}
	for _, h := range r.s.history {
		if h.TicketID != ticketID {
			continue
		}
		h.OldValue = cloneString(h.OldValue)
		h.NewValue = cloneString(h.NewValue)
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID)
	})
	return out, nil
}

func newerFirst(a, b time.Time, idA, idB int64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA > idB
}

func cloneUser(u domain.User) domain.User {
	u.Specialty = cloneString(u.Specialty)
	u.StaffID = cloneString(u.StaffID)
	return u
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.AssignedTo = cloneString(t.AssignedTo)
	return t
}

func cloneLog(l domain.UserLog) domain.UserLog {
	if l.SignOutTime != nil {
		at := *l.SignOutTime
		l.SignOutTime = &at
	}
	return l
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
