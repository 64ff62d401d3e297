// Package memstore is an in-process implementation of the ticket, event and
// user repositories. It backs the service when no Postgres DSN is configured
// and serves as the store in tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/repository"
)

// Store holds tickets, events and users behind a single mutex so that
// ApplyTransition is an atomic compare-and-set.
type Store struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	order   []string
	events  []domain.TicketEvent
	users   map[string]*domain.User
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tickets: make(map[string]*domain.Ticket),
		users:   make(map[string]*domain.User),
	}
}

// Tickets exposes the store as a TicketRepository.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Events exposes the store as a TicketEventRepository.
func (s *Store) Events() repository.TicketEventRepository { return eventRepo{s} }

// Users exposes the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Put inserts or replaces a ticket verbatim.
func (s *Store) Put(ticket domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if _, exists := s.tickets[ticket.ID]; !exists {
		s.order = append(s.order, ticket.ID)
	}
	stored := cloneTicket(ticket)
	s.tickets[ticket.ID] = &stored
}

// Ticket returns a copy of the stored ticket.
func (s *Store) Ticket(id string) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return domain.Ticket{}, false
	}
	return cloneTicket(*t), true
}

// EventsFor returns the events recorded for a ticket in append order.
func (s *Store) EventsFor(ticketID string) []domain.TicketEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TicketEvent
	for _, event := range s.events {
		if event.TicketID == ticketID {
			out = append(out, event)
		}
	}
	return out
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	r.s.Put(*ticket)
	return nil
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Title = ticket.Title
	stored.Description = ticket.Description
	stored.Status = ticket.Status
	stored.AcknowledgedAt = cloneTime(ticket.AcknowledgedAt)
	stored.ResolvedAt = cloneTime(ticket.ResolvedAt)
	stored.UpdatedAt = time.Now()
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t, ok := r.s.Ticket(id)
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r ticketRepo) ListSLACandidates(_ context.Context, filter repository.SLACandidateFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.s.sortedLocked() {
		if filter.Matches(t) {
			out = append(out, cloneTicket(*t))
			if filter.Limit > 0 && len(out) == filter.Limit {
				break
			}
		}
	}
	return out, nil
}

func (r ticketRepo) ApplyTransition(_ context.Context, ticketID string, transition domain.SLATransition, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[ticketID]
	if !ok || !t.Status.IsOpen() || !t.DimensionActive(transition.Dimension) || t.TransitionApplied(transition) {
		return false, nil
	}
	t.RecordTransition(transition, at)
	t.UpdatedAt = at
	return true, nil
}

func (r ticketRepo) ListSLASnapshots(_ context.Context) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sorted := r.s.sortedLocked()
	out := make([]domain.Ticket, 0, len(sorted))
	for _, t := range sorted {
		out = append(out, cloneTicket(*t))
	}
	return out, nil
}

func (s *Store) sortedLocked() []*domain.Ticket {
	out := make([]*domain.Ticket, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tickets[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type eventRepo struct{ s *Store }

func (r eventRepo) Append(_ context.Context, event *domain.TicketEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	r.s.events = append(r.s.events, *event)
	return nil
}

func (r eventRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketEvent, error) {
	return r.s.EventsFor(ticketID), nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *user
	return &out, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			out := *user
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) ListByRole(_ context.Context, role domain.UserRole) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.User
	for _, user := range r.s.users {
		if user.Role == role && user.Active {
			out = append(out, *user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.AcknowledgedAt = cloneTime(t.AcknowledgedAt)
	t.ResolvedAt = cloneTime(t.ResolvedAt)
	t.SLAResponseDueAt = cloneTime(t.SLAResponseDueAt)
	t.SLAResolveDueAt = cloneTime(t.SLAResolveDueAt)
	t.ResponseWarnAt = cloneTime(t.ResponseWarnAt)
	t.ResolveWarnAt = cloneTime(t.ResolveWarnAt)
	return t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
