package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/events"
	"github.com/spec-kit/maintenance-sla/internal/repository"
	"github.com/spec-kit/maintenance-sla/internal/sla"
	apperrors "github.com/spec-kit/maintenance-sla/pkg/util/errorutil"
)

// TicketService coordinates the ticket workflow steps that start and stop SLA clocks.
type TicketService struct {
	tickets    repository.TicketRepository
	events     repository.TicketEventRepository
	policy     *sla.Policy
	dispatcher events.Dispatcher
	clock      clockwork.Clock
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	EventRepo  repository.TicketEventRepository
	Policy     *sla.Policy
	Dispatcher events.Dispatcher
	Clock      clockwork.Clock
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		events:     deps.EventRepo,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
}

// CreateTicket stores a new ticket with both SLA deadlines stamped from its priority.
func (s *TicketService) CreateTicket(ctx context.Context, requesterID string, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	priority := domain.TicketPriority(strings.ToUpper(string(input.Priority)))
	if priority == "" {
		priority = domain.TicketPriorityP3
	}

	now := s.clock.Now()
	responseDue, resolveDue, err := s.policy.DueDates(priority, now)
	if err != nil {
		if errors.Is(err, sla.ErrInvalidPriority) {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
		}
		return nil, err
	}

	ticket := &domain.Ticket{
		Code:             generateTicketCode(),
		RequesterID:      requesterID,
		Title:            title,
		Description:      strings.TrimSpace(input.Description),
		Status:           domain.TicketStatusNew,
		Priority:         priority,
		CreatedAt:        now,
		SLAResponseDueAt: &responseDue,
		SLAResolveDueAt:  &resolveDue,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, ticket.ID, domain.TicketEventCreated, "Ticket created", requesterID)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    userActor(requesterID),
		Payload: events.TicketCreatedPayload{
			Priority:      ticket.Priority,
			Title:         ticket.Title,
			ResponseDueAt: responseDue,
			ResolveDueAt:  resolveDue,
		},
	})
	return ticket, nil
}

// GetTicket loads a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}
	return ticket, nil
}

// ListEvents returns the audit trail of a ticket, oldest first.
func (s *TicketService) ListEvents(ctx context.Context, id string) ([]domain.TicketEvent, error) {
	if _, err := s.GetTicket(ctx, id); err != nil {
		return nil, err
	}
	return s.events.ListByTicket(ctx, id)
}

// Acknowledge records first response. It stops the response SLA clock.
func (s *TicketService) Acknowledge(ctx context.Context, actorID, id string) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ticket.Status.IsOpen() {
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"status": ticket.Status})
	}
	if ticket.AcknowledgedAt != nil {
		return ticket, nil
	}

	now := s.clock.Now()
	ticket.AcknowledgedAt = &now
	if ticket.Status == domain.TicketStatusNew || ticket.Status == domain.TicketStatusTriage {
		ticket.Status = domain.TicketStatusAssigned
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, ticket.ID, domain.TicketEventAcknowledged, "Ticket acknowledged", actorID)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAcknowledged,
		TicketID: ticket.ID,
		Actor:    userActor(actorID),
	})
	return ticket, nil
}

// Resolve completes the ticket. It stops the resolve SLA clock and, when the
// ticket was never acknowledged, the response clock too.
func (s *TicketService) Resolve(ctx context.Context, actorID, id string) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ticket.Status.IsOpen() {
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"status": ticket.Status})
	}

	now := s.clock.Now()
	if ticket.AcknowledgedAt == nil {
		ticket.AcknowledgedAt = &now
	}
	ticket.ResolvedAt = &now
	ticket.Status = domain.TicketStatusCompleted
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, ticket.ID, domain.TicketEventResolved, "Ticket resolved", actorID)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticket.ID,
		Actor:    userActor(actorID),
	})
	return ticket, nil
}

func (s *TicketService) recordEvent(ctx context.Context, ticketID string, eventType domain.TicketEventType, note, actorID string) {
	if s.events == nil {
		return
	}
	event := &domain.TicketEvent{
		TicketID:  ticketID,
		Type:      eventType,
		Note:      note,
		CreatedBy: actorID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.events.Append(ctx, event); err != nil {
		s.logger.Error("append ticket event failed",
			zap.String("ticket_id", ticketID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

func generateTicketCode() string {
	return "MT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func userActor(userID string) events.Actor {
	return events.Actor{
		Type:   events.ActorTypeUser,
		UserID: &userID,
	}
}
