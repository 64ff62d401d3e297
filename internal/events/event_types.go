package events

import (
	"time"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketAcknowledged EventType = "ticket_acknowledged"
	EventTicketResolved     EventType = "ticket_resolved"
	EventSLAWarning         EventType = "sla_warning"
	EventSLABreach          EventType = "sla_breach"
)

// ActorType distinguishes people from automated sources.
type ActorType string

const (
	ActorTypeUser   ActorType = "USER"
	ActorTypeSystem ActorType = "SYSTEM"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type   ActorType `json:"type"`
	UserID *string   `json:"user_id,omitempty"`
}

// SystemActor identifies events raised by the SLA monitor.
var SystemActor = Actor{Type: ActorTypeSystem}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Priority      domain.TicketPriority `json:"priority"`
	Title         string                `json:"title"`
	ResponseDueAt time.Time             `json:"response_due_at"`
	ResolveDueAt  time.Time             `json:"resolve_due_at"`
}

// SLAConditionPayload carries a recorded transition to notification handlers.
// The kind travels as data; handlers never re-derive it from ticket fields.
type SLAConditionPayload struct {
	Ticket     domain.Ticket           `json:"ticket"`
	Kind       domain.NotificationKind `json:"kind"`
	DueAt      time.Time               `json:"due_at"`
	DetectedAt time.Time               `json:"detected_at"`
}

// EventTypeFor maps a transition kind to the SLA event type.
func EventTypeFor(kind domain.TransitionKind) EventType {
	if kind == domain.TransitionWarn {
		return EventSLAWarning
	}
	return EventSLABreach
}
