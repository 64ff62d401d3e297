package domain

import "time"

// TicketEventType classifies audit trail entries.
type TicketEventType string

const (
	TicketEventCreated      TicketEventType = "CREATED"
	TicketEventAcknowledged TicketEventType = "ACKNOWLEDGED"
	TicketEventResolved     TicketEventType = "RESOLVED"
	TicketEventSLAWarning   TicketEventType = "SLA_WARNING"
	TicketEventSLABreach    TicketEventType = "SLA_BREACH"
)

// SystemActor is the CreatedBy value for automated entries.
const SystemActor = "system"

// TicketEvent is an immutable audit trail entry.
type TicketEvent struct {
	ID        string
	TicketID  string
	Type      TicketEventType
	Note      string
	CreatedBy string
	CreatedAt time.Time
}
