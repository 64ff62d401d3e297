package domain

import "time"

// TicketStatus enumerates lifecycle states for maintenance tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusTriage     TicketStatus = "TRIAGE"
	TicketStatusAssigned   TicketStatus = "ASSIGNED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusCompleted  TicketStatus = "COMPLETED"
	TicketStatusCancelled  TicketStatus = "CANCELLED"
)

// OpenTicketStatuses lists the statuses eligible for SLA scanning.
var OpenTicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusTriage,
	TicketStatusAssigned,
	TicketStatusInProgress,
}

// IsOpen reports whether the status belongs to the open set.
func (s TicketStatus) IsOpen() bool {
	for _, open := range OpenTicketStatuses {
		if s == open {
			return true
		}
	}
	return false
}

// TicketPriority enumerates SLA urgency, P1 most urgent.
type TicketPriority string

const (
	TicketPriorityP1 TicketPriority = "P1"
	TicketPriorityP2 TicketPriority = "P2"
	TicketPriorityP3 TicketPriority = "P3"
	TicketPriorityP4 TicketPriority = "P4"
)

// TicketPriorities lists every tier, most urgent first.
var TicketPriorities = []TicketPriority{
	TicketPriorityP1,
	TicketPriorityP2,
	TicketPriorityP3,
	TicketPriorityP4,
}

// Ticket is the aggregate for maintenance requests. Only the SLA fields are
// written by the monitor; everything else belongs to the ticket workflow.
type Ticket struct {
	ID             string
	Code           string
	RequesterID    string
	Title          string
	Description    string
	Status         TicketStatus
	Priority       TicketPriority
	CreatedAt      time.Time
	UpdatedAt      time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time

	SLAResponseDueAt *time.Time
	SLAResolveDueAt  *time.Time
	ResponseWarnAt   *time.Time
	ResolveWarnAt    *time.Time
	ResponseBreached bool
	ResolvedBreached bool
}

// HasSLA reports whether both deadlines were stamped at creation.
func (t *Ticket) HasSLA() bool {
	return t.SLAResponseDueAt != nil && t.SLAResolveDueAt != nil
}

// DueAt returns the deadline tracked for the dimension.
func (t *Ticket) DueAt(dim SLADimension) *time.Time {
	if dim == SLADimensionResponse {
		return t.SLAResponseDueAt
	}
	return t.SLAResolveDueAt
}

// WarnAt returns the warning timestamp for the dimension.
func (t *Ticket) WarnAt(dim SLADimension) *time.Time {
	if dim == SLADimensionResponse {
		return t.ResponseWarnAt
	}
	return t.ResolveWarnAt
}

// Breached returns the breach flag for the dimension.
func (t *Ticket) Breached(dim SLADimension) bool {
	if dim == SLADimensionResponse {
		return t.ResponseBreached
	}
	return t.ResolvedBreached
}

// DimensionActive reports whether the dimension still needs tracking: response
// stops once acknowledged, resolve stops once resolved.
func (t *Ticket) DimensionActive(dim SLADimension) bool {
	if dim == SLADimensionResponse {
		return t.AcknowledgedAt == nil
	}
	return t.ResolvedAt == nil
}

// TransitionApplied reports whether the transition is already recorded.
func (t *Ticket) TransitionApplied(tr SLATransition) bool {
	if tr.Kind == TransitionWarn {
		return t.WarnAt(tr.Dimension) != nil
	}
	return t.Breached(tr.Dimension)
}

// RecordTransition sets the field guarded by the transition. Callers are
// responsible for the unset check.
func (t *Ticket) RecordTransition(tr SLATransition, at time.Time) {
	stamp := at
	switch {
	case tr.Kind == TransitionWarn && tr.Dimension == SLADimensionResponse:
		t.ResponseWarnAt = &stamp
	case tr.Kind == TransitionWarn:
		t.ResolveWarnAt = &stamp
	case tr.Dimension == SLADimensionResponse:
		t.ResponseBreached = true
	default:
		t.ResolvedBreached = true
	}
}
