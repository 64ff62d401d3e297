package domain

import "fmt"

// SLADimension identifies one of the two independently tracked deadlines.
type SLADimension string

const (
	SLADimensionResponse SLADimension = "response"
	SLADimensionResolve  SLADimension = "resolve"
)

// SLADimensions lists both dimensions in evaluation order.
var SLADimensions = []SLADimension{SLADimensionResponse, SLADimensionResolve}

// TransitionKind distinguishes approaching from missed deadlines.
type TransitionKind string

const (
	TransitionWarn   TransitionKind = "warn"
	TransitionBreach TransitionKind = "breach"
)

// SLATransition is a single monotonic change on one dimension of a ticket.
type SLATransition struct {
	Dimension SLADimension
	Kind      TransitionKind
}

func (t SLATransition) String() string {
	return fmt.Sprintf("%s_%s", t.Dimension, t.Kind)
}

// EventType maps the transition to its audit event type.
func (t SLATransition) EventType() TicketEventType {
	if t.Kind == TransitionWarn {
		return TicketEventSLAWarning
	}
	return TicketEventSLABreach
}

// Note is the audit note stored with the event.
func (t SLATransition) Note() string {
	if t.Kind == TransitionWarn {
		return fmt.Sprintf("Approaching %s SLA", t.Dimension)
	}
	return fmt.Sprintf("%s SLA breached", t.Dimension)
}

// NotificationKind maps the transition to the notification it triggers.
func (t SLATransition) NotificationKind() NotificationKind {
	switch {
	case t.Dimension == SLADimensionResponse && t.Kind == TransitionWarn:
		return NotificationResponseWarning
	case t.Dimension == SLADimensionResponse:
		return NotificationResponseBreach
	case t.Kind == TransitionWarn:
		return NotificationResolveWarning
	default:
		return NotificationResolveBreach
	}
}

// NotificationKind enumerates the SLA conditions that produce a notification.
type NotificationKind string

const (
	NotificationResponseWarning NotificationKind = "response_warning"
	NotificationResolveWarning  NotificationKind = "resolve_warning"
	NotificationResponseBreach  NotificationKind = "response_breach"
	NotificationResolveBreach   NotificationKind = "resolve_breach"
)

// Transition reverses NotificationKind.
func (k NotificationKind) Transition() (SLATransition, bool) {
	switch k {
	case NotificationResponseWarning:
		return SLATransition{Dimension: SLADimensionResponse, Kind: TransitionWarn}, true
	case NotificationResolveWarning:
		return SLATransition{Dimension: SLADimensionResolve, Kind: TransitionWarn}, true
	case NotificationResponseBreach:
		return SLATransition{Dimension: SLADimensionResponse, Kind: TransitionBreach}, true
	case NotificationResolveBreach:
		return SLATransition{Dimension: SLADimensionResolve, Kind: TransitionBreach}, true
	}
	return SLATransition{}, false
}
