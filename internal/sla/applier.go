package sla

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

// TransitionStore performs the guarded compare-and-set on a ticket row.
type TransitionStore interface {
	ApplyTransition(ctx context.Context, ticketID string, transition domain.SLATransition, at time.Time) (bool, error)
}

// EventAppender writes audit entries.
type EventAppender interface {
	Append(ctx context.Context, event *domain.TicketEvent) error
}

// Applier records detections exactly once per (ticket, dimension, kind).
type Applier struct {
	tickets TransitionStore
	events  EventAppender
	logger  *zap.Logger
}

// NewApplier builds an applier.
func NewApplier(tickets TransitionStore, events EventAppender, logger *zap.Logger) *Applier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{tickets: tickets, events: events, logger: logger}
}

// Apply attempts the conditional update for the detection. It returns true
// only for the caller that won the update; that caller also appends the audit
// event. A lost race returns false with no error. An event append failure is
// logged and does not undo the state change.
func (a *Applier) Apply(ctx context.Context, detection Detection, now time.Time) (bool, error) {
	ticketID := detection.Ticket.ID
	applied, err := a.tickets.ApplyTransition(ctx, ticketID, detection.Transition, now)
	if err != nil {
		return false, fmt.Errorf("apply %s to ticket %s: %w", detection.Transition, ticketID, err)
	}
	if !applied {
		a.logger.Debug("sla transition already recorded",
			zap.String("ticket_id", ticketID),
			zap.String("transition", detection.Transition.String()))
		return false, nil
	}

	event := &domain.TicketEvent{
		TicketID:  ticketID,
		Type:      detection.Transition.EventType(),
		Note:      detection.Transition.Note(),
		CreatedBy: domain.SystemActor,
		CreatedAt: now,
	}
	if err := a.events.Append(ctx, event); err != nil {
		a.logger.Error("append sla event failed",
			zap.String("ticket_id", ticketID),
			zap.String("transition", detection.Transition.String()),
			zap.Error(err))
	}
	return true, nil
}
