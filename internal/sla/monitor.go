package sla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

		"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/events"
	"github.com/spec-kit/maintenance-sla/internal/observability"
)

// DefaultWarningWindow is how far ahead of a deadline a warning is raised.
const DefaultWarningWindow = 15 * time.Minute

// DefaultNotifyTimeout bounds the delivery of one SLA event once the cycle has
// recorded it.
const DefaultNotifyTimeout = time.Minute

// CycleReport summarizes one scan-and-apply cycle.
type CycleReport struct {
	StartedAt         time.Time `json:"started_at"`
	WarningCandidates int       `json:"warning_candidates"`
	BreachCandidates  int       `json:"breach_candidates"`
	WarningsApplied   int       `json:"warnings_applied"`
	BreachesApplied   int       `json:"breaches_applied"`
	Skipped           int       `json:"skipped"`
	Failed            int       `json:"failed"`
}

func (r CycleReport) String() string {
	return fmt.Sprintf("warnings %d/%d, breaches %d/%d, skipped %d, failed %d",
		r.WarningsApplied, r.WarningCandidates, r.BreachesApplied, r.BreachCandidates, r.Skipped, r.Failed)
}

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	Window        time.Duration
	NotifyTimeout time.Duration
	BatchSize     int
	Clock         clockwork.Clock
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// Monitor runs the warning scan and then the breach scan, applying every
// detection and publishing an SLA event for each one it wins.
type Monitor struct {
	scanner       *Scanner
	applier       *Applier
	dispatcher    events.Dispatcher
	window        time.Duration
	notifyTimeout time.Duration
	batchSize     int
	clock         clockwork.Clock
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// NewMonitor wires the cycle collaborators.
func NewMonitor(scanner *Scanner, applier *Applier, dispatcher events.Dispatcher, opts MonitorOptions) *Monitor {
	if opts.Window <= 0 {
		opts.Window = DefaultWarningWindow
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}
	if opts.BatchSize < 0 {
		opts.BatchSize = 0
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Monitor{
		scanner:       scanner,
		applier:       applier,
		dispatcher:    dispatcher,
		window:        opts.Window,
		notifyTimeout: opts.NotifyTimeout,
		batchSize:     opts.BatchSize,
		clock:         opts.Clock,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
}

// RunCycle performs one cycle. Both scans use the same reference instant. A
// scan error aborts the cycle; a failed apply is logged, counted, and the
// remaining tickets are still processed. The returned error is non-nil when
// the cycle aborted or any apply failed.
//
// Events for the transitions this cycle won are published only after both
// passes finish, each on a context detached from ctx and bounded by the
// notify timeout. Slow delivery never holds back the bookkeeping.
func (m *Monitor) RunCycle(ctx context.Context) (CycleReport, error) {
	now := m.clock.Now()
	report := CycleReport{StartedAt: now}
	var won []Detection
	defer func() { m.publishAll(ctx, won, now) }()

	warnTickets, err := m.scanner.FindWarningCandidates(ctx, now, m.window, m.batchSize)
	if err != nil {
		return report, fmt.Errorf("scan warning candidates: %w", err)
	}
	report.WarningCandidates = len(warnTickets)
	won, warnErr := m.applyAll(ctx, Classify(warnTickets, WarningFilter(now, m.window)), now, &report, won)
	if ctx.Err() != nil {
		return report, errors.Join(warnErr, ctx.Err())
	}

	breachTickets, err := m.scanner.FindBreachCandidates(ctx, now, m.batchSize)
	if err != nil {
		return report, errors.Join(warnErr, fmt.Errorf("scan breach candidates: %w", err))
	}
	report.BreachCandidates = len(breachTickets)
	won, breachErr := m.applyAll(ctx, Classify(breachTickets, BreachFilter(now)), now, &report, won)

	if err := errors.Join(warnErr, breachErr, ctx.Err()); err != nil {
		return report, err
	}
	m.logger.Info("sla cycle finished", zap.Time("now", now), zap.Stringer("report", report))
	return report, nil
}

// applyAll applies each detection and appends the ones this cycle won to won.
func (m *Monitor) applyAll(ctx context.Context, detections []Detection, now time.Time, report *CycleReport, won []Detection) ([]Detection, error) {
	var errs []error
	for _, detection := range detections {
		if ctx.Err() != nil {
			break
		}
		applied, err := m.applyOne(ctx, detection, now)
		switch {
		case err != nil:
			report.Failed++
			errs = append(errs, err)
			m.metrics.RecordTransition(detection.Transition, "error")
			m.logger.Error("sla transition failed",
				zap.String("ticket_id", detection.Ticket.ID),
				zap.String("transition", detection.Transition.String()),
				zap.Error(err))
			continue
		case !applied:
			report.Skipped++
			m.metrics.RecordTransition(detection.Transition, "skipped")
			continue
		}

		m.metrics.RecordTransition(detection.Transition, "applied")
		if detection.Transition.Kind == domain.TransitionWarn {
			report.WarningsApplied++
		} else {
			report.BreachesApplied++
		}
		won = append(won, detection)
	}
	return won, errors.Join(errs...)
}

// applyOne isolates a single ticket so a panic in the store cannot end the cycle.
func (m *Monitor) applyOne(ctx context.Context, detection Detection, now time.Time) (applied bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			applied = false
			err = fmt.Errorf("apply %s to ticket %s: panic: %v", detection.Transition, detection.Ticket.ID, r)
		}
	}()
	return m.applier.Apply(ctx, detection, now)
}

func (m *Monitor) publishAll(ctx context.Context, won []Detection, now time.Time) {
	if m.dispatcher == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	for _, detection := range won {
		m.publish(detached, detection, now)
	}
}

func (m *Monitor) publish(parent context.Context, detection Detection, now time.Time) {
	ctx, cancel := context.WithTimeout(parent, m.notifyTimeout)
	defer cancel()

	ticket := detection.Ticket
	ticket.RecordTransition(detection.Transition, now)
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTypeFor(detection.Transition.Kind),
		TicketID:  ticket.ID,
		Actor:     events.SystemActor,
		Timestamp: now,
		Payload: events.SLAConditionPayload{
			Ticket:     ticket,
			Kind:       detection.Transition.NotificationKind(),
			DueAt:      detection.DueAt,
			DetectedAt: now,
		},
	}
	if err := m.dispatcher.Publish(ctx, event); err != nil {
		m.logger.Warn("publish sla event failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
