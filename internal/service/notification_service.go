package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/events"
	"github.com/spec-kit/maintenance-sla/internal/notify"
	"github.com/spec-kit/maintenance-sla/internal/observability"
)

// AudienceDirectory resolves who receives SLA notifications.
type AudienceDirectory interface {
	ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error)
}

// NotificationOptions tunes delivery.
type NotificationOptions struct {
	SendTimeout time.Duration
	Clock       clockwork.Clock
	Metrics     *observability.Metrics
}

// NotificationService renders SLA conditions and sends them through every
// configured transport. Delivery failures never reach the SLA bookkeeping.
type NotificationService struct {
	dispatcher events.Dispatcher
	audience   AudienceDirectory
	renderer   *notify.Renderer
	transports []notify.Transport
	breakers   map[string]*gobreaker.CircuitBreaker
	logger     *zap.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock
	timeout    time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(
	dispatcher events.Dispatcher,
	audience AudienceDirectory,
	renderer *notify.Renderer,
	transports []notify.Transport,
	logger *zap.Logger,
	opts NotificationOptions,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}
	breakers := make(map[string]*gobreaker.CircuitBreaker, len(transports))
	for _, transport := range transports {
		name := transport.Name()
		breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "notify-" + name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("notification breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}
	return &NotificationService{
		dispatcher: dispatcher,
		audience:   audience,
		renderer:   renderer,
		transports: transports,
		breakers:   breakers,
		logger:     logger,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
		timeout:    opts.SendTimeout,
	}
}

// RegisterHandlers subscribes to SLA events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSLAWarning, n.handleSLACondition)
	n.dispatcher.Subscribe(events.EventSLABreach, n.handleSLACondition)
}

func (n *NotificationService) handleSLACondition(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLAConditionPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.deliver(ctx, payload.Ticket, payload.Kind, payload.DueAt, payload.DetectedAt)
}

// Notify sends the notification for kind about ticket. An empty audience is a
// logged no-op.
func (n *NotificationService) Notify(ctx context.Context, ticket domain.Ticket, kind domain.NotificationKind) error {
	transition, ok := kind.Transition()
	if !ok {
		return fmt.Errorf("unknown notification kind %q", kind)
	}
	var dueAt time.Time
	if due := ticket.DueAt(transition.Dimension); due != nil {
		dueAt = *due
	}
	return n.deliver(ctx, ticket, kind, dueAt, n.clock.Now())
}

func (n *NotificationService) deliver(ctx context.Context, ticket domain.Ticket, kind domain.NotificationKind, dueAt, detectedAt time.Time) error {
	users, err := n.audience.ListByRole(ctx, domain.UserRoleAdmin)
	if err != nil {
		n.metrics.RecordNotification("audience", "error")
		return fmt.Errorf("resolve audience: %w", err)
	}
	recipients := make([]string, 0, len(users))
	for _, user := range users {
		if user.Active && user.Email != "" {
			recipients = append(recipients, user.Email)
		}
	}
	if len(recipients) == 0 {
		n.logger.Warn("no admin users found for sla notification",
			zap.String("ticket_id", ticket.ID),
			zap.String("kind", string(kind)))
		n.metrics.RecordNotification("audience", "empty")
		return nil
	}

	msg, err := n.renderer.Render(ticket, kind, dueAt, detectedAt)
	if err != nil {
		return err
	}
	msg.To = recipients

	var errs []error
	for _, transport := range n.transports {
		if err := n.send(ctx, transport, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", transport.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (n *NotificationService) send(ctx context.Context, transport notify.Transport, msg notify.Message) error {
	name := transport.Name()
	if toggle, ok := transport.(interface{ Enabled() bool }); ok && !toggle.Enabled() {
		n.metrics.RecordNotification(name, "disabled")
		return nil
	}
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	_, err := n.breakers[name].Execute(func() (interface{}, error) {
		return nil, transport.Send(sendCtx, msg)
	})
	switch {
	case err == nil:
		n.metrics.RecordNotification(name, "sent")
		n.logger.Info("sla notification sent",
			zap.String("transport", name),
			zap.String("ticket_id", msg.TicketID),
			zap.String("kind", string(msg.Kind)),
			zap.Int("recipients", len(msg.To)))
		return nil
	case errors.Is(err, notify.ErrTransportDisabled):
		n.metrics.RecordNotification(name, "disabled")
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		n.metrics.RecordNotification(name, "rejected")
	default:
		n.metrics.RecordNotification(name, "failed")
	}
	n.logger.Error("sla notification failed",
		zap.String("transport", name),
		zap.String("ticket_id", msg.TicketID),
		zap.String("kind", string(msg.Kind)),
		zap.Error(err))
	return err
}
