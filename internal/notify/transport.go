package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

// ErrTransportDisabled is returned by transports that have no destination configured.
var ErrTransportDisabled = errors.New("notification transport disabled")

// Message is a rendered notification ready for delivery.
type Message struct {
	To       []string
	Subject  string
	Text     string
	HTML     string
	TicketID string
	Kind     domain.NotificationKind
	Link     string
}

// Transport delivers rendered messages.
type Transport interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// LogTransport writes messages to the logger. Used when no real transport is configured.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport builds a LogTransport.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Name() string { return "log" }

func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.logger.Info("sla notification",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("ticket_id", msg.TicketID),
		zap.String("kind", string(msg.Kind)))
	return nil
}
