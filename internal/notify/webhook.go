package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// WebhookTransport posts a JSON payload to a chat webhook.
type WebhookTransport struct {
	url     string
	timeout time.Duration
}

type webhookPayload struct {
	Text     string `json:"text"`
	Subject  string `json:"subject"`
	TicketID string `json:"ticket_id"`
	Kind     string `json:"kind"`
	Link     string `json:"link"`
}

// NewWebhookTransport builds a transport. An empty url disables it.
func NewWebhookTransport(url string, timeout time.Duration) *WebhookTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookTransport{url: strings.TrimSpace(url), timeout: timeout}
}

func (t *WebhookTransport) Name() string { return "webhook" }

// Enabled reports whether a destination is configured.
func (t *WebhookTransport) Enabled() bool { return t.url != "" }

func (t *WebhookTransport) Send(ctx context.Context, msg Message) error {
	if !t.Enabled() {
		return ErrTransportDisabled
	}
	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return context.DeadlineExceeded
		}
		if remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(t.url).
		JSON(webhookPayload{
			Text:     msg.Text,
			Subject:  msg.Subject,
			TicketID: msg.TicketID,
			Kind:     string(msg.Kind),
			Link:     msg.Link,
		}).
		Timeout(timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("post webhook: %w", errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("post webhook: status %d: %s", code, truncate(string(body), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
