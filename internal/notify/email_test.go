package notify

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessageMultipart(t *testing.T) {
	transport := NewEmailTransport(EmailConfig{Host: "smtp.example.com", Port: 587, From: "sla@example.com"})
	transport.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	m, err := transport.buildMessage(Message{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "🚨 URGENT: SLA BREACH - Ticket MT-1 - Pump",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "sla@example.com")
	assert.Contains(t, raw, "a@example.com")
	assert.Contains(t, raw, "b@example.com")
	assert.Contains(t, raw, "Subject: ")
	assert.Contains(t, raw, "Mon, 10 Mar 2025 12:00:00")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "plain body")
	assert.Contains(t, raw, "<p>html body</p>")
}

func TestBuildMessageRejectsBadAddresses(t *testing.T) {
	transport := NewEmailTransport(EmailConfig{Host: "smtp.example.com", From: "not an address"})
	_, err := transport.buildMessage(Message{To: []string{"a@example.com"}, Text: "x"})
	require.Error(t, err)

	transport = NewEmailTransport(EmailConfig{Host: "smtp.example.com", From: "sla@example.com"})
	_, err = transport.buildMessage(Message{To: []string{"broken"}, Text: "x"})
	require.Error(t, err)
}

func TestEmailSendDisabledAndDialFailure(t *testing.T) {
	err := NewEmailTransport(EmailConfig{}).Send(context.Background(), Message{To: []string{"a@example.com"}})
	require.ErrorIs(t, err, ErrTransportDisabled)

	// Grab a free port and release it so the dial is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	transport := NewEmailTransport(EmailConfig{Host: "127.0.0.1", Port: port, From: "sla@example.com"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = transport.Send(ctx, Message{To: []string{"a@example.com"}, Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send mail via 127.0.0.1:"+strconv.Itoa(port))

	assert.NoError(t, transport.Send(context.Background(), Message{}))
}
