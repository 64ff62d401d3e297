package notify

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// EmailConfig describes the SMTP relay.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailTransport sends multipart text+HTML mail over SMTP. STARTTLS is used
// whenever the relay offers it.
type EmailTransport struct {
	cfg EmailConfig
	now func() time.Time
}

// NewEmailTransport builds an SMTP transport.
func NewEmailTransport(cfg EmailConfig) *EmailTransport {
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	return &EmailTransport{cfg: cfg, now: time.Now}
}

func (t *EmailTransport) Name() string { return "email" }

// Enabled reports whether an SMTP host is configured.
func (t *EmailTransport) Enabled() bool { return strings.TrimSpace(t.cfg.Host) != "" }

// Send delivers msg to every recipient in a single SMTP transaction.
func (t *EmailTransport) Send(ctx context.Context, msg Message) error {
	if !t.Enabled() {
		return ErrTransportDisabled
	}
	if len(msg.To) == 0 {
		return nil
	}
	m, err := t.buildMessage(msg)
	if err != nil {
		return err
	}
	client, err := t.client()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	return nil
}

func (t *EmailTransport) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}
	client, err := mail.NewClient(t.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}

func (t *EmailTransport) buildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(t.cfg.From); err != nil {
		return nil, fmt.Errorf("mail from %q: %w", t.cfg.From, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("mail recipients: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(t.now())
	m.SetMessageID()

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}
	return m, nil
}
