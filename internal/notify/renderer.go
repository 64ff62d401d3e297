package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
	"time"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

const dueTimeLayout = "January 2, 2006, 03:04 PM"

// Renderer turns an SLA condition into an email-style message.
type Renderer struct {
	frontendURL string
	location    *time.Location
	window      time.Duration
}

// NewRenderer builds a renderer. A nil location renders in UTC.
func NewRenderer(frontendURL string, location *time.Location, window time.Duration) *Renderer {
	if location == nil {
		location = time.UTC
	}
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	return &Renderer{
		frontendURL: strings.TrimRight(frontendURL, "/"),
		location:    location,
		window:      window,
	}
}

type templateData struct {
	Code       string
	Title      string
	Priority   string
	Dimension  string
	Action     string
	Verb       string
	Step       string
	When       string
	Detected   string
	Remaining  string
	Link       string
	IsResponse bool
}

// Render builds the message for kind. dueAt is the deadline of the dimension
// and detectedAt is when the monitor recorded the condition. Breach messages
// report the missed deadline as the breach time and show both.
func (r *Renderer) Render(ticket domain.Ticket, kind domain.NotificationKind, dueAt, detectedAt time.Time) (Message, error) {
	transition, ok := kind.Transition()
	if !ok {
		return Message{}, fmt.Errorf("unknown notification kind %q", kind)
	}

	data := templateData{
		Code:       ticketCode(ticket),
		Title:      ticket.Title,
		Priority:   string(ticket.Priority),
		Dimension:  "resolution",
		Action:     "resolved",
		Verb:       "resolve this ticket",
		Step:       "Provide solution",
		Link:       fmt.Sprintf("%s/tickets/%s", r.frontendURL, ticket.ID),
		Remaining:  humanWindow(r.window),
		IsResponse: transition.Dimension == domain.SLADimensionResponse,
	}
	if data.IsResponse {
		data.Dimension = "response"
		data.Action = "acknowledged"
		data.Verb = "acknowledge this ticket"
		data.Step = "Acknowledge receipt"
	}

	var subject string
	var textTpl *template.Template
	var htmlTpl *htmltemplate.Template
	if transition.Kind == domain.TransitionWarn {
		data.When = dueAt.In(r.location).Format(dueTimeLayout)
		subject = fmt.Sprintf("⚠️ SLA Warning: Ticket %s - %s", data.Code, data.Title)
		textTpl, htmlTpl = warningText, warningHTML
	} else {
		data.When = dueAt.In(r.location).Format(dueTimeLayout)
		data.Detected = detectedAt.In(r.location).Format(dueTimeLayout)
		subject = fmt.Sprintf("🚨 URGENT: SLA BREACH - Ticket %s - %s", data.Code, data.Title)
		textTpl, htmlTpl = breachText, breachHTML
	}

	var text, html bytes.Buffer
	if err := textTpl.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	if err := htmlTpl.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	return Message{
		Subject:  subject,
		Text:     text.String(),
		HTML:     html.String(),
		TicketID: ticket.ID,
		Kind:     kind,
		Link:     data.Link,
	}, nil
}

func ticketCode(ticket domain.Ticket) string {
	if ticket.Code != "" {
		return ticket.Code
	}
	return ticket.ID
}

func humanWindow(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}

var warningText = template.Must(template.New("warning.txt").Parse(
	`SLA WARNING: Ticket {{.Code}} - {{.Title}}
Priority: {{.Priority}}
Action Required: Must be {{.Action}} by {{.When}}
{{- if .Remaining}}
Time Remaining: Less than {{.Remaining}}{{end}}

Please {{.Verb}} immediately to avoid SLA breach.

View ticket: {{.Link}}
`))

var breachText = template.Must(template.New("breach.txt").Parse(
	`URGENT SLA BREACH: Ticket {{.Code}} - {{.Title}}
Priority: {{.Priority}}
Issue: SLA {{.Dimension}} deadline was breached
Breached At: {{.When}}
Detected At: {{.Detected}}

This SLA breach requires immediate attention. Escalate to the responsible team,
{{if .IsResponse}}acknowledge the ticket{{else}}resolve the ticket{{end}} and document the breach reason for SLA reporting.

View ticket: {{.Link}}
`))

var warningHTML = htmltemplate.Must(htmltemplate.New("warning.html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #ff6b35;">⚠️ SLA Warning Alert</h1>
  <div style="background-color: #fff3cd; border-radius: 5px; padding: 15px;">
    <h2>Ticket {{.Code}}</h2>
    <p><strong>Title:</strong> {{.Title}}</p>
    <p><strong>Action Required:</strong> Must be {{.Action}} by {{.When}}</p>
    {{if .Remaining}}<p><strong>Time Remaining:</strong> Less than {{.Remaining}}</p>{{end}}
  </div>
  <h3>Immediate Action Required</h3>
  <p>Please {{.Verb}} immediately to avoid SLA breach.</p>
  <ul>
    <li>Check ticket details and priority</li>
    <li>{{.Step}}</li>
    <li>Update ticket status accordingly</li>
  </ul>
  <p><a href="{{.Link}}">View Ticket Details</a></p>
  <p style="color: #6c757d; font-size: 14px;">This is an automated SLA monitoring notification. Please do not reply to this email.</p>
</div>
`))

var breachHTML = htmltemplate.Must(htmltemplate.New("breach.html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #dc3545;">🚨 SLA BREACH ALERT</h1>
  <div style="background-color: #f8d7da; border-radius: 5px; padding: 15px;">
    <h2>Ticket {{.Code}}</h2>
    <p><strong>Title:</strong> {{.Title}}</p>
    <p><strong>Issue:</strong> SLA {{.Dimension}} deadline was breached</p>
    <p><strong>Breached At:</strong> {{.When}}</p>
    <p><strong>Detected At:</strong> {{.Detected}}</p>
  </div>
  <p><strong>This SLA breach requires immediate attention:</strong></p>
  <ul>
    <li>Escalate to the responsible team</li>
    <li>{{.Step}}</li>
    <li>Document the breach reason for SLA reporting</li>
  </ul>
  <p><a href="{{.Link}}">View Ticket Details</a></p>
  <p style="color: #6c757d; font-size: 14px;">This is an automated SLA monitoring notification for breached deadlines. Immediate action is required.</p>
</div>
`))
