package dto

import (
	"time"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// SLAView shows one dimension of a ticket's SLA bookkeeping.
type SLAView struct {
	DueAt       *time.Time `json:"due_at"`
	WarnedAt    *time.Time `json:"warned_at"`
	Breached    bool       `json:"breached"`
	SatisfiedAt *time.Time `json:"satisfied_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID          string                `json:"id"`
	Code        string                `json:"code"`
	RequesterID string                `json:"requester_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Response    SLAView               `json:"response_sla"`
	Resolve     SLAView               `json:"resolve_sla"`
}

// TicketEventResponse is one audit trail entry.
type TicketEventResponse struct {
	ID        string                 `json:"id"`
	Type      domain.TicketEventType `json:"type"`
	Note      string                 `json:"note"`
	CreatedBy string                 `json:"created_by"`
	CreatedAt time.Time              `json:"created_at"`
}

// TicketDetail maps the domain ticket.
func TicketDetail(t *domain.Ticket) TicketDetailResponse {
	return TicketDetailResponse{
		ID:          t.ID,
		Code:        t.Code,
		RequesterID: t.RequesterID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Response: SLAView{
			DueAt:       t.SLAResponseDueAt,
			WarnedAt:    t.ResponseWarnAt,
			Breached:    t.ResponseBreached,
			SatisfiedAt: t.AcknowledgedAt,
		},
		Resolve: SLAView{
			DueAt:       t.SLAResolveDueAt,
			WarnedAt:    t.ResolveWarnAt,
			Breached:    t.ResolvedBreached,
			SatisfiedAt: t.ResolvedAt,
		},
	}
}

// TicketEvent maps an audit entry.
func TicketEvent(e domain.TicketEvent) TicketEventResponse {
	return TicketEventResponse{
		ID:        e.ID,
		Type:      e.Type,
		Note:      e.Note,
		CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt,
	}
}
