package sla

import (
	"context"
	"time"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/repository"
)

// CandidateSource is the read side of the ticket store used by the scanner.
type CandidateSource interface {
	ListSLACandidates(ctx context.Context, filter repository.SLACandidateFilter) ([]domain.Ticket, error)
}

// Detection is one transition to attempt on one ticket.
type Detection struct {
	Ticket     domain.Ticket
	Transition domain.SLATransition
	DueAt      time.Time
}

// Scanner finds tickets approaching or past their deadlines. It never writes.
type Scanner struct {
	tickets CandidateSource
}

// NewScanner builds a scanner over the ticket store.
func NewScanner(tickets CandidateSource) *Scanner {
	return &Scanner{tickets: tickets}
}

// WarningFilter selects open tickets with an active dimension due in
// (now, now+window] whose warning has not been recorded.
func WarningFilter(now time.Time, window time.Duration) repository.SLACandidateFilter {
	after := now
	until := now.Add(window)
	clauses := make([]repository.DeadlineClause, 0, len(domain.SLADimensions))
	for _, dim := range domain.SLADimensions {
		clauses = append(clauses, repository.DeadlineClause{
			Dimension: dim,
			Kind:      domain.TransitionWarn,
			DueAfter:  &after,
			DueUntil:  &until,
		})
	}
	return repository.SLACandidateFilter{Statuses: domain.OpenTicketStatuses, Clauses: clauses}
}

// BreachFilter selects open tickets with an active dimension due strictly
// before now whose breach has not been recorded.
func BreachFilter(now time.Time) repository.SLACandidateFilter {
	before := now
	clauses := make([]repository.DeadlineClause, 0, len(domain.SLADimensions))
	for _, dim := range domain.SLADimensions {
		clauses = append(clauses, repository.DeadlineClause{
			Dimension: dim,
			Kind:      domain.TransitionBreach,
			DueBefore: &before,
		})
	}
	return repository.SLACandidateFilter{Statuses: domain.OpenTicketStatuses, Clauses: clauses}
}

// FindWarningCandidates returns each qualifying ticket once, oldest first.
// A positive limit caps the batch; the rest is picked up by later cycles.
func (s *Scanner) FindWarningCandidates(ctx context.Context, now time.Time, window time.Duration, limit int) ([]domain.Ticket, error) {
	filter := WarningFilter(now, window)
	filter.Limit = limit
	return s.tickets.ListSLACandidates(ctx, filter)
}

// FindBreachCandidates returns each qualifying ticket once, oldest first.
func (s *Scanner) FindBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	filter := BreachFilter(now)
	filter.Limit = limit
	return s.tickets.ListSLACandidates(ctx, filter)
}

// Classify expands candidates into per-dimension detections using the same
// clauses that selected them. A ticket matching both dimensions yields two
// detections.
func Classify(tickets []domain.Ticket, filter repository.SLACandidateFilter) []Detection {
	var out []Detection
	for i := range tickets {
		ticket := &tickets[i]
		if !filter.Matches(ticket) {
			continue
		}
		for _, clause := range filter.Clauses {
			if !clause.Matches(ticket) {
				continue
			}
			out = append(out, Detection{
				Ticket:     *ticket,
				Transition: clause.Transition(),
				DueAt:      *ticket.DueAt(clause.Dimension),
			})
		}
	}
	return out
}
