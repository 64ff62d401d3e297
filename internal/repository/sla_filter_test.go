package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

var refTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func TestWhereClauseWarning(t *testing.T) {
	until := refTime.Add(15 * time.Minute)
	filter := SLACandidateFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusNew, domain.TicketStatusAssigned},
		Clauses: []DeadlineClause{
			{Dimension: domain.SLADimensionResponse, Kind: domain.TransitionWarn, DueAfter: ptr(refTime), DueUntil: &until},
			{Dimension: domain.SLADimensionResolve, Kind: domain.TransitionWarn, DueAfter: ptr(refTime), DueUntil: &until},
		},
	}

	where, args, err := filter.whereClause()
	require.NoError(t, err)

	assert.Equal(t, "1=1 AND status IN ($1,$2) AND ("+
		"(acknowledged_at IS NULL AND response_warn_at IS NULL AND sla_response_due_at IS NOT NULL AND sla_response_due_at > $3 AND sla_response_due_at <= $4)"+
		" OR "+
		"(resolved_at IS NULL AND resolve_warn_at IS NULL AND sla_resolve_due_at IS NOT NULL AND sla_resolve_due_at > $5 AND sla_resolve_due_at <= $6))",
		where)
	assert.Equal(t, []any{"NEW", "ASSIGNED", refTime, until, refTime, until}, args)
}

func TestWhereClauseBreach(t *testing.T) {
	filter := SLACandidateFilter{
		Clauses: []DeadlineClause{
			{Dimension: domain.SLADimensionResolve, Kind: domain.TransitionBreach, DueBefore: ptr(refTime)},
		},
	}

	where, args, err := filter.whereClause()
	require.NoError(t, err)
	assert.Equal(t, "1=1 AND ((resolved_at IS NULL AND resolved_breached = FALSE AND sla_resolve_due_at IS NOT NULL AND sla_resolve_due_at < $1))", where)
	assert.Equal(t, []any{refTime}, args)
}

func TestWhereClauseRejectsUnknownDimension(t *testing.T) {
	filter := SLACandidateFilter{Clauses: []DeadlineClause{{Dimension: "feedback", Kind: domain.TransitionWarn}}}
	_, _, err := filter.whereClause()
	require.Error(t, err)
}

func TestTransitionUpdate(t *testing.T) {
	query, stamped, err := transitionUpdate(domain.SLATransition{Dimension: domain.SLADimensionResponse, Kind: domain.TransitionWarn})
	require.NoError(t, err)
	assert.True(t, stamped)
	assert.Contains(t, query, "SET response_warn_at=$1")
	assert.Contains(t, query, "response_warn_at IS NULL AND acknowledged_at IS NULL")

	query, stamped, err = transitionUpdate(domain.SLATransition{Dimension: domain.SLADimensionResolve, Kind: domain.TransitionBreach})
	require.NoError(t, err)
	assert.False(t, stamped)
	assert.Contains(t, query, "SET resolved_breached=TRUE")
	assert.Contains(t, query, "resolved_breached = FALSE AND resolved_at IS NULL")
	assert.True(t, strings.Contains(query, "status = ANY($2)"))

	_, _, err = transitionUpdate(domain.SLATransition{Dimension: domain.SLADimensionResolve, Kind: "escalate"})
	require.Error(t, err)
}

func TestClauseMatchesAgreesWithBounds(t *testing.T) {
	until := refTime.Add(15 * time.Minute)
	warn := DeadlineClause{Dimension: domain.SLADimensionResponse, Kind: domain.TransitionWarn, DueAfter: ptr(refTime), DueUntil: &until}
	breach := DeadlineClause{Dimension: domain.SLADimensionResponse, Kind: domain.TransitionBreach, DueBefore: ptr(refTime)}

	cases := []struct {
		name   string
		due    time.Time
		warn   bool
		breach bool
	}{
		{"past due", refTime.Add(-time.Minute), false, true},
		{"due now", refTime, false, false},
		{"inside window", refTime.Add(time.Minute), true, false},
		{"window edge", until, true, false},
		{"beyond window", until.Add(time.Second), false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := &domain.Ticket{Status: domain.TicketStatusNew, SLAResponseDueAt: ptr(tc.due)}
			assert.Equal(t, tc.warn, warn.Matches(ticket))
			assert.Equal(t, tc.breach, breach.Matches(ticket))
		})
	}
}

func TestFilterMatchesRespectsStatusesAndFlags(t *testing.T) {
	filter := SLACandidateFilter{
		Statuses: domain.OpenTicketStatuses,
		Clauses: []DeadlineClause{
			{Dimension: domain.SLADimensionResponse, Kind: domain.TransitionBreach, DueBefore: ptr(refTime)},
		},
	}
	due := ptr(refTime.Add(-time.Hour))

	assert.True(t, filter.Matches(&domain.Ticket{Status: domain.TicketStatusInProgress, SLAResponseDueAt: due}))
	assert.False(t, filter.Matches(&domain.Ticket{Status: domain.TicketStatusCompleted, SLAResponseDueAt: due}))
	assert.False(t, filter.Matches(&domain.Ticket{Status: domain.TicketStatusNew, SLAResponseDueAt: due, ResponseBreached: true}))
	assert.False(t, filter.Matches(&domain.Ticket{Status: domain.TicketStatusNew, SLAResponseDueAt: due, AcknowledgedAt: ptr(refTime)}))
}
