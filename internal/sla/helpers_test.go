package sla_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/sla"
)

var t0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newTicket(t *testing.T, id string, priority domain.TicketPriority, createdAt time.Time) domain.Ticket {
	t.Helper()
	policy, err := sla.NewPolicy(sla.DefaultBudgets())
	require.NoError(t, err)
	responseDue, resolveDue, err := policy.DueDates(priority, createdAt)
	require.NoError(t, err)
	return domain.Ticket{
		ID:               id,
		Code:             "MT-" + id,
		Title:            "Broken valve " + id,
		Status:           domain.TicketStatusNew,
		Priority:         priority,
		CreatedAt:        createdAt,
		SLAResponseDueAt: &responseDue,
		SLAResolveDueAt:  &resolveDue,
	}
}

func at(ts time.Time) *time.Time { return &ts }
