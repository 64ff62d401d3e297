package sla_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/sla"
)

func TestDueDatesDefaultTable(t *testing.T) {
	policy, err := sla.NewPolicy(sla.DefaultBudgets())
	require.NoError(t, err)

	cases := []struct {
		priority domain.TicketPriority
		response time.Duration
		resolve  time.Duration
	}{
		{domain.TicketPriorityP1, 15 * time.Minute, 4 * time.Hour},
		{domain.TicketPriorityP2, time.Hour, 8 * time.Hour},
		{domain.TicketPriorityP3, 4 * time.Hour, 72 * time.Hour},
		{domain.TicketPriorityP4, 24 * time.Hour, 168 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(string(tc.priority), func(t *testing.T) {
			responseDue, resolveDue, err := policy.DueDates(tc.priority, t0)
			require.NoError(t, err)
			assert.Equal(t, t0.Add(tc.response), responseDue)
			assert.Equal(t, t0.Add(tc.resolve), resolveDue)
			assert.False(t, resolveDue.Before(responseDue))
		})
	}
}

func TestDueDatesUnknownPriority(t *testing.T) {
	policy, err := sla.NewPolicy(sla.DefaultBudgets())
	require.NoError(t, err)

	_, _, err = policy.DueDates("P9", t0)
	require.ErrorIs(t, err, sla.ErrInvalidPriority)
}

func TestNewPolicyRejectsMalformedTables(t *testing.T) {
	mutate := func(fn func(map[domain.TicketPriority]sla.Budget)) map[domain.TicketPriority]sla.Budget {
		budgets := sla.DefaultBudgets()
		fn(budgets)
		return budgets
	}

	cases := map[string]map[domain.TicketPriority]sla.Budget{
		"missing tier": mutate(func(b map[domain.TicketPriority]sla.Budget) {
			delete(b, domain.TicketPriorityP4)
		}),
		"zero response": mutate(func(b map[domain.TicketPriority]sla.Budget) {
			b[domain.TicketPriorityP1] = sla.Budget{Response: 0, Resolve: time.Hour}
		}),
		"resolve shorter than response": mutate(func(b map[domain.TicketPriority]sla.Budget) {
			b[domain.TicketPriorityP2] = sla.Budget{Response: 2 * time.Hour, Resolve: time.Hour}
		}),
		"unknown tier": mutate(func(b map[domain.TicketPriority]sla.Budget) {
			b["P5"] = sla.Budget{Response: time.Hour, Resolve: 2 * time.Hour}
		}),
	}
	for name, budgets := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := sla.NewPolicy(budgets)
			require.ErrorIs(t, err, sla.ErrInvalidBudget)
		})
	}
}
