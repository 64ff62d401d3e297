package sla

import (
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

var (
	// ErrInvalidPriority is returned for priorities outside the configured table.
	ErrInvalidPriority = errors.New("invalid priority")
	// ErrInvalidBudget is returned when a budget table is malformed.
	ErrInvalidBudget = errors.New("invalid sla budget")
)

// Budget is the time allowed from ticket creation to each SLA milestone.
type Budget struct {
	Response time.Duration
	Resolve  time.Duration
}

// Policy maps priority tiers to budgets. It is immutable after construction.
type Policy struct {
	budgets map[domain.TicketPriority]Budget
}

// DefaultBudgets returns the stock table for the four priority tiers.
func DefaultBudgets() map[domain.TicketPriority]Budget {
	return map[domain.TicketPriority]Budget{
		domain.TicketPriorityP1: {Response: 15 * time.Minute, Resolve: 4 * time.Hour},
		domain.TicketPriorityP2: {Response: time.Hour, Resolve: 8 * time.Hour},
		domain.TicketPriorityP3: {Response: 4 * time.Hour, Resolve: 3 * 24 * time.Hour},
		domain.TicketPriorityP4: {Response: 24 * time.Hour, Resolve: 7 * 24 * time.Hour},
	}
}

// NewPolicy validates the table: every tier needs positive budgets and the
// resolve budget may not be shorter than the response budget.
func NewPolicy(budgets map[domain.TicketPriority]Budget) (*Policy, error) {
	table := make(map[domain.TicketPriority]Budget, len(budgets))
	for _, priority := range domain.TicketPriorities {
		budget, ok := budgets[priority]
		if !ok {
			return nil, fmt.Errorf("%w: missing priority %s", ErrInvalidBudget, priority)
		}
		if budget.Response <= 0 || budget.Resolve <= 0 {
			return nil, fmt.Errorf("%w: non-positive budget for %s", ErrInvalidBudget, priority)
		}
		if budget.Resolve < budget.Response {
			return nil, fmt.Errorf("%w: resolve budget shorter than response budget for %s", ErrInvalidBudget, priority)
		}
		table[priority] = budget
	}
	for priority := range budgets {
		if _, ok := table[priority]; !ok {
			return nil, fmt.Errorf("%w: unknown priority %s", ErrInvalidBudget, priority)
		}
	}
	return &Policy{budgets: table}, nil
}

// Budget returns the budget for the priority.
func (p *Policy) Budget(priority domain.TicketPriority) (Budget, error) {
	budget, ok := p.budgets[priority]
	if !ok {
		return Budget{}, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	return budget, nil
}

// DueDates computes the response and resolve deadlines for a ticket created
// at createdAt.
func (p *Policy) DueDates(priority domain.TicketPriority, createdAt time.Time) (time.Time, time.Time, error) {
	budget, err := p.Budget(priority)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return createdAt.Add(budget.Response), createdAt.Add(budget.Resolve), nil
}
