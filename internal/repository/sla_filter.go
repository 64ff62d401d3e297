package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

// DeadlineClause selects tickets whose dimension is still active, whose flag
// for Kind is still unset, and whose due date falls inside the bounds.
type DeadlineClause struct {
	Dimension domain.SLADimension
	Kind      domain.TransitionKind
	DueAfter  *time.Time // exclusive lower bound
	DueUntil  *time.Time // inclusive upper bound
	DueBefore *time.Time // exclusive upper bound
}

// SLACandidateFilter is an OR over deadline clauses, restricted to Statuses.
type SLACandidateFilter struct {
	Statuses []domain.TicketStatus
	Clauses  []DeadlineClause
	Limit    int
}

type slaColumns struct {
	due       string
	warn      string
	breached  string
	satisfied string
}

var dimensionColumns = map[domain.SLADimension]slaColumns{
	domain.SLADimensionResponse: {
		due:       "sla_response_due_at",
		warn:      "response_warn_at",
		breached:  "response_breached",
		satisfied: "acknowledged_at",
	},
	domain.SLADimensionResolve: {
		due:       "sla_resolve_due_at",
		warn:      "resolve_warn_at",
		breached:  "resolved_breached",
		satisfied: "resolved_at",
	},
}

// Transition returns the transition the clause is looking for.
func (c DeadlineClause) Transition() domain.SLATransition {
	return domain.SLATransition{Dimension: c.Dimension, Kind: c.Kind}
}

// Matches evaluates the clause against an in-memory ticket. It must agree with
// the SQL produced by sql.
func (c DeadlineClause) Matches(ticket *domain.Ticket) bool {
	if !ticket.DimensionActive(c.Dimension) {
		return false
	}
	if ticket.TransitionApplied(c.Transition()) {
		return false
	}
	due := ticket.DueAt(c.Dimension)
	if due == nil {
		return false
	}
	if c.DueAfter != nil && !due.After(*c.DueAfter) {
		return false
	}
	if c.DueUntil != nil && due.After(*c.DueUntil) {
		return false
	}
	if c.DueBefore != nil && !due.Before(*c.DueBefore) {
		return false
	}
	return true
}

func (c DeadlineClause) sql(args []any) (string, []any, error) {
	cols, ok := dimensionColumns[c.Dimension]
	if !ok {
		return "", nil, fmt.Errorf("unknown sla dimension %q", c.Dimension)
	}
	parts := []string{cols.satisfied + " IS NULL"}
	switch c.Kind {
	case domain.TransitionWarn:
		parts = append(parts, cols.warn+" IS NULL")
	case domain.TransitionBreach:
		parts = append(parts, cols.breached+" = FALSE")
	default:
		return "", nil, fmt.Errorf("unknown transition kind %q", c.Kind)
	}
	parts = append(parts, cols.due+" IS NOT NULL")
	if c.DueAfter != nil {
		args = append(args, *c.DueAfter)
		parts = append(parts, fmt.Sprintf("%s > $%d", cols.due, len(args)))
	}
	if c.DueUntil != nil {
		args = append(args, *c.DueUntil)
		parts = append(parts, fmt.Sprintf("%s <= $%d", cols.due, len(args)))
	}
	if c.DueBefore != nil {
		args = append(args, *c.DueBefore)
		parts = append(parts, fmt.Sprintf("%s < $%d", cols.due, len(args)))
	}
	return "(" + strings.Join(parts, " AND ") + ")", args, nil
}

// Matches evaluates the whole filter against an in-memory ticket.
func (f SLACandidateFilter) Matches(ticket *domain.Ticket) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, status := range f.Statuses {
			if ticket.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Clauses) == 0 {
		return true
	}
	for _, clause := range f.Clauses {
		if clause.Matches(ticket) {
			return true
		}
	}
	return false
}

// whereClause renders the filter as a WHERE body with positional args.
func (f SLACandidateFilter) whereClause() (string, []any, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, status := range f.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(f.Clauses) > 0 {
		ors := make([]string, 0, len(f.Clauses))
		for _, clause := range f.Clauses {
			var (
				part string
				err  error
			)
			part, args, err = clause.sql(args)
			if err != nil {
				return "", nil, err
			}
			ors = append(ors, part)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	return strings.Join(clauses, " AND "), args, nil
}

// transitionUpdate builds the guarded single-row update for a transition.
// The statement only matches while the flag is unset, the dimension is still
// active and the ticket is open, so concurrent appliers race on the row and
// exactly one of them sees RowsAffected() == 1.
func transitionUpdate(tr domain.SLATransition) (string, bool, error) {
	cols, ok := dimensionColumns[tr.Dimension]
	if !ok {
		return "", false, fmt.Errorf("unknown sla dimension %q", tr.Dimension)
	}
	switch tr.Kind {
	case domain.TransitionWarn:
		return fmt.Sprintf(`
        UPDATE tickets SET %[1]s=$1, updated_at=NOW()
        WHERE id=$2 AND %[1]s IS NULL AND %[2]s IS NULL AND status = ANY($3)`,
			cols.warn, cols.satisfied), true, nil
	case domain.TransitionBreach:
		return fmt.Sprintf(`
        UPDATE tickets SET %[1]s=TRUE, updated_at=NOW()
        WHERE id=$1 AND %[1]s = FALSE AND %[2]s IS NULL AND status = ANY($2)`,
			cols.breached, cols.satisfied), false, nil
	}
	return "", false, fmt.Errorf("unknown transition kind %q", tr.Kind)
}

func openStatusStrings() []string {
	out := make([]string, len(domain.OpenTicketStatuses))
	for i, status := range domain.OpenTicketStatuses {
		out[i] = string(status)
	}
	return out
}
