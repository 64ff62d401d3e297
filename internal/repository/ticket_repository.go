package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListSLACandidates(ctx context.Context, filter SLACandidateFilter) ([]domain.Ticket, error)
	ApplyTransition(ctx context.Context, ticketID string, transition domain.SLATransition, at time.Time) (bool, error)
	ListSLASnapshots(ctx context.Context) ([]domain.Ticket, error)
}

const ticketColumns = `id, code, requester_user_id, title, description, status, priority,
               created_at, updated_at, acknowledged_at, resolved_at,
               sla_response_due_at, sla_resolve_due_at, response_warn_at, resolve_warn_at,
               response_breached, resolved_breached`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (code, requester_user_id, title, description, status, priority, created_at,
            sla_response_due_at, sla_resolve_due_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Code,
		ticket.RequesterID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedAt,
		ticket.SLAResponseDueAt,
		ticket.SLAResolveDueAt,
	).Scan(&ticket.ID, &ticket.UpdatedAt)
}

// Update writes workflow fields only. SLA bookkeeping columns are owned by
// ApplyTransition and never overwritten here.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, acknowledged_at=$4, resolved_at=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.AcknowledgedAt,
		ticket.ResolvedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *ticketRepository) ListSLACandidates(ctx context.Context, filter SLACandidateFilter) ([]domain.Ticket, error) {
	where, args, err := filter.whereClause()
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at ASC`, ticketColumns, where)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ApplyTransition(ctx context.Context, ticketID string, transition domain.SLATransition, at time.Time) (bool, error) {
	query, stamped, err := transitionUpdate(transition)
	if err != nil {
		return false, err
	}
	var args []any
	if stamped {
		args = []any{at, ticketID, openStatusStrings()}
	} else {
		args = []any{ticketID, openStatusStrings()}
	}
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) ListSLASnapshots(ctx context.Context) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ticketColumns+` FROM tickets ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Code,
			&ticket.RequesterID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.AcknowledgedAt,
			&ticket.ResolvedAt,
			&ticket.SLAResponseDueAt,
			&ticket.SLAResolveDueAt,
			&ticket.ResponseWarnAt,
			&ticket.ResolveWarnAt,
			&ticket.ResponseBreached,
			&ticket.ResolvedBreached,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
