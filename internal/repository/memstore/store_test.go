package memstore_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/repository/memstore"
)

var created = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func openTicket(id string) domain.Ticket {
	due := created.Add(4 * time.Hour)
	resolve := created.Add(72 * time.Hour)
	return domain.Ticket{
		ID:               id,
		Status:           domain.TicketStatusNew,
		Priority:         domain.TicketPriorityP3,
		CreatedAt:        created,
		SLAResponseDueAt: &due,
		SLAResolveDueAt:  &resolve,
	}
}

func TestApplyTransitionSingleWinner(t *testing.T) {
	store := memstore.New()
	store.Put(openTicket("t1"))
	repo := store.Tickets()
	tr := domain.SLATransition{Dimension: domain.SLADimensionResponse, Kind: domain.TransitionWarn}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			applied, err := repo.ApplyTransition(context.Background(), "t1", tr, created.Add(time.Duration(i)*time.Second))
			assert.NoError(t, err)
			if applied {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	ticket, ok := store.Ticket("t1")
	require.True(t, ok)
	assert.NotNil(t, ticket.ResponseWarnAt)
	assert.Nil(t, ticket.ResolveWarnAt)
}

func TestApplyTransitionGuards(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	breach := domain.SLATransition{Dimension: domain.SLADimensionResponse, Kind: domain.TransitionBreach}

	closed := openTicket("closed")
	closed.Status = domain.TicketStatusCancelled
	store.Put(closed)

	acked := openTicket("acked")
	acked.AcknowledgedAt = &created
	store.Put(acked)

	for _, id := range []string{"closed", "acked", "missing"} {
		applied, err := store.Tickets().ApplyTransition(ctx, id, breach, created)
		require.NoError(t, err)
		assert.False(t, applied, id)
	}
}

func TestStoredTicketsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.Put(openTicket("t1"))

	got, err := store.Tickets().GetByID(ctx, "t1")
	require.NoError(t, err)
	*got.SLAResponseDueAt = created
	got.ResponseBreached = true

	stored, _ := store.Ticket("t1")
	assert.Equal(t, created.Add(4*time.Hour), *stored.SLAResponseDueAt)
	assert.False(t, stored.ResponseBreached)
}

func TestUpdateDoesNotTouchSLAFlags(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.Put(openTicket("t1"))
	repo := store.Tickets()

	stale, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)

	applied, err := repo.ApplyTransition(ctx, "t1", domain.SLATransition{Dimension: domain.SLADimensionResponse, Kind: domain.TransitionBreach}, created)
	require.NoError(t, err)
	require.True(t, applied)

	stale.Status = domain.TicketStatusAssigned
	require.NoError(t, repo.Update(ctx, stale))

	stored, _ := store.Ticket("t1")
	assert.Equal(t, domain.TicketStatusAssigned, stored.Status)
	assert.True(t, stored.ResponseBreached)
}

func TestMissingRecordsReturnNoRows(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	_, err := store.Tickets().GetByID(ctx, "nope")
	require.ErrorIs(t, err, pgx.ErrNoRows)
	err = store.Tickets().Update(ctx, &domain.Ticket{ID: "nope"})
	require.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = store.Users().GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestListByRoleReturnsActiveUsers(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	users := store.Users()

	require.NoError(t, users.Create(ctx, &domain.User{Email: "b@example.com", Role: domain.UserRoleAdmin, Active: true}))
	require.NoError(t, users.Create(ctx, &domain.User{Email: "a@example.com", Role: domain.UserRoleAdmin, Active: true}))
	require.NoError(t, users.Create(ctx, &domain.User{Email: "off@example.com", Role: domain.UserRoleAdmin}))
	require.NoError(t, users.Create(ctx, &domain.User{Email: "tech@example.com", Role: domain.UserRoleTechnician, Active: true}))

	admins, err := users.ListByRole(ctx, domain.UserRoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Equal(t, "a@example.com", admins[0].Email)
	assert.Equal(t, "b@example.com", admins[1].Email)
}
