package worker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/worker"
)

func TestMemoryJobStoreTrimsHistory(t *testing.T) {
	ctx := context.Background()
	store := worker.NewMemoryJobStore(2)

	for _, id := range []string{"j1", "j2", "j3"} {
		require.NoError(t, store.Save(ctx, domain.CycleJob{ID: id, State: domain.JobStateWaiting}))
		require.NoError(t, store.Save(ctx, domain.CycleJob{ID: id, State: domain.JobStateCompleted}))
	}
	require.NoError(t, store.Save(ctx, domain.CycleJob{ID: "j4", State: domain.JobStateActive}))

	_, ok := store.Job("j1")
	assert.False(t, ok)

	status, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatus{Active: 1, Completed: 2, TotalJobs: 3}, status)
}

func TestMemoryJobStoreResaveDoesNotDoubleCount(t *testing.T) {
	ctx := context.Background()
	store := worker.NewMemoryJobStore(1)

	require.NoError(t, store.Save(ctx, domain.CycleJob{ID: "j1", State: domain.JobStateFailed}))
	require.NoError(t, store.Save(ctx, domain.CycleJob{ID: "j1", State: domain.JobStateFailed, Error: "boom"}))

	job, ok := store.Job("j1")
	require.True(t, ok)
	assert.Equal(t, "boom", job.Error)
}

func TestMemoryJobStoreClearFinished(t *testing.T) {
	ctx := context.Background()
	store := worker.NewMemoryJobStore(0)

	require.NoError(t, store.Save(ctx, domain.CycleJob{ID: "w", State: domain.JobStateWaiting}))
	require.NoError(t, store.Save(ctx, domain.CycleJob{ID: "c", State: domain.JobStateCompleted}))
	require.NoError(t, store.Save(ctx, domain.CycleJob{ID: "f", State: domain.JobStateFailed}))

	removed, err := store.ClearFinished(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	status, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatus{Waiting: 1, TotalJobs: 1}, status)
}
