package worker_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/worker"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*worker.RedisJobStore, *redis.Client) {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	prefix := "sla-test-" + uuid.NewString()
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	})
	return worker.NewRedisJobStore(client, prefix, ttl), client
}

func TestRedisJobStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, time.Hour)

	job := domain.CycleJob{ID: uuid.NewString(), Trigger: domain.JobTriggerManual, State: domain.JobStateWaiting, EnqueuedAt: time.Now().UTC()}
	require.NoError(t, store.Save(ctx, job))

	job.State = domain.JobStateActive
	require.NoError(t, store.Save(ctx, job))
	status, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatus{Active: 1, TotalJobs: 1}, status)

	job.State = domain.JobStateCompleted
	job.Summary = "warnings 0/0, breaches 0/0, skipped 0, failed 0"
	require.NoError(t, store.Save(ctx, job))

	loaded, err := store.Job(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateCompleted, loaded.State)
	assert.Equal(t, job.Summary, loaded.Summary)

	removed, err := store.ClearFinished(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	status, err = store.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.TotalJobs)
}

func TestRedisJobStorePrunesExpiredHistory(t *testing.T) {
	ctx := context.Background()
	store, client := newRedisStore(t, time.Hour)

	job := domain.CycleJob{ID: uuid.NewString(), State: domain.JobStateFailed}
	require.NoError(t, store.Save(ctx, job))

	keys, err := client.Keys(ctx, "*:job:"+job.ID).Result()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.NoError(t, client.Del(ctx, keys[0]).Err())

	status, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Failed)
}

func TestRedisJobStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, 0)

	job := domain.CycleJob{ID: uuid.NewString(), State: domain.JobStateWaiting}
	require.NoError(t, store.Save(ctx, job))
	require.NoError(t, store.Delete(ctx, job.ID))

	_, err := store.Job(ctx, job.ID)
	require.Error(t, err)
	status, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.TotalJobs)
}
