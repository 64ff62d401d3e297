package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/service"
	"github.com/spec-kit/maintenance-sla/internal/sla"
	"github.com/spec-kit/maintenance-sla/internal/worker"
)

var start = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type runnerFunc func(ctx context.Context) (sla.CycleReport, error)

func (f runnerFunc) RunCycle(ctx context.Context) (sla.CycleReport, error) { return f(ctx) }

func countingRunner(calls *atomic.Int32) runnerFunc {
	return func(context.Context) (sla.CycleReport, error) {
		calls.Add(1)
		return sla.CycleReport{WarningCandidates: 1, WarningsApplied: 1}, nil
	}
}

func startScheduler(t *testing.T, s *worker.Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("scheduler did not stop")
		}
	})
}

func waitForCounts(t *testing.T, store worker.JobStore, check func(domain.QueueStatus) bool) domain.QueueStatus {
	t.Helper()
	var last domain.QueueStatus
	require.Eventually(t, func() bool {
		status, err := store.Counts(context.Background())
		if err != nil {
			return false
		}
		last = status
		return check(status)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func TestSchedulerRunsCycleOnEveryTick(t *testing.T) {
	var calls atomic.Int32
	clk := clockwork.NewFakeClockAt(start)
	store := worker.NewMemoryJobStore(0)
	s := worker.NewScheduler(countingRunner(&calls), store, clk, worker.SchedulerConfig{Interval: 5 * time.Minute}, nil, nil)
	startScheduler(t, s)

	clk.BlockUntil(1)
	assert.Zero(t, calls.Load())

	clk.Advance(5 * time.Minute)
	waitForCounts(t, store, func(st domain.QueueStatus) bool { return st.Completed == 1 })

	clk.Advance(5 * time.Minute)
	status := waitForCounts(t, store, func(st domain.QueueStatus) bool { return st.Completed == 2 })
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, 2, status.TotalJobs)
}

func TestSchedulerRunOnStart(t *testing.T) {
	var calls atomic.Int32
	clk := clockwork.NewFakeClockAt(start)
	store := worker.NewMemoryJobStore(0)
	s := worker.NewScheduler(countingRunner(&calls), store, clk, worker.SchedulerConfig{Interval: time.Hour, RunOnStart: true}, nil, nil)
	startScheduler(t, s)

	waitForCounts(t, store, func(st domain.QueueStatus) bool { return st.Completed == 1 })
	assert.EqualValues(t, 1, calls.Load())
}

func TestTriggerRecordsSummary(t *testing.T) {
	var calls atomic.Int32
	store := worker.NewMemoryJobStore(0)
	s := worker.NewScheduler(countingRunner(&calls), store, clockwork.NewFakeClockAt(start), worker.SchedulerConfig{Interval: time.Hour}, nil, nil)

	job, err := s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.JobTriggerManual, job.Trigger)
	assert.Equal(t, domain.JobStateWaiting, job.State)
	assert.Equal(t, start, job.EnqueuedAt)

	startScheduler(t, s)
	waitForCounts(t, store, func(st domain.QueueStatus) bool { return st.Completed == 1 })

	stored, ok := store.Job(job.ID)
	require.True(t, ok)
	assert.Equal(t, "warnings 1/1, breaches 0/0, skipped 0, failed 0", stored.Summary)
	assert.Empty(t, stored.Error)
	assert.NotNil(t, stored.StartedAt)
	assert.NotNil(t, stored.FinishedAt)
}

func TestTriggerFailsWhenQueueFull(t *testing.T) {
	var calls atomic.Int32
	store := worker.NewMemoryJobStore(0)
	s := worker.NewScheduler(countingRunner(&calls), store, clockwork.NewFakeClockAt(start), worker.SchedulerConfig{Interval: time.Hour, QueueSize: 1}, nil, nil)

	_, err := s.Trigger(context.Background())
	require.NoError(t, err)
	_, err = s.Trigger(context.Background())
	require.ErrorIs(t, err, service.ErrQueueFull)

	status, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatus{Waiting: 1, TotalJobs: 1}, status)
}

func TestFailedAndPanickingCyclesAreRecorded(t *testing.T) {
	cases := map[string]runnerFunc{
		"error": func(context.Context) (sla.CycleReport, error) {
			return sla.CycleReport{Failed: 1}, errors.New("apply failed")
		},
		"panic": func(context.Context) (sla.CycleReport, error) {
			panic("nil ticket")
		},
	}
	for name, runner := range cases {
		t.Run(name, func(t *testing.T) {
			store := worker.NewMemoryJobStore(0)
			s := worker.NewScheduler(runner, store, clockwork.NewFakeClockAt(start), worker.SchedulerConfig{Interval: time.Hour}, nil, nil)

			job, err := s.Trigger(context.Background())
			require.NoError(t, err)
			startScheduler(t, s)
			waitForCounts(t, store, func(st domain.QueueStatus) bool { return st.Failed == 1 })

			stored, _ := store.Job(job.ID)
			assert.Equal(t, domain.JobStateFailed, stored.State)
			assert.NotEmpty(t, stored.Error)
		})
	}
}

func TestWorkerSurvivesPanic(t *testing.T) {
	var calls atomic.Int32
	runner := runnerFunc(func(context.Context) (sla.CycleReport, error) {
		if calls.Add(1) == 1 {
			panic("first cycle")
		}
		return sla.CycleReport{}, nil
	})
	store := worker.NewMemoryJobStore(0)
	s := worker.NewScheduler(runner, store, clockwork.NewFakeClockAt(start), worker.SchedulerConfig{Interval: time.Hour}, nil, nil)
	startScheduler(t, s)

	_, err := s.Trigger(context.Background())
	require.NoError(t, err)
	waitForCounts(t, store, func(st domain.QueueStatus) bool { return st.Failed == 1 })

	_, err = s.Trigger(context.Background())
	require.NoError(t, err)
	waitForCounts(t, store, func(st domain.QueueStatus) bool { return st.Completed == 1 })
}

func TestCycleTimeout(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context) (sla.CycleReport, error) {
		<-ctx.Done()
		return sla.CycleReport{}, ctx.Err()
	})
	store := worker.NewMemoryJobStore(0)
	s := worker.NewScheduler(runner, store, clockwork.NewFakeClockAt(start),
		worker.SchedulerConfig{Interval: time.Hour, Timeout: 20 * time.Millisecond}, nil, nil)

	job, err := s.Trigger(context.Background())
	require.NoError(t, err)
	startScheduler(t, s)
	waitForCounts(t, store, func(st domain.QueueStatus) bool { return st.Failed == 1 })

	stored, _ := store.Job(job.ID)
	assert.Contains(t, stored.Error, context.DeadlineExceeded.Error())
}

func TestClearHistory(t *testing.T) {
	var calls atomic.Int32
	store := worker.NewMemoryJobStore(0)
	s := worker.NewScheduler(countingRunner(&calls), store, clockwork.NewFakeClockAt(start), worker.SchedulerConfig{Interval: time.Hour}, nil, nil)
	startScheduler(t, s)

	for i := 0; i < 3; i++ {
		_, err := s.Trigger(context.Background())
		require.NoError(t, err)
	}
	waitForCounts(t, store, func(st domain.QueueStatus) bool { return st.Completed == 3 })

	removed, err := s.ClearHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	status, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.Zero(t, status.TotalJobs)
}
