package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/observability"
	"github.com/spec-kit/maintenance-sla/internal/service"
	"github.com/spec-kit/maintenance-sla/internal/sla"
)

// Runner executes one scan-and-apply cycle.
type Runner interface {
	RunCycle(ctx context.Context) (sla.CycleReport, error)
}

// SchedulerConfig tunes the cycle queue.
type SchedulerConfig struct {
	Interval   time.Duration
	Timeout    time.Duration
	Workers    int
	QueueSize  int
	RunOnStart bool
}

// Scheduler enqueues a cycle on every tick and on demand, and drains the
// queue with a fixed pool of workers. Overlapping cycles are allowed; the
// store's conditional update keeps them from double-applying.
type Scheduler struct {
	runner  Runner
	store   JobStore
	clock   clockwork.Clock
	cfg     SchedulerConfig
	queue   chan domain.CycleJob
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewScheduler builds a scheduler. Call Run to start it.
func NewScheduler(runner Runner, store JobStore, clk clockwork.Clock, cfg SchedulerConfig, logger *zap.Logger, metrics *observability.Metrics) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		runner:  runner,
		store:   store,
		clock:   clk,
		cfg:     cfg,
		queue:   make(chan domain.CycleJob, cfg.QueueSize),
		logger:  logger,
		metrics: metrics,
	}
}

// Run drives the ticker and workers until ctx is cancelled. It returns nil on
// a clean shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.tickLoop(gctx)
	})
	for i := 0; i < s.cfg.Workers; i++ {
		workerID := i + 1
		g.Go(func() error {
			return s.work(gctx, workerID)
		})
	}

	s.logger.Info("sla scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("workers", s.cfg.Workers),
		zap.Int("queue_size", s.cfg.QueueSize))
	err := g.Wait()
	s.logger.Info("sla scheduler stopped")
	return err
}

// Trigger enqueues a manual cycle. It fails with service.ErrQueueFull when
// every queue slot is taken.
func (s *Scheduler) Trigger(ctx context.Context) (domain.CycleJob, error) {
	return s.enqueue(ctx, domain.JobTriggerManual)
}

// Status returns job counts per state.
func (s *Scheduler) Status(ctx context.Context) (domain.QueueStatus, error) {
	return s.store.Counts(ctx)
}

// ClearHistory drops completed and failed job records.
func (s *Scheduler) ClearHistory(ctx context.Context) (int, error) {
	return s.store.ClearFinished(ctx)
}

func (s *Scheduler) tickLoop(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	if s.cfg.RunOnStart {
		s.enqueueTick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			s.enqueueTick(ctx)
		}
	}
}

func (s *Scheduler) enqueueTick(ctx context.Context) {
	if _, err := s.enqueue(ctx, domain.JobTriggerTimer); err != nil {
		s.logger.Warn("sla tick skipped", zap.Error(err))
	}
}

func (s *Scheduler) enqueue(ctx context.Context, trigger domain.JobTrigger) (domain.CycleJob, error) {
	job := domain.CycleJob{
		ID:         uuid.NewString(),
		Trigger:    trigger,
		State:      domain.JobStateWaiting,
		EnqueuedAt: s.clock.Now(),
	}
	if err := s.store.Save(ctx, job); err != nil {
		return domain.CycleJob{}, fmt.Errorf("record job: %w", err)
	}
	select {
	case s.queue <- job:
		s.metrics.SetQueueDepth(len(s.queue))
		return job, nil
	default:
		if err := s.store.Delete(context.WithoutCancel(ctx), job.ID); err != nil {
			s.logger.Warn("drop rejected job record failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		return domain.CycleJob{}, service.ErrQueueFull
	}
}

func (s *Scheduler) work(ctx context.Context, workerID int) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-s.queue:
			s.metrics.SetQueueDepth(len(s.queue))
			s.execute(ctx, workerID, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, workerID int, job domain.CycleJob) {
	persistCtx := context.WithoutCancel(ctx)
	started := s.clock.Now()
	job.State = domain.JobStateActive
	job.StartedAt = &started
	if err := s.store.Save(persistCtx, job); err != nil {
		s.logger.Warn("record active job failed", zap.String("job_id", job.ID), zap.Error(err))
	}

	cycleCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	report, err := s.runSafely(cycleCtx)

	finished := s.clock.Now()
	job.FinishedAt = &finished
	job.Summary = report.String()
	outcome := "completed"
	job.State = domain.JobStateCompleted
	if err != nil {
		outcome = "failed"
		job.State = domain.JobStateFailed
		job.Error = err.Error()
	}
	if saveErr := s.store.Save(persistCtx, job); saveErr != nil {
		s.logger.Warn("record finished job failed", zap.String("job_id", job.ID), zap.Error(saveErr))
	}
	s.metrics.RecordCycle(job.Trigger, outcome, finished.Sub(started))

	fields := []zap.Field{
		zap.String("job_id", job.ID),
		zap.String("trigger", string(job.Trigger)),
		zap.Int("worker", workerID),
		zap.Duration("duration", finished.Sub(started)),
		zap.String("summary", job.Summary),
	}
	if err != nil {
		s.logger.Error("sla cycle failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Info("sla cycle completed", fields...)
}

// runSafely keeps a panicking cycle from taking the worker down.
func (s *Scheduler) runSafely(ctx context.Context) (report sla.CycleReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sla cycle panic: %v", r)
		}
	}()
	return s.runner.RunCycle(ctx)
}
