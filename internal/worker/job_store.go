package worker

import (
	"context"
	"sync"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

// JobStore records cycle jobs and their state transitions.
type JobStore interface {
	Save(ctx context.Context, job domain.CycleJob) error
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context) (domain.QueueStatus, error)
	ClearFinished(ctx context.Context) (int, error)
}

// MemoryJobStore keeps job records in process. Finished jobs beyond the
// history limit are dropped oldest first.
type MemoryJobStore struct {
	mu       sync.Mutex
	jobs     map[string]domain.CycleJob
	finished []string
	limit    int
}

// NewMemoryJobStore builds a store. A non-positive limit keeps every job.
func NewMemoryJobStore(historyLimit int) *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]domain.CycleJob), limit: historyLimit}
}

func (s *MemoryJobStore) Save(_ context.Context, job domain.CycleJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.jobs[job.ID]
	s.jobs[job.ID] = job
	if isFinished(job.State) && !(existed && isFinished(prev.State)) {
		s.finished = append(s.finished, job.ID)
		s.trimLocked()
	}
	return nil
}

func (s *MemoryJobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *MemoryJobStore) Counts(_ context.Context) (domain.QueueStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var status domain.QueueStatus
	for _, job := range s.jobs {
		switch job.State {
		case domain.JobStateWaiting:
			status.Waiting++
		case domain.JobStateActive:
			status.Active++
		case domain.JobStateCompleted:
			status.Completed++
		case domain.JobStateFailed:
			status.Failed++
		}
	}
	status.TotalJobs = status.Waiting + status.Active + status.Completed + status.Failed
	return status, nil
}

func (s *MemoryJobStore) ClearFinished(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if isFinished(job.State) {
			delete(s.jobs, id)
			removed++
		}
	}
	s.finished = nil
	return removed, nil
}

// Job returns a copy of the stored job.
func (s *MemoryJobStore) Job(id string) (domain.CycleJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return job, ok
}

func (s *MemoryJobStore) trimLocked() {
	if s.limit <= 0 {
		return
	}
	for len(s.finished) > s.limit {
		delete(s.jobs, s.finished[0])
		s.finished = s.finished[1:]
	}
}

func isFinished(state domain.JobState) bool {
	return state == domain.JobStateCompleted || state == domain.JobStateFailed
}
