package domain

import "time"

// JobState tracks a monitoring cycle through the queue.
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// JobTrigger records what enqueued a cycle.
type JobTrigger string

const (
	JobTriggerTimer  JobTrigger = "timer"
	JobTriggerManual JobTrigger = "manual"
)

// CycleJob is one queued scan-and-apply cycle.
type CycleJob struct {
	ID         string     `json:"id"`
	Trigger    JobTrigger `json:"trigger"`
	State      JobState   `json:"state"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// QueueStatus counts cycle jobs per state.
type QueueStatus struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	TotalJobs int `json:"totalJobs"`
}
