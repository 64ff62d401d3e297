package dto

import "github.com/spec-kit/maintenance-sla/internal/domain"

// TriggerResponse is returned when a manual check is queued.
type TriggerResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

// QueueStatusResponse wraps job counts.
type QueueStatusResponse struct {
	Queue domain.QueueStatus `json:"queue"`
}

// ClearJobsResponse reports removed job records.
type ClearJobsResponse struct {
	Message string `json:"message"`
	Removed int    `json:"removed"`
}
