// Package jobs is a SQL-backed background job queue with a worker pool and
// an interval scheduler
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobPriority represents the priority level of a job; higher runs sooner
type JobPriority int

const (
	PriorityLow    JobPriority = 0
	PriorityNormal JobPriority = 50
	PriorityHigh   JobPriority = 75
)

// Job represents a background job with all its metadata
type Job struct {
	ID          string          `json:"id"`
	Queue       string          `json:"queue"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      JobStatus       `json:"status"`
	Priority    JobPriority     `json:"priority"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	RunAt       time.Time       `json:"runAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	LockedBy    *string         `json:"lockedBy,omitempty"`
	LockedAt    *time.Time      `json:"lockedAt,omitempty"`
}

// NewJob creates a pending job. payload may be nil.
func NewJob(queue, jobType string, payload interface{}) (*Job, error) {
	raw := json.RawMessage(`{}`)
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		raw = b
	}

	now := time.Now().UTC()
	return &Job{
		ID:          uuid.NewString(),
		Queue:       queue,
		Type:        jobType,
		Payload:     raw,
		Status:      JobStatusPending,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		CreatedAt:   now,
		RunAt:       now,
	}, nil
}

// Decode unmarshals the payload into v
func (j *Job) Decode(v interface{}) error {
	if len(j.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", j.Type, err)
	}
	return nil
}

// IsRetryable returns true if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Attempts < j.MaxAttempts
}
