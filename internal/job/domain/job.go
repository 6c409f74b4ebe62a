// Package domain defines the queue's work items, their lifecycle and the
// failure taxonomy the worker uses to decide between retrying and dead-lettering.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultQueue is used when an enqueue call does not name a queue.
const DefaultQueue = "default"

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusRetry      JobStatus = "retry"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// AllJobStatuses lists every status in lifecycle order.
var AllJobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusProcessing,
	JobStatusRetry,
	JobStatusCompleted,
	JobStatusFailed,
}

// IsTerminal reports whether no further transition is possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsClaimable reports whether a job in this status may be picked up by a worker.
func (s JobStatus) IsClaimable() bool {
	return s == JobStatusPending || s == JobStatusRetry
}

// Job is a durable unit of work. Payload and Result are opaque JSON documents
// interpreted only by the handler registered for Type.
type Job struct {
	ID           uuid.UUID
	Queue        string
	Type         string
	Payload      json.RawMessage
	Status       JobStatus
	Result       json.RawMessage
	Error        *string
	AttemptCount int
	DedupKey     *string
	RunAfter     time.Time
	LockedBy     *string
	LockedAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewJob builds a pending job ready to be stored.
func NewJob(queue, jobType string, payload json.RawMessage, dedupKey *string, runAfter, now time.Time) *Job {
	if queue == "" {
		queue = DefaultQueue
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if runAfter.IsZero() || runAfter.Before(now) {
		runAfter = now
	}
	return &Job{
		ID:        uuid.Must(uuid.NewV7()),
		Queue:     queue,
		Type:      jobType,
		Payload:   payload,
		Status:    JobStatusPending,
		DedupKey:  dedupKey,
		RunAfter:  runAfter,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AttemptsExhausted reports whether the current attempt is the last one allowed.
// AttemptCount is incremented when the job is claimed, so it already counts the running attempt.
func (j *Job) AttemptsExhausted(maxRetries int) bool {
	return j.AttemptCount >= maxRetries
}

// ErrorText returns the stored error message or an empty string.
func (j *Job) ErrorText() string {
	if j.Error == nil {
		return ""
	}
	return *j.Error
}

// DeadLetterCounter is the running per-queue count of jobs that ended failed.
type DeadLetterCounter struct {
	Queue     string
	Count     int64
	UpdatedAt time.Time
}

// QueueStats summarizes one queue for observability.
type QueueStats struct {
	Queue       string
	Counts      map[JobStatus]int64
	DeadLetters int64
}

// DrainResult is what a manual drain reports back. Processed is false when the
// queue had nothing claimable.
type DrainResult struct {
	Processed bool
	JobID     uuid.UUID
	Type      string
	Status    JobStatus
	Attempt   int
	Error     string
}

// EnqueueInput carries an enqueue request. RunAfter delays eligibility; nil means now.
type EnqueueInput struct {
	Queue    string
	Type     string
	Payload  json.RawMessage
	DedupKey *string
	RunAfter *time.Time
}
