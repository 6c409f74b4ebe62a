package dto

import (
	"encoding/json"
	"time"

	"github.com/allisson/publishq/internal/job/domain"
)

// JobResponse represents a job in API responses.
type JobResponse struct {
	ID           string          `json:"id"`
	Queue        string          `json:"queue"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        *string         `json:"error,omitempty"`
	AttemptCount int             `json:"attempt_count"`
	DedupKey     *string         `json:"dedup_key,omitempty"`
	RunAfter     time.Time       `json:"run_after"`
	LockedBy     *string         `json:"locked_by,omitempty"`
	LockedAt     *time.Time      `json:"locked_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// MapJobToResponse converts a domain job to an API response.
func MapJobToResponse(job *domain.Job) JobResponse {
	return JobResponse{
		ID:           job.ID.String(),
		Queue:        job.Queue,
		Type:         job.Type,
		Payload:      job.Payload,
		Status:       string(job.Status),
		Result:       job.Result,
		Error:        job.Error,
		AttemptCount: job.AttemptCount,
		DedupKey:     job.DedupKey,
		RunAfter:     job.RunAfter,
		LockedBy:     job.LockedBy,
		LockedAt:     job.LockedAt,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

// ListJobsResponse represents a paginated list of jobs in API responses.
type ListJobsResponse struct {
	Data []JobResponse `json:"data"`
}

// MapJobsToListResponse converts a slice of domain jobs to a list response.
func MapJobsToListResponse(jobs []*domain.Job) ListJobsResponse {
	data := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		data = append(data, MapJobToResponse(job))
	}
	return ListJobsResponse{Data: data}
}

// DrainResponse reports the outcome of a manual drain. Only Processed is set when the queue was idle.
type DrainResponse struct {
	Processed bool   `json:"processed"`
	ID        string `json:"id,omitempty"`
	Type      string `json:"type,omitempty"`
	Status    string `json:"status,omitempty"`
	Attempt   int    `json:"attempt,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MapDrainResultToResponse converts a drain result to an API response.
func MapDrainResultToResponse(result *domain.DrainResult) DrainResponse {
	if !result.Processed {
		return DrainResponse{Processed: false}
	}
	return DrainResponse{
		Processed: true,
		ID:        result.JobID.String(),
		Type:      result.Type,
		Status:    string(result.Status),
		Attempt:   result.Attempt,
		Error:     result.Error,
	}
}

// QueueStatsResponse is one queue's counts by status.
type QueueStatsResponse struct {
	Queue       string           `json:"queue"`
	Counts      map[string]int64 `json:"counts"`
	DeadLetters int64            `json:"dead_letters"`
}

// StatsResponse lists every known queue.
type StatsResponse struct {
	Queues []QueueStatsResponse `json:"queues"`
}

// MapStatsToResponse converts queue statistics to an API response.
func MapStatsToResponse(stats []*domain.QueueStats) StatsResponse {
	queues := make([]QueueStatsResponse, 0, len(stats))
	for _, s := range stats {
		counts := make(map[string]int64, len(s.Counts))
		for status, count := range s.Counts {
			counts[string(status)] = count
		}
		queues = append(queues, QueueStatsResponse{
			Queue:       s.Queue,
			Counts:      counts,
			DeadLetters: s.DeadLetters,
		})
	}
	return StatsResponse{Queues: queues}
}
