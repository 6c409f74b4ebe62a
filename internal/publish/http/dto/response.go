package dto

import (
	"time"

	"github.com/allisson/publishq/internal/publish/domain"
)

// PublishRequestResponse represents a publish request in API responses.
type PublishRequestResponse struct {
	ID              string         `json:"id"`
	JobID           *string        `json:"job_id,omitempty"`
	ContentRef      string         `json:"content_ref"`
	Platform        string         `json:"platform"`
	AccountRef      string         `json:"account_ref"`
	Caption         string         `json:"caption"`
	Status          string         `json:"status"`
	ExternalPostID  *string        `json:"external_post_id,omitempty"`
	ExtraMetadata   map[string]any `json:"extra_metadata"`
	WebhookReceived bool           `json:"webhook_received"`
	LastError       *string        `json:"last_error,omitempty"`
	ScheduledFor    *time.Time     `json:"scheduled_for,omitempty"`
	AttemptedAt     *time.Time     `json:"attempted_at,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// MapPublishRequestToResponse converts a domain publish request to an API response.
func MapPublishRequestToResponse(req *domain.PublishRequest) PublishRequestResponse {
	var jobID *string
	if req.JobID != nil {
		id := req.JobID.String()
		jobID = &id
	}

	metadata := req.ExtraMetadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return PublishRequestResponse{
		ID:              req.ID.String(),
		JobID:           jobID,
		ContentRef:      req.ContentRef,
		Platform:        req.Platform,
		AccountRef:      req.AccountRef,
		Caption:         req.Caption,
		Status:          string(req.Status),
		ExternalPostID:  req.ExternalPostID,
		ExtraMetadata:   metadata,
		WebhookReceived: req.WebhookReceived,
		LastError:       req.LastError,
		ScheduledFor:    req.ScheduledFor,
		AttemptedAt:     req.AttemptedAt,
		ResolvedAt:      req.ResolvedAt,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
	}
}

// CallbackResponse reports what a callback did.
type CallbackResponse struct {
	Outcome string `json:"outcome"`
}

// PublishStatsResponse holds publish request counts by status.
type PublishStatsResponse struct {
	Counts map[string]int64 `json:"counts"`
}

// MapPublishStatsToResponse converts status counts to an API response.
func MapPublishStatsToResponse(counts map[domain.PublishStatus]int64) PublishStatsResponse {
	out := make(map[string]int64, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	return PublishStatsResponse{Counts: out}
}
