// Package domain defines publish requests, the platform callbacks that confirm
// them and the outcomes of reconciling the two.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// JobType is the job type the publish handler is registered under.
	JobType = "publish.post"
	// Queue is the queue publish jobs are enqueued on.
	Queue = "publish"
)

// PublishStatus is the lifecycle state of a publish request.
type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "pending"
	PublishStatusAttempted PublishStatus = "attempted"
	PublishStatusConfirmed PublishStatus = "confirmed"
	PublishStatusFailed    PublishStatus = "failed"
	PublishStatusTimedOut  PublishStatus = "timed_out"
)

// AllPublishStatuses lists every status in lifecycle order.
var AllPublishStatuses = []PublishStatus{
	PublishStatusPending,
	PublishStatusAttempted,
	PublishStatusConfirmed,
	PublishStatusFailed,
	PublishStatusTimedOut,
}

// IsResolved reports whether the request reached a final state.
func (s PublishStatus) IsResolved() bool {
	switch s {
	case PublishStatusConfirmed, PublishStatusFailed, PublishStatusTimedOut:
		return true
	default:
		return false
	}
}

// PublishRequest is one piece of content to be posted to one platform account.
// ExternalPostID is provisional until a callback confirms it.
type PublishRequest struct {
	ID              uuid.UUID
	JobID           *uuid.UUID
	ContentRef      string
	Platform        string
	AccountRef      string
	Caption         string
	Status          PublishStatus
	ExternalPostID  *string
	ExtraMetadata   map[string]any
	WebhookReceived bool
	LastError       *string
	ScheduledFor    *time.Time
	AttemptedAt     *time.Time
	ResolvedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreatePublishInput carries a new publish request.
type CreatePublishInput struct {
	ContentRef    string
	Platform      string
	AccountRef    string
	Caption       string
	ScheduledFor  *time.Time
	ExtraMetadata map[string]any
}

// NewPublishRequest builds a pending request.
func NewPublishRequest(input *CreatePublishInput, now time.Time) *PublishRequest {
	metadata := input.ExtraMetadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &PublishRequest{
		ID:            uuid.Must(uuid.NewV7()),
		ContentRef:    input.ContentRef,
		Platform:      input.Platform,
		AccountRef:    input.AccountRef,
		Caption:       input.Caption,
		Status:        PublishStatusPending,
		ExtraMetadata: metadata,
		ScheduledFor:  input.ScheduledFor,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// DedupKey is the job dedup key for a request, so one request never has two active publish jobs.
func DedupKey(id uuid.UUID) string {
	return fmt.Sprintf("publish:%s", id)
}

// JobPayload is the payload of a publish.post job.
type JobPayload struct {
	PublishRequestID uuid.UUID `json:"publish_request_id"`
}

// ParseJobPayload decodes a publish.post payload.
func ParseJobPayload(payload json.RawMessage) (*JobPayload, error) {
	var p JobPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid publish payload: %w", err)
	}
	if p.PublishRequestID == uuid.Nil {
		return nil, fmt.Errorf("invalid publish payload: missing publish_request_id")
	}
	return &p, nil
}

// MergeMetadata returns a copy of base with every key of extra applied on top.
func MergeMetadata(base, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
