package dto

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/publishq/internal/publish/domain"
)

func TestCreatePublishRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       CreatePublishRequest
		shouldErr bool
	}{
		{
			name:      "valid",
			req:       CreatePublishRequest{ContentRef: "video-1", Platform: "tiktok", AccountRef: "brand"},
			shouldErr: false,
		},
		{name: "missing content", req: CreatePublishRequest{Platform: "tiktok", AccountRef: "brand"}, shouldErr: true},
		{
			name:      "blank content",
			req:       CreatePublishRequest{ContentRef: "  ", Platform: "tiktok", AccountRef: "brand"},
			shouldErr: true,
		},
		{name: "missing platform", req: CreatePublishRequest{ContentRef: "v", AccountRef: "brand"}, shouldErr: true},
		{
			name:      "bad platform",
			req:       CreatePublishRequest{ContentRef: "v", Platform: "tik tok", AccountRef: "brand"},
			shouldErr: true,
		},
		{
			name:      "spaced account",
			req:       CreatePublishRequest{ContentRef: "v", Platform: "tiktok", AccountRef: "my brand"},
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreatePublishRequest_ToInput(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	req := CreatePublishRequest{
		ContentRef:    "video-1",
		Platform:      "tiktok",
		AccountRef:    "brand",
		Caption:       "hello",
		ScheduledFor:  &at,
		ExtraMetadata: map[string]any{"campaign": "launch"},
	}

	input := req.ToInput()

	assert.Equal(t, "video-1", input.ContentRef)
	assert.Equal(t, "tiktok", input.Platform)
	assert.Equal(t, "brand", input.AccountRef)
	assert.Equal(t, "hello", input.Caption)
	assert.Equal(t, &at, input.ScheduledFor)
	assert.Equal(t, "launch", input.ExtraMetadata["campaign"])
}

func TestCallbackRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       CallbackRequest
		shouldErr bool
	}{
		{name: "confirmed", req: CallbackRequest{ExternalPostID: "tt-1", Signal: "confirmed"}, shouldErr: false},
		{name: "failed", req: CallbackRequest{ExternalPostID: "tt-1", Signal: "failed"}, shouldErr: false},
		{name: "unknown signal", req: CallbackRequest{ExternalPostID: "tt-1", Signal: "deleted"}, shouldErr: true},
		{name: "missing post id", req: CallbackRequest{Signal: "confirmed"}, shouldErr: true},
		{name: "missing signal", req: CallbackRequest{ExternalPostID: "tt-1"}, shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCallbackRequest_ToEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	req := CallbackRequest{ExternalPostID: "tt-1", Signal: "failed", Data: map[string]any{"error": "rejected"}}

	event := req.ToEvent("tiktok", at)

	assert.Equal(t, "tiktok", event.Platform)
	assert.Equal(t, "tt-1", event.ExternalPostID)
	assert.Equal(t, domain.CallbackSignalFailed, event.Signal)
	assert.Equal(t, "rejected", event.Data["error"])
	assert.Equal(t, at, event.ReceivedAt)
}

func TestMapPublishRequestToResponse(t *testing.T) {
	jobID := uuid.Must(uuid.NewV7())
	req := &domain.PublishRequest{
		ID:         uuid.Must(uuid.NewV7()),
		JobID:      &jobID,
		ContentRef: "video-1",
		Platform:   "tiktok",
		Status:     domain.PublishStatusPending,
	}

	resp := MapPublishRequestToResponse(req)

	require.NotNil(t, resp.JobID)
	assert.Equal(t, jobID.String(), *resp.JobID)
	assert.Equal(t, "pending", resp.Status)
	assert.NotNil(t, resp.ExtraMetadata)
	assert.Nil(t, resp.ExternalPostID)
}

func TestMapPublishStatsToResponse(t *testing.T) {
	resp := MapPublishStatsToResponse(map[domain.PublishStatus]int64{
		domain.PublishStatusAttempted: 2,
		domain.PublishStatusConfirmed: 5,
	})

	assert.Equal(t, int64(2), resp.Counts["attempted"])
	assert.Equal(t, int64(5), resp.Counts["confirmed"])
}
