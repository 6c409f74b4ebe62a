// Package dto provides data transfer objects for publish request and callback endpoints.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/publishq/internal/publish/domain"
	customValidation "github.com/allisson/publishq/internal/validation"
)

// CreatePublishRequest contains the parameters for scheduling a post.
type CreatePublishRequest struct {
	ContentRef    string         `json:"content_ref"`
	Platform      string         `json:"platform"`
	AccountRef    string         `json:"account_ref"`
	Caption       string         `json:"caption"`
	ScheduledFor  *time.Time     `json:"scheduled_for"`
	ExtraMetadata map[string]any `json:"extra_metadata"`
}

// Validate checks the shape of the request. Platform support is checked by the use case.
func (r *CreatePublishRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ContentRef, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&r.Platform, validation.Required, customValidation.Name),
		validation.Field(&r.AccountRef, validation.Required, customValidation.NoWhitespace, validation.Length(1, 255)),
	)
}

// ToInput converts the request into the use case input.
func (r *CreatePublishRequest) ToInput() *domain.CreatePublishInput {
	return &domain.CreatePublishInput{
		ContentRef:    r.ContentRef,
		Platform:      r.Platform,
		AccountRef:    r.AccountRef,
		Caption:       r.Caption,
		ScheduledFor:  r.ScheduledFor,
		ExtraMetadata: r.ExtraMetadata,
	}
}

// CallbackRequest is the body a platform posts when a post is confirmed or fails.
type CallbackRequest struct {
	ExternalPostID string         `json:"external_post_id"`
	Signal         string         `json:"signal"`
	Data           map[string]any `json:"data"`
}

// Validate checks if the callback request is valid.
func (r *CallbackRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ExternalPostID, validation.Required, customValidation.NoWhitespace, validation.Length(1, 255)),
		validation.Field(&r.Signal,
			validation.Required,
			validation.In(string(domain.CallbackSignalConfirmed), string(domain.CallbackSignalFailed)),
		),
	)
}

// ToEvent converts the request into a callback event for platform.
func (r *CallbackRequest) ToEvent(platform string, receivedAt time.Time) *domain.CallbackEvent {
	return &domain.CallbackEvent{
		Platform:       platform,
		ExternalPostID: r.ExternalPostID,
		Signal:         domain.CallbackSignal(r.Signal),
		Data:           r.Data,
		ReceivedAt:     receivedAt,
	}
}
