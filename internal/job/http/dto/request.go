// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/json"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/publishq/internal/job/domain"
	customValidation "github.com/allisson/publishq/internal/validation"
)

// EnqueueJobRequest contains the parameters for enqueueing a job.
type EnqueueJobRequest struct {
	Queue    string          `json:"queue"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	DedupKey *string         `json:"dedup_key"`
	RunAfter *time.Time      `json:"run_after"`
}

// Validate checks if the enqueue request is valid.
func (r *EnqueueJobRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Queue, validation.Length(0, 255), customValidation.Name),
		validation.Field(&r.Type,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
			customValidation.Name,
		),
		validation.Field(&r.Payload, customValidation.JSONDocument),
		validation.Field(&r.DedupKey,
			validation.NilOrNotEmpty,
			validation.Length(1, 255),
			customValidation.NoWhitespace,
		),
	)
}

// ToInput converts the request into the use case input.
func (r *EnqueueJobRequest) ToInput() *domain.EnqueueInput {
	return &domain.EnqueueInput{
		Queue:    r.Queue,
		Type:     r.Type,
		Payload:  r.Payload,
		DedupKey: r.DedupKey,
		RunAfter: r.RunAfter,
	}
}
