package domain

import (
	"errors"
	"fmt"

	apperrors "github.com/allisson/publishq/internal/errors"
)

var (
	// ErrJobNotFound indicates the job does not exist or nothing is claimable.
	ErrJobNotFound = apperrors.Wrap(apperrors.ErrNotFound, "job not found")

	// ErrInvalidTransition indicates a status change that is not allowed from the job's
	// current state, or attempted by a worker that no longer holds the claim.
	ErrInvalidTransition = apperrors.Wrap(apperrors.ErrConflict, "invalid job status transition")

	// ErrDuplicateDedupKey indicates an active job already holds the dedup key.
	ErrDuplicateDedupKey = apperrors.Wrap(apperrors.ErrConflict, "dedup key already in use")

	// ErrClaimConflict means another worker won the race for a row. It never leaves the store.
	ErrClaimConflict = errors.New("claim conflict")

	// ErrInvalidJob indicates enqueue input that fails validation.
	ErrInvalidJob = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid job")
)

// UnknownTypeError is returned by the dispatcher when no handler is registered
// for a job type. It is fatal: retrying cannot succeed.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("no handler registered for job type %q", e.Type)
}

// TransientError marks a failure worth retrying (timeouts, 5xx, rate limits).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a failure that will not go away on retry (bad credentials, 4xx).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// NewTransientError wraps err as retryable.
func NewTransientError(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// NewPermanentError wraps err as fatal.
func NewPermanentError(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsRetryable classifies a handler error. Unknown types and permanent errors are
// fatal; transient and unclassified errors are retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var unknown *UnknownTypeError
	if errors.As(err, &unknown) {
		return false
	}

	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return false
	}

	return true
}
