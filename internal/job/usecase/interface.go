// Package usecase implements the queue: enqueueing, dispatching claimed jobs to
// registered handlers, retry and dead-letter policy, and the periodic sweeps.
package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/publishq/internal/job/domain"
)

// Claimer atomically moves the oldest eligible job of a queue to processing.
// It returns domain.ErrJobNotFound when nothing is claimable.
type Claimer interface {
	ClaimNext(ctx context.Context, queue, workerID string, now time.Time) (*domain.Job, error)
}

// JobRepository is the durable queue store.
type JobRepository interface {
	Claimer

	// Create inserts a pending job. Returns domain.ErrDuplicateDedupKey when an
	// active job already holds the same dedup key.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID returns domain.ErrJobNotFound when the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// GetActiveByDedupKey returns the pending, processing or retry job holding key.
	GetActiveByDedupKey(ctx context.Context, key string) (*domain.Job, error)

	// Complete, Fail and ScheduleRetry are only valid from processing and only for
	// the worker that holds the claim, otherwise they return domain.ErrInvalidTransition.
	Complete(ctx context.Context, id uuid.UUID, workerID string, result json.RawMessage) error
	Fail(ctx context.Context, id uuid.UUID, workerID string, errMsg string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, workerID string, errMsg string, runAfter time.Time) error

	// RequeueStale returns processing jobs locked before lockedBefore to pending.
	RequeueStale(ctx context.Context, lockedBefore time.Time) (int64, error)

	// IncrementDeadLetter bumps the queue's dead-letter counter and returns the new value.
	IncrementDeadLetter(ctx context.Context, queue string) (int64, error)

	// ListDeadLetters lists failed jobs of a queue, most recently failed first.
	ListDeadLetters(ctx context.Context, queue string, offset, limit int) ([]*domain.Job, error)

	// Replay moves a failed job back to pending with a fresh attempt budget.
	Replay(ctx context.Context, id uuid.UUID, runAfter time.Time) error

	// Stats returns per-queue status counts and dead-letter counters.
	Stats(ctx context.Context) ([]*domain.QueueStats, error)
}

// Handler processes one job. The returned document is stored as the job result.
// Errors are classified with domain.IsRetryable.
type Handler interface {
	Handle(ctx context.Context, job *domain.Job) (json.RawMessage, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job *domain.Job) (json.RawMessage, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	return f(ctx, job)
}

// FailureObserver is optionally implemented by handlers that keep their own
// state next to the job. OnFailure runs in the same transaction that marks the job failed.
type FailureObserver interface {
	OnFailure(ctx context.Context, job *domain.Job, cause error) error
}

// AlertNotifier receives the operator signal raised when a queue's dead-letter
// counter crosses its threshold.
type AlertNotifier interface {
	NotifyDeadLetterThreshold(ctx context.Context, queue string, count, threshold int64) error
}

// QueueUseCase is the management surface of the queue.
type QueueUseCase interface {
	// Enqueue stores a new job. When the dedup key is held by an active job that
	// job is returned with created=false.
	Enqueue(ctx context.Context, input *domain.EnqueueInput) (job *domain.Job, created bool, err error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	Stats(ctx context.Context) ([]*domain.QueueStats, error)
	ListDeadLetters(ctx context.Context, queue string, offset, limit int) ([]*domain.Job, error)
	Replay(ctx context.Context, id uuid.UUID) (*domain.Job, error)
}

// DrainUseCase processes exactly one job of a queue on demand.
type DrainUseCase interface {
	Drain(ctx context.Context, queue string) (*domain.DrainResult, error)
}
