package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/publishq/internal/database"
	apperrors "github.com/allisson/publishq/internal/errors"
	"github.com/allisson/publishq/internal/job/domain"
	customValidation "github.com/allisson/publishq/internal/validation"
)

// Page size bounds for dead-letter listings.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 1000
)

type queueUseCase struct {
	txManager database.TxManager
	repo      JobRepository
	now       func() time.Time
}

// NewQueueUseCase creates the queue management use case.
func NewQueueUseCase(txManager database.TxManager, repo JobRepository) QueueUseCase {
	return &queueUseCase{
		txManager: txManager,
		repo:      repo,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func validateEnqueueInput(input *domain.EnqueueInput) error {
	err := validation.ValidateStruct(input,
		validation.Field(&input.Queue, validation.Length(0, 255), customValidation.Name),
		validation.Field(&input.Type, validation.Required, validation.Length(1, 255), customValidation.Name),
		validation.Field(&input.Payload, customValidation.JSONDocument),
		validation.Field(&input.DedupKey, validation.NilOrNotEmpty, validation.Length(1, 255), customValidation.NoWhitespace),
	)
	return customValidation.WrapValidationError(err)
}

// Enqueue stores a new job, or returns the active job already holding the dedup key.
func (uc *queueUseCase) Enqueue(ctx context.Context, input *domain.EnqueueInput) (*domain.Job, bool, error) {
	if input == nil {
		return nil, false, domain.ErrInvalidJob
	}
	if err := validateEnqueueInput(input); err != nil {
		return nil, false, err
	}

	now := uc.now()
	var runAfter time.Time
	if input.RunAfter != nil {
		runAfter = input.RunAfter.UTC()
	}
	job := domain.NewJob(input.Queue, input.Type, input.Payload, input.DedupKey, runAfter, now)

	var (
		result  *domain.Job
		created bool
	)
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if job.DedupKey != nil {
			existing, err := uc.repo.GetActiveByDedupKey(ctx, *job.DedupKey)
			if err == nil {
				result = existing
				return nil
			}
			if !errors.Is(err, domain.ErrJobNotFound) {
				return err
			}
		}

		if err := uc.repo.Create(ctx, job); err != nil {
			return err
		}
		result, created = job, true
		return nil
	})

	// Lost a race with a concurrent enqueue of the same key: the winner's job is the answer.
	if errors.Is(err, domain.ErrDuplicateDedupKey) && job.DedupKey != nil {
		existing, getErr := uc.repo.GetActiveByDedupKey(ctx, *job.DedupKey)
		if getErr != nil {
			return nil, false, apperrors.Join(err, getErr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return result, created, nil
}

// Get returns a job by id.
func (uc *queueUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return uc.repo.GetByID(ctx, id)
}

// Stats returns per-queue counts.
func (uc *queueUseCase) Stats(ctx context.Context) ([]*domain.QueueStats, error) {
	return uc.repo.Stats(ctx)
}

// ListDeadLetters lists failed jobs of queue.
func (uc *queueUseCase) ListDeadLetters(
	ctx context.Context,
	queue string,
	offset, limit int,
) ([]*domain.Job, error) {
	if queue == "" {
		queue = domain.DefaultQueue
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return uc.repo.ListDeadLetters(ctx, queue, offset, limit)
}

// Replay returns a failed job to pending with a fresh attempt budget. The
// dead-letter counter is not decremented; it counts failures, not parked jobs.
func (uc *queueUseCase) Replay(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	var job *domain.Job
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := uc.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != domain.JobStatusFailed {
			return domain.ErrInvalidTransition
		}
		if err := uc.repo.Replay(ctx, id, uc.now()); err != nil {
			return err
		}
		job, err = uc.repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}
