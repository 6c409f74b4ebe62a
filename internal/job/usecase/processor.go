package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/publishq/internal/database"
	"github.com/allisson/publishq/internal/job/domain"
	"github.com/allisson/publishq/internal/metrics"
)

// ProcessorConfig holds the retry and dead-letter policy.
type ProcessorConfig struct {
	// MaxRetries is the total number of attempts a job gets.
	MaxRetries int
	// Backoff computes the delay before each retry.
	Backoff domain.BackoffPolicy
	// DeadLetterThreshold raises an alert when a queue's counter reaches it. Zero disables alerts.
	DeadLetterThreshold int64
}

// Processor claims one job at a time and drives it to its next state. Handler
// errors never escape: they become a retry or a failure. Only store errors are returned.
type Processor struct {
	config    ProcessorConfig
	txManager database.TxManager
	repo      JobRepository
	claimer   Claimer
	registry  *Registry
	notifier  AlertNotifier
	metrics   metrics.QueueMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewProcessor creates a Processor. A nil claimer claims straight from repo;
// notifier and queueMetrics are optional.
func NewProcessor(
	config ProcessorConfig,
	txManager database.TxManager,
	repo JobRepository,
	claimer Claimer,
	registry *Registry,
	notifier AlertNotifier,
	queueMetrics metrics.QueueMetrics,
	logger *slog.Logger,
) *Processor {
	if claimer == nil {
		claimer = repo
	}
	if queueMetrics == nil {
		queueMetrics = metrics.NewNoOpQueueMetrics()
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	return &Processor{
		config:    config,
		txManager: txManager,
		repo:      repo,
		claimer:   claimer,
		registry:  registry,
		notifier:  notifier,
		metrics:   queueMetrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Drain claims and processes exactly one job of queue under a one-off worker id.
// The caller going away (an HTTP client disconnecting) does not interrupt the
// job: once claimed it runs to its outcome write, as in the worker loop.
func (p *Processor) Drain(ctx context.Context, queue string) (*domain.DrainResult, error) {
	if queue == "" {
		queue = domain.DefaultQueue
	}
	return p.ProcessNext(context.WithoutCancel(ctx), queue, "drain-"+uuid.Must(uuid.NewV7()).String())
}

// ProcessNext claims the next eligible job of queue and processes it. The result
// has Processed=false when nothing was claimable.
func (p *Processor) ProcessNext(ctx context.Context, queue, workerID string) (*domain.DrainResult, error) {
	job, err := p.claimer.ClaimNext(ctx, queue, workerID, p.now())
	if errors.Is(err, domain.ErrJobNotFound) {
		return &domain.DrainResult{Processed: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	return p.process(ctx, job, workerID)
}

func (p *Processor) process(ctx context.Context, job *domain.Job, workerID string) (*domain.DrainResult, error) {
	logger := p.logger.With(
		slog.String("job_id", job.ID.String()),
		slog.String("queue", job.Queue),
		slog.String("type", job.Type),
		slog.Int("attempt", job.AttemptCount),
		slog.String("worker_id", workerID),
	)
	result := &domain.DrainResult{
		Processed: true,
		JobID:     job.ID,
		Type:      job.Type,
		Attempt:   job.AttemptCount,
	}

	// A job reclaimed by the visibility sweep may come back with its budget already spent.
	if job.AttemptCount > p.config.MaxRetries {
		cause := fmt.Errorf("attempt budget of %d exhausted", p.config.MaxRetries)
		return p.fail(ctx, job, workerID, cause, result, logger)
	}

	start := time.Now()
	output, handlerErr := p.dispatch(ctx, job)
	elapsed := time.Since(start)

	switch {
	case handlerErr == nil:
		if err := p.repo.Complete(ctx, job.ID, workerID, output); err != nil {
			return p.transitionFailed(result, err, logger)
		}
		result.Status = domain.JobStatusCompleted
		p.record(ctx, job, "completed", elapsed)
		logger.Debug("job completed", slog.Duration("duration", elapsed))
		return result, nil

	case domain.IsRetryable(handlerErr) && !job.AttemptsExhausted(p.config.MaxRetries):
		delay := p.config.Backoff.Delay(job.AttemptCount)
		if err := p.repo.ScheduleRetry(ctx, job.ID, workerID, handlerErr.Error(), p.now().Add(delay)); err != nil {
			return p.transitionFailed(result, err, logger)
		}
		result.Status = domain.JobStatusRetry
		result.Error = handlerErr.Error()
		p.record(ctx, job, "retried", elapsed)
		logger.Warn("job scheduled for retry",
			slog.Duration("delay", delay),
			slog.Any("error", handlerErr),
		)
		return result, nil

	default:
		p.metrics.RecordHandlerDuration(ctx, job.Queue, job.Type, elapsed, "failed")
		return p.fail(ctx, job, workerID, handlerErr, result, logger)
	}
}

// dispatch runs the handler, turning a panic into a permanent failure.
func (p *Processor) dispatch(ctx context.Context, job *domain.Job) (output json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = domain.NewPermanentError(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return p.registry.Dispatch(ctx, job)
}

// fail parks the job, lets the handler update its own state and bumps the
// dead-letter counter, all in one transaction.
func (p *Processor) fail(
	ctx context.Context,
	job *domain.Job,
	workerID string,
	cause error,
	result *domain.DrainResult,
	logger *slog.Logger,
) (*domain.DrainResult, error) {
	var count int64
	err := p.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := p.repo.Fail(ctx, job.ID, workerID, cause.Error()); err != nil {
			return err
		}

		if handler, ok := p.registry.Lookup(job.Type); ok {
			if observer, ok := handler.(FailureObserver); ok {
				if err := observer.OnFailure(ctx, job, cause); err != nil {
					return fmt.Errorf("failure observer: %w", err)
				}
			}
		}

		var err error
		count, err = p.repo.IncrementDeadLetter(ctx, job.Queue)
		return err
	})
	if err != nil {
		return p.transitionFailed(result, err, logger)
	}

	result.Status = domain.JobStatusFailed
	result.Error = cause.Error()
	p.metrics.RecordJobOutcome(ctx, job.Queue, job.Type, "failed")
	logger.Error("job failed", slog.Any("error", cause), slog.Int64("dead_letter_count", count))

	p.checkThreshold(ctx, job.Queue, count)
	return result, nil
}

// checkThreshold signals once, when the counter moves from below the threshold to at or above it.
func (p *Processor) checkThreshold(ctx context.Context, queue string, count int64) {
	threshold := p.config.DeadLetterThreshold
	if threshold <= 0 || count < threshold || count-1 >= threshold {
		return
	}

	p.logger.Warn("dead letter threshold crossed",
		slog.String("queue", queue),
		slog.Int64("count", count),
		slog.Int64("threshold", threshold),
	)
	p.metrics.RecordDeadLetterAlert(ctx, queue)

	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifyDeadLetterThreshold(ctx, queue, count, threshold); err != nil {
		p.logger.Error("failed to notify dead letter threshold",
			slog.String("queue", queue),
			slog.Any("error", err),
		)
	}
}

// transitionFailed reports a lost claim in the result; any other store error is returned.
func (p *Processor) transitionFailed(
	result *domain.DrainResult,
	err error,
	logger *slog.Logger,
) (*domain.DrainResult, error) {
	if errors.Is(err, domain.ErrInvalidTransition) {
		logger.Warn("job claim lost before its outcome was stored", slog.Any("error", err))
		result.Status = domain.JobStatusProcessing
		result.Error = err.Error()
		return result, nil
	}
	return result, fmt.Errorf("failed to store job outcome: %w", err)
}

func (p *Processor) record(ctx context.Context, job *domain.Job, outcome string, elapsed time.Duration) {
	p.metrics.RecordJobOutcome(ctx, job.Queue, job.Type, outcome)
	p.metrics.RecordHandlerDuration(ctx, job.Queue, job.Type, elapsed, outcome)
}
