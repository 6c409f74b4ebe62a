package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/publishq/internal/job/domain"
	"github.com/allisson/publishq/internal/metrics"
)

// queueUseCaseWithMetrics decorates QueueUseCase with metrics instrumentation.
type queueUseCaseWithMetrics struct {
	next    QueueUseCase
	metrics metrics.BusinessMetrics
}

// NewQueueUseCaseWithMetrics wraps a QueueUseCase with metrics recording.
func NewQueueUseCaseWithMetrics(useCase QueueUseCase, m metrics.BusinessMetrics) QueueUseCase {
	return &queueUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (q *queueUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.RecordOutcome(ctx, q.metrics, "jobs", operation, start, err)
}

// Enqueue records metrics for enqueue operations. A deduplicated enqueue is recorded as "job_enqueue_dedup".
func (q *queueUseCaseWithMetrics) Enqueue(
	ctx context.Context,
	input *domain.EnqueueInput,
) (*domain.Job, bool, error) {
	start := time.Now()
	job, created, err := q.next.Enqueue(ctx, input)

	operation := "job_enqueue"
	if err == nil && !created {
		operation = "job_enqueue_dedup"
	}
	q.record(ctx, operation, start, err)

	return job, created, err
}

// Get records metrics for job lookups.
func (q *queueUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	start := time.Now()
	job, err := q.next.Get(ctx, id)
	q.record(ctx, "job_get", start, err)
	return job, err
}

// Stats records metrics for queue statistics.
func (q *queueUseCaseWithMetrics) Stats(ctx context.Context) ([]*domain.QueueStats, error) {
	start := time.Now()
	stats, err := q.next.Stats(ctx)
	q.record(ctx, "queue_stats", start, err)
	return stats, err
}

// ListDeadLetters records metrics for dead-letter listings.
func (q *queueUseCaseWithMetrics) ListDeadLetters(
	ctx context.Context,
	queue string,
	offset, limit int,
) ([]*domain.Job, error) {
	start := time.Now()
	jobs, err := q.next.ListDeadLetters(ctx, queue, offset, limit)
	q.record(ctx, "dead_letter_list", start, err)
	return jobs, err
}

// Replay records metrics for dead-letter replays.
func (q *queueUseCaseWithMetrics) Replay(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	start := time.Now()
	job, err := q.next.Replay(ctx, id)
	q.record(ctx, "job_replay", start, err)
	return job, err
}
