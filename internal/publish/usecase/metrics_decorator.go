package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/publishq/internal/metrics"
	"github.com/allisson/publishq/internal/publish/domain"
)

// publishUseCaseWithMetrics decorates PublishUseCase with metrics instrumentation.
type publishUseCaseWithMetrics struct {
	next    PublishUseCase
	metrics metrics.BusinessMetrics
}

// NewPublishUseCaseWithMetrics wraps a PublishUseCase with metrics recording.
func NewPublishUseCaseWithMetrics(useCase PublishUseCase, m metrics.BusinessMetrics) PublishUseCase {
	return &publishUseCaseWithMetrics{next: useCase, metrics: m}
}

func (p *publishUseCaseWithMetrics) Create(
	ctx context.Context,
	input *domain.CreatePublishInput,
) (*domain.PublishRequest, error) {
	start := time.Now()
	req, err := p.next.Create(ctx, input)
	metrics.RecordOutcome(ctx, p.metrics, "publish", "publish_create", start, err)
	return req, err
}

func (p *publishUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*domain.PublishRequest, error) {
	start := time.Now()
	req, err := p.next.Get(ctx, id)
	metrics.RecordOutcome(ctx, p.metrics, "publish", "publish_get", start, err)
	return req, err
}

func (p *publishUseCaseWithMetrics) Stats(ctx context.Context) (map[domain.PublishStatus]int64, error) {
	start := time.Now()
	counts, err := p.next.Stats(ctx)
	metrics.RecordOutcome(ctx, p.metrics, "publish", "publish_stats", start, err)
	return counts, err
}

// reconcileUseCaseWithMetrics decorates ReconcileUseCase with metrics instrumentation.
type reconcileUseCaseWithMetrics struct {
	next    ReconcileUseCase
	metrics metrics.BusinessMetrics
}

// NewReconcileUseCaseWithMetrics wraps a ReconcileUseCase with metrics recording.
func NewReconcileUseCaseWithMetrics(useCase ReconcileUseCase, m metrics.BusinessMetrics) ReconcileUseCase {
	return &reconcileUseCaseWithMetrics{next: useCase, metrics: m}
}

func (r *reconcileUseCaseWithMetrics) IngestCallback(
	ctx context.Context,
	event *domain.CallbackEvent,
) (domain.ReconcileOutcome, error) {
	start := time.Now()
	outcome, err := r.next.IngestCallback(ctx, event)
	metrics.RecordOutcome(ctx, r.metrics, "reconcile", "callback_ingest", start, err)
	return outcome, err
}

func (r *reconcileUseCaseWithMetrics) SweepTimedOut(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := r.next.SweepTimedOut(ctx)
	metrics.RecordOutcome(ctx, r.metrics, "reconcile", "timeout_sweep", start, err)
	return n, err
}
