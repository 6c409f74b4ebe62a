package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QueueMetrics records worker and reconciliation activity.
type QueueMetrics interface {
	// RecordJobOutcome counts a processed job. Outcome is "completed", "retried" or "failed".
	RecordJobOutcome(ctx context.Context, queue, jobType, outcome string)
	// RecordHandlerDuration records how long the handler ran for one attempt.
	RecordHandlerDuration(ctx context.Context, queue, jobType string, duration time.Duration, outcome string)
	// RecordDeadLetterAlert counts threshold crossings of the dead-letter counter.
	RecordDeadLetterAlert(ctx context.Context, queue string)
	// RecordStaleRequeued counts jobs returned to pending by the visibility sweep.
	RecordStaleRequeued(ctx context.Context, count int64)
	// RecordCallback counts ingested platform callbacks by reconcile outcome.
	RecordCallback(ctx context.Context, platform, outcome string)
	// RecordPublishTimedOut counts publish requests moved to timed_out.
	RecordPublishTimedOut(ctx context.Context, count int64)
}

type queueMetrics struct {
	jobCounter      metric.Int64Counter
	handlerDuration metric.Float64Histogram
	alertCounter    metric.Int64Counter
	requeueCounter  metric.Int64Counter
	callbackCounter metric.Int64Counter
	timeoutCounter  metric.Int64Counter
}

// NewQueueMetrics creates QueueMetrics on the given meter provider.
func NewQueueMetrics(meterProvider metric.MeterProvider, namespace string) (QueueMetrics, error) {
	meter := meterProvider.Meter(namespace)

	jobCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_jobs_processed_total", namespace),
		metric.WithDescription("Total number of processed job attempts by outcome"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job counter: %w", err)
	}

	handlerDuration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_job_handler_duration_seconds", namespace),
		metric.WithDescription("Duration of job handler invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create handler duration histogram: %w", err)
	}

	alertCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_dead_letter_alerts_total", namespace),
		metric.WithDescription("Number of times a queue crossed its dead-letter alert threshold"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dead letter alert counter: %w", err)
	}

	requeueCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_jobs_requeued_total", namespace),
		metric.WithDescription("Jobs reclaimed after exceeding the visibility timeout"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requeue counter: %w", err)
	}

	callbackCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_callbacks_total", namespace),
		metric.WithDescription("Platform callbacks ingested by reconcile outcome"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create callback counter: %w", err)
	}

	timeoutCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_publish_timed_out_total", namespace),
		metric.WithDescription("Publish requests that never received a confirming callback"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create timeout counter: %w", err)
	}

	return &queueMetrics{
		jobCounter:      jobCounter,
		handlerDuration: handlerDuration,
		alertCounter:    alertCounter,
		requeueCounter:  requeueCounter,
		callbackCounter: callbackCounter,
		timeoutCounter:  timeoutCounter,
	}, nil
}

func (q *queueMetrics) RecordJobOutcome(ctx context.Context, queue, jobType, outcome string) {
	q.jobCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("queue", queue),
		attribute.String("type", jobType),
		attribute.String("outcome", outcome),
	))
}

func (q *queueMetrics) RecordHandlerDuration(
	ctx context.Context,
	queue, jobType string,
	duration time.Duration,
	outcome string,
) {
	q.handlerDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("queue", queue),
		attribute.String("type", jobType),
		attribute.String("outcome", outcome),
	))
}

func (q *queueMetrics) RecordDeadLetterAlert(ctx context.Context, queue string) {
	q.alertCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("queue", queue)))
}

func (q *queueMetrics) RecordStaleRequeued(ctx context.Context, count int64) {
	q.requeueCounter.Add(ctx, count)
}

func (q *queueMetrics) RecordCallback(ctx context.Context, platform, outcome string) {
	q.callbackCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("platform", platform),
		attribute.String("outcome", outcome),
	))
}

func (q *queueMetrics) RecordPublishTimedOut(ctx context.Context, count int64) {
	q.timeoutCounter.Add(ctx, count)
}

// NoOpQueueMetrics discards everything.
type NoOpQueueMetrics struct{}

// NewNoOpQueueMetrics creates a no-op QueueMetrics implementation.
func NewNoOpQueueMetrics() QueueMetrics {
	return &NoOpQueueMetrics{}
}

func (n *NoOpQueueMetrics) RecordJobOutcome(ctx context.Context, queue, jobType, outcome string) {}

func (n *NoOpQueueMetrics) RecordHandlerDuration(
	ctx context.Context,
	queue, jobType string,
	duration time.Duration,
	outcome string,
) {
}

func (n *NoOpQueueMetrics) RecordDeadLetterAlert(ctx context.Context, queue string) {}

func (n *NoOpQueueMetrics) RecordStaleRequeued(ctx context.Context, count int64) {}

func (n *NoOpQueueMetrics) RecordCallback(ctx context.Context, platform, outcome string) {}

func (n *NoOpQueueMetrics) RecordPublishTimedOut(ctx context.Context, count int64) {}
