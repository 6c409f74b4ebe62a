package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueueMetrics(t *testing.T) {
	provider, err := NewProvider("queue_test")
	require.NoError(t, err)

	qm, err := NewQueueMetrics(provider.MeterProvider(), "queue_test")

	require.NoError(t, err)
	assert.NotNil(t, qm)
}

func TestQueueMetrics_Integration(t *testing.T) {
	provider, err := NewProvider("queue_integration")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	qm, err := NewQueueMetrics(provider.MeterProvider(), "queue_integration")
	require.NoError(t, err)

	ctx := context.Background()
	qm.RecordJobOutcome(ctx, "default", "email.send", "completed")
	qm.RecordJobOutcome(ctx, "default", "email.send", "completed")
	qm.RecordJobOutcome(ctx, "default", "email.send", "retried")
	qm.RecordHandlerDuration(ctx, "default", "email.send", 20*time.Millisecond, "completed")
	qm.RecordDeadLetterAlert(ctx, "publish")
	qm.RecordStaleRequeued(ctx, 3)
	qm.RecordCallback(ctx, "instagram", "confirmed")
	qm.RecordPublishTimedOut(ctx, 2)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)
	output := w.Body.String()

	assertBizMetricLine(t, output, `queue_integration_jobs_processed_total`,
		`outcome="completed".*queue="default".*type="email.send"`, `2`)
	assertBizMetricLine(t, output, `queue_integration_jobs_processed_total`,
		`outcome="retried".*queue="default".*type="email.send"`, `1`)
	assertBizMetricLine(t, output, `queue_integration_job_handler_duration_seconds_count`,
		`outcome="completed".*queue="default"`, `1`)
	assertBizMetricLine(t, output, `queue_integration_dead_letter_alerts_total`, `queue="publish"`, `1`)
	assertBizMetricLine(t, output, `queue_integration_callbacks_total`,
		`outcome="confirmed".*platform="instagram"`, `1`)
	assert.Contains(t, output, "queue_integration_jobs_requeued_total")
	assert.Contains(t, output, "queue_integration_publish_timed_out_total")
}

func TestNoOpQueueMetrics(t *testing.T) {
	qm := NewNoOpQueueMetrics()
	assert.IsType(t, &NoOpQueueMetrics{}, qm)

	ctx := context.Background()
	qm.RecordJobOutcome(ctx, "q", "t", "completed")
	qm.RecordHandlerDuration(ctx, "q", "t", time.Second, "failed")
	qm.RecordDeadLetterAlert(ctx, "q")
	qm.RecordStaleRequeued(ctx, 1)
	qm.RecordCallback(ctx, "x", "duplicate")
	qm.RecordPublishTimedOut(ctx, 1)
}
