package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/publishq/internal/publish/domain"
	"github.com/allisson/publishq/internal/publish/usecase/mocks"
)

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func expectOperation(m *mockBusinessMetrics, ctx context.Context, metricsDomain, operation, status string) {
	m.On("RecordOperation", ctx, metricsDomain, operation, status).Return().Once()
	m.On("RecordDuration", ctx, metricsDomain, operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

func TestPublishMetricsDecorator(t *testing.T) {
	ctx := context.Background()

	t.Run("Create_Success", func(t *testing.T) {
		useCase := &mocks.MockPublishUseCase{}
		m := &mockBusinessMetrics{}
		input := &domain.CreatePublishInput{Platform: "tiktok"}
		req := &domain.PublishRequest{ID: uuid.Must(uuid.NewV7())}

		useCase.On("Create", ctx, input).Return(req, nil).Once()
		expectOperation(m, ctx, "publish", "publish_create", "success")

		got, err := NewPublishUseCaseWithMetrics(useCase, m).Create(ctx, input)

		assert.NoError(t, err)
		assert.Equal(t, req, got)
		useCase.AssertExpectations(t)
		m.AssertExpectations(t)
	})

	t.Run("Get_Error", func(t *testing.T) {
		useCase := &mocks.MockPublishUseCase{}
		m := &mockBusinessMetrics{}
		id := uuid.Must(uuid.NewV7())

		useCase.On("Get", ctx, id).Return(nil, domain.ErrPublishRequestNotFound).Once()
		expectOperation(m, ctx, "publish", "publish_get", "error")

		_, err := NewPublishUseCaseWithMetrics(useCase, m).Get(ctx, id)

		assert.ErrorIs(t, err, domain.ErrPublishRequestNotFound)
		useCase.AssertExpectations(t)
		m.AssertExpectations(t)
	})
}

func TestReconcileMetricsDecorator(t *testing.T) {
	ctx := context.Background()

	t.Run("IngestCallback", func(t *testing.T) {
		useCase := &mocks.MockReconcileUseCase{}
		m := &mockBusinessMetrics{}
		event := &domain.CallbackEvent{Platform: "tiktok", ExternalPostID: "tt-1", Signal: domain.CallbackSignalConfirmed}

		useCase.On("IngestCallback", ctx, event).Return(domain.ReconcileConfirmed, nil).Once()
		expectOperation(m, ctx, "reconcile", "callback_ingest", "success")

		outcome, err := NewReconcileUseCaseWithMetrics(useCase, m).IngestCallback(ctx, event)

		assert.NoError(t, err)
		assert.Equal(t, domain.ReconcileConfirmed, outcome)
		m.AssertExpectations(t)
	})

	t.Run("SweepTimedOut_Error", func(t *testing.T) {
		useCase := &mocks.MockReconcileUseCase{}
		m := &mockBusinessMetrics{}

		useCase.On("SweepTimedOut", ctx).Return(int64(0), errors.New("db down")).Once()
		expectOperation(m, ctx, "reconcile", "timeout_sweep", "error")

		_, err := NewReconcileUseCaseWithMetrics(useCase, m).SweepTimedOut(ctx)

		assert.EqualError(t, err, "db down")
		m.AssertExpectations(t)
	})
}
