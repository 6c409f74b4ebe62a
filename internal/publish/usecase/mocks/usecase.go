// Package mocks provides mock implementations of the publish use cases for testing.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/publishq/internal/publish/domain"
)

// MockPublishUseCase is a mock implementation of PublishUseCase for testing.
type MockPublishUseCase struct {
	mock.Mock
}

// Create mocks the Create method of PublishUseCase.
func (m *MockPublishUseCase) Create(
	ctx context.Context,
	input *domain.CreatePublishInput,
) (*domain.PublishRequest, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PublishRequest), args.Error(1)
}

// Get mocks the Get method of PublishUseCase.
func (m *MockPublishUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.PublishRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PublishRequest), args.Error(1)
}

// Stats mocks the Stats method of PublishUseCase.
func (m *MockPublishUseCase) Stats(ctx context.Context) (map[domain.PublishStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.PublishStatus]int64), args.Error(1)
}

// MockReconcileUseCase is a mock implementation of ReconcileUseCase for testing.
type MockReconcileUseCase struct {
	mock.Mock
}

// IngestCallback mocks the IngestCallback method of ReconcileUseCase.
func (m *MockReconcileUseCase) IngestCallback(
	ctx context.Context,
	event *domain.CallbackEvent,
) (domain.ReconcileOutcome, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(domain.ReconcileOutcome), args.Error(1)
}

// SweepTimedOut mocks the SweepTimedOut method of ReconcileUseCase.
func (m *MockReconcileUseCase) SweepTimedOut(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
