// Package mocks provides mock implementations of the queue use cases for testing.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/publishq/internal/job/domain"
)

// MockQueueUseCase is a mock implementation of QueueUseCase for testing.
type MockQueueUseCase struct {
	mock.Mock
}

// Enqueue mocks the Enqueue method of QueueUseCase.
func (m *MockQueueUseCase) Enqueue(ctx context.Context, input *domain.EnqueueInput) (*domain.Job, bool, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Job), args.Bool(1), args.Error(2)
}

// Get mocks the Get method of QueueUseCase.
func (m *MockQueueUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

// Stats mocks the Stats method of QueueUseCase.
func (m *MockQueueUseCase) Stats(ctx context.Context) ([]*domain.QueueStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QueueStats), args.Error(1)
}

// ListDeadLetters mocks the ListDeadLetters method of QueueUseCase.
func (m *MockQueueUseCase) ListDeadLetters(
	ctx context.Context,
	queue string,
	offset, limit int,
) ([]*domain.Job, error) {
	args := m.Called(ctx, queue, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

// Replay mocks the Replay method of QueueUseCase.
func (m *MockQueueUseCase) Replay(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

// MockDrainUseCase is a mock implementation of DrainUseCase for testing.
type MockDrainUseCase struct {
	mock.Mock
}

// Drain mocks the Drain method of DrainUseCase.
func (m *MockDrainUseCase) Drain(ctx context.Context, queue string) (*domain.DrainResult, error) {
	args := m.Called(ctx, queue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DrainResult), args.Error(1)
}
