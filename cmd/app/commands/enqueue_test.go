package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/publishq/internal/job/domain"
	jobMocks "github.com/allisson/publishq/internal/job/usecase/mocks"
)

func testJob(status domain.JobStatus) *domain.Job {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Job{
		ID:        uuid.Must(uuid.NewV7()),
		Queue:     "default",
		Type:      "system.echo",
		Payload:   json.RawMessage(`{"a":1}`),
		Status:    status,
		RunAfter:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRunEnqueue(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("text-output-created", func(t *testing.T) {
		job := testJob(domain.JobStatusPending)
		mockUseCase := &jobMocks.MockQueueUseCase{}
		mockUseCase.On("Enqueue", ctx, mock.MatchedBy(func(input *domain.EnqueueInput) bool {
			return input.Queue == "default" &&
				input.Type == "system.echo" &&
				string(input.Payload) == `{"a":1}` &&
				input.DedupKey != nil && *input.DedupKey == "echo-1"
		})).Return(job, true, nil)

		var out bytes.Buffer
		err := RunEnqueue(ctx, mockUseCase, logger, &out, "default", "system.echo", `{"a":1}`, "echo-1", "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Job enqueued successfully!")
		require.Contains(t, out.String(), job.ID.String())
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output-existing", func(t *testing.T) {
		job := testJob(domain.JobStatusProcessing)
		mockUseCase := &jobMocks.MockQueueUseCase{}
		mockUseCase.On("Enqueue", ctx, mock.MatchedBy(func(input *domain.EnqueueInput) bool {
			return input.Payload == nil && input.DedupKey != nil
		})).Return(job, false, nil)

		var out bytes.Buffer
		err := RunEnqueue(ctx, mockUseCase, logger, &out, "", "system.echo", "", "echo-1", "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"created": false`)
		require.Contains(t, out.String(), `"status": "processing"`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("no-dedup-key", func(t *testing.T) {
		job := testJob(domain.JobStatusPending)
		mockUseCase := &jobMocks.MockQueueUseCase{}
		mockUseCase.On("Enqueue", ctx, mock.MatchedBy(func(input *domain.EnqueueInput) bool {
			return input.DedupKey == nil
		})).Return(job, true, nil)

		err := RunEnqueue(ctx, mockUseCase, logger, &bytes.Buffer{}, "default", "system.echo", "", "", "text")

		require.NoError(t, err)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-payload", func(t *testing.T) {
		mockUseCase := &jobMocks.MockQueueUseCase{}
		err := RunEnqueue(ctx, mockUseCase, logger, &bytes.Buffer{}, "default", "system.echo", "{not json", "", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid enqueue input")
		mockUseCase.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})

	t.Run("missing-type", func(t *testing.T) {
		mockUseCase := &jobMocks.MockQueueUseCase{}
		err := RunEnqueue(ctx, mockUseCase, logger, &bytes.Buffer{}, "default", "", "", "", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid enqueue input")
	})

	t.Run("invalid-format", func(t *testing.T) {
		mockUseCase := &jobMocks.MockQueueUseCase{}
		err := RunEnqueue(ctx, mockUseCase, logger, &bytes.Buffer{}, "default", "system.echo", "", "", "yaml")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid format")
	})

	t.Run("use-case-error", func(t *testing.T) {
		mockUseCase := &jobMocks.MockQueueUseCase{}
		mockUseCase.On("Enqueue", ctx, mock.Anything).Return(nil, false, errors.New("database down"))

		err := RunEnqueue(ctx, mockUseCase, logger, &bytes.Buffer{}, "default", "system.echo", "", "", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to enqueue job")
		mockUseCase.AssertExpectations(t)
	})
}
