package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/allisson/publishq/internal/job/domain"
	jobMocks "github.com/allisson/publishq/internal/job/usecase/mocks"
	publishDomain "github.com/allisson/publishq/internal/publish/domain"
	publishMocks "github.com/allisson/publishq/internal/publish/usecase/mocks"
)

func TestRunStats(t *testing.T) {
	ctx := context.Background()
	queueStats := []*domain.QueueStats{
		{
			Queue: "publish",
			Counts: map[domain.JobStatus]int64{
				domain.JobStatusPending: 3,
				domain.JobStatusFailed:  2,
			},
			DeadLetters: 2,
		},
	}
	publishCounts := map[publishDomain.PublishStatus]int64{
		publishDomain.PublishStatusAttempted: 4,
		publishDomain.PublishStatusConfirmed: 9,
	}

	t.Run("text-output", func(t *testing.T) {
		queueUseCase := &jobMocks.MockQueueUseCase{}
		queueUseCase.On("Stats", ctx).Return(queueStats, nil)
		publishUseCase := &publishMocks.MockPublishUseCase{}
		publishUseCase.On("Stats", ctx).Return(publishCounts, nil)

		var out bytes.Buffer
		err := RunStats(ctx, queueUseCase, publishUseCase, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "QUEUE")
		require.Contains(t, out.String(), "publish")
		require.Contains(t, out.String(), "confirmed: 9")
		require.Contains(t, out.String(), "timed_out: 0")
		queueUseCase.AssertExpectations(t)
		publishUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		queueUseCase := &jobMocks.MockQueueUseCase{}
		queueUseCase.On("Stats", ctx).Return(queueStats, nil)
		publishUseCase := &publishMocks.MockPublishUseCase{}
		publishUseCase.On("Stats", ctx).Return(publishCounts, nil)

		var out bytes.Buffer
		err := RunStats(ctx, queueUseCase, publishUseCase, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"dead_letters": 2`)
		require.Contains(t, out.String(), `"attempted": 4`)
	})

	t.Run("without-publish", func(t *testing.T) {
		queueUseCase := &jobMocks.MockQueueUseCase{}
		queueUseCase.On("Stats", ctx).Return(queueStats, nil)

		var out bytes.Buffer
		err := RunStats(ctx, queueUseCase, nil, &out, "text")

		require.NoError(t, err)
		require.NotContains(t, out.String(), "Publish requests")
	})

	t.Run("queue-stats-error", func(t *testing.T) {
		queueUseCase := &jobMocks.MockQueueUseCase{}
		queueUseCase.On("Stats", ctx).Return(nil, errors.New("boom"))

		err := RunStats(ctx, queueUseCase, nil, &bytes.Buffer{}, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to get queue stats")
	})

	t.Run("publish-stats-error", func(t *testing.T) {
		queueUseCase := &jobMocks.MockQueueUseCase{}
		queueUseCase.On("Stats", ctx).Return(queueStats, nil)
		publishUseCase := &publishMocks.MockPublishUseCase{}
		publishUseCase.On("Stats", ctx).Return(nil, errors.New("boom"))

		err := RunStats(ctx, queueUseCase, publishUseCase, &bytes.Buffer{}, "json")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to get publish request stats")
	})
}
