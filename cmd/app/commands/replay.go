package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/publishq/internal/job/http/dto"
	jobUseCase "github.com/allisson/publishq/internal/job/usecase"
)

// RunReplay moves a dead-lettered job back to pending with a fresh attempt budget.
//
// Requirements: Database must be migrated and accessible.
func RunReplay(
	ctx context.Context,
	queueUseCase jobUseCase.QueueUseCase,
	logger *slog.Logger,
	writer io.Writer,
	jobID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	id, err := uuid.Parse(jobID)
	if err != nil {
		return fmt.Errorf("invalid job ID format: %w", err)
	}

	job, err := queueUseCase.Replay(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to replay job: %w", err)
	}

	logger.Info("job replayed", slog.String("job_id", job.ID.String()), slog.String("queue", job.Queue))

	if format == "json" {
		return outputJSON(dto.MapJobToResponse(job), writer)
	}

	_, _ = fmt.Fprintln(writer, "Job replayed successfully!")
	outputJobText(job, writer)
	return nil
}

// RunListDeadLetters prints the failed jobs of queue, most recently failed first.
func RunListDeadLetters(
	ctx context.Context,
	queueUseCase jobUseCase.QueueUseCase,
	writer io.Writer,
	queue string,
	offset, limit int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if offset < 0 || limit < 1 || limit > 1000 {
		return fmt.Errorf("offset must be >= 0 and limit between 1 and 1000")
	}

	jobs, err := queueUseCase.ListDeadLetters(ctx, queue, offset, limit)
	if err != nil {
		return fmt.Errorf("failed to list dead letters: %w", err)
	}

	if format == "json" {
		return outputJSON(dto.MapJobsToListResponse(jobs), writer)
	}

	if len(jobs) == 0 {
		_, _ = fmt.Fprintf(writer, "No dead-lettered jobs in queue %s\n", queue)
		return nil
	}
	for i, job := range jobs {
		if i > 0 {
			_, _ = fmt.Fprintln(writer)
		}
		outputJobText(job, writer)
	}
	return nil
}
