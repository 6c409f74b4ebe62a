package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/allisson/publishq/internal/job/domain"
	"github.com/allisson/publishq/internal/job/http/dto"
	jobUseCase "github.com/allisson/publishq/internal/job/usecase"
)

// RunEnqueue stores a job from the command line. An empty payload enqueues an
// empty document and an empty dedup key disables deduplication.
//
// Requirements: Database must be migrated and accessible.
func RunEnqueue(
	ctx context.Context,
	queueUseCase jobUseCase.QueueUseCase,
	logger *slog.Logger,
	writer io.Writer,
	queue, jobType, payload, dedupKey string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	req := &dto.EnqueueJobRequest{
		Queue: queue,
		Type:  jobType,
	}
	if payload != "" {
		req.Payload = json.RawMessage(payload)
	}
	if dedupKey != "" {
		req.DedupKey = &dedupKey
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid enqueue input: %w", err)
	}

	job, created, err := queueUseCase.Enqueue(ctx, req.ToInput())
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	logger.Info("job enqueued",
		slog.String("job_id", job.ID.String()),
		slog.String("queue", job.Queue),
		slog.String("type", job.Type),
		slog.Bool("created", created),
	)

	if format == "json" {
		return outputJSON(map[string]any{
			"created": created,
			"job":     dto.MapJobToResponse(job),
		}, writer)
	}

	if created {
		_, _ = fmt.Fprintln(writer, "Job enqueued successfully!")
	} else {
		_, _ = fmt.Fprintln(writer, "An active job already holds this dedup key, returning it.")
	}
	outputJobText(job, writer)
	return nil
}

// outputJobText prints the fields an operator usually looks at.
func outputJobText(job *domain.Job, writer io.Writer) {
	_, _ = fmt.Fprintf(writer, "Job ID: %s\n", job.ID.String())
	_, _ = fmt.Fprintf(writer, "Queue: %s\n", job.Queue)
	_, _ = fmt.Fprintf(writer, "Type: %s\n", job.Type)
	_, _ = fmt.Fprintf(writer, "Status: %s\n", job.Status)
	_, _ = fmt.Fprintf(writer, "Attempts: %d\n", job.AttemptCount)
	if job.Error != nil {
		_, _ = fmt.Fprintf(writer, "Error: %s\n", *job.Error)
	}
}
