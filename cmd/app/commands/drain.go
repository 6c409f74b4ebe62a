package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/allisson/publishq/internal/job/http/dto"
	jobUseCase "github.com/allisson/publishq/internal/job/usecase"
)

// RunDrain claims and processes exactly one job of queue.
//
// Requirements: Database must be migrated and accessible.
func RunDrain(
	ctx context.Context,
	drainUseCase jobUseCase.DrainUseCase,
	logger *slog.Logger,
	writer io.Writer,
	queue string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	result, err := drainUseCase.Drain(ctx, queue)
	if err != nil {
		return fmt.Errorf("failed to drain queue: %w", err)
	}

	logger.Info("drain completed",
		slog.String("queue", queue),
		slog.Bool("processed", result.Processed),
	)

	if format == "json" {
		return outputJSON(dto.MapDrainResultToResponse(result), writer)
	}

	if !result.Processed {
		_, _ = fmt.Fprintf(writer, "No claimable job in queue %s\n", queue)
		return nil
	}
	_, _ = fmt.Fprintf(writer, "Processed job %s (%s)\n", result.JobID.String(), result.Type)
	_, _ = fmt.Fprintf(writer, "Status: %s\n", result.Status)
	_, _ = fmt.Fprintf(writer, "Attempt: %d\n", result.Attempt)
	if result.Error != "" {
		_, _ = fmt.Fprintf(writer, "Error: %s\n", result.Error)
	}
	return nil
}
