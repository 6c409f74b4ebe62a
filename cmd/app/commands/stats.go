package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	jobDomain "github.com/allisson/publishq/internal/job/domain"
	jobDTO "github.com/allisson/publishq/internal/job/http/dto"
	jobUseCase "github.com/allisson/publishq/internal/job/usecase"
	publishDomain "github.com/allisson/publishq/internal/publish/domain"
	publishDTO "github.com/allisson/publishq/internal/publish/http/dto"
	publishUseCase "github.com/allisson/publishq/internal/publish/usecase"
)

// statsOutput is the json shape of the stats command.
type statsOutput struct {
	Queues          []jobDTO.QueueStatsResponse     `json:"queues"`
	PublishRequests publishDTO.PublishStatsResponse `json:"publish_requests"`
}

// RunStats prints per-queue job counts, dead-letter counters and publish request counts.
// A nil publishUseCase skips the publish section.
//
// Requirements: Database must be migrated and accessible.
func RunStats(
	ctx context.Context,
	queueUseCase jobUseCase.QueueUseCase,
	publishUseCase publishUseCase.PublishUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	queueStats, err := queueUseCase.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get queue stats: %w", err)
	}

	publishCounts := map[publishDomain.PublishStatus]int64{}
	if publishUseCase != nil {
		publishCounts, err = publishUseCase.Stats(ctx)
		if err != nil {
			return fmt.Errorf("failed to get publish request stats: %w", err)
		}
	}

	if format == "json" {
		return outputJSON(statsOutput{
			Queues:          jobDTO.MapStatsToResponse(queueStats).Queues,
			PublishRequests: publishDTO.MapPublishStatsToResponse(publishCounts),
		}, writer)
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprint(tw, "QUEUE")
	for _, status := range jobDomain.AllJobStatuses {
		_, _ = fmt.Fprintf(tw, "\t%s", status)
	}
	_, _ = fmt.Fprintln(tw, "\tdead_letters")
	for _, s := range queueStats {
		_, _ = fmt.Fprint(tw, s.Queue)
		for _, status := range jobDomain.AllJobStatuses {
			_, _ = fmt.Fprintf(tw, "\t%d", s.Counts[status])
		}
		_, _ = fmt.Fprintf(tw, "\t%d\n", s.DeadLetters)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}

	if publishUseCase == nil {
		return nil
	}
	_, _ = fmt.Fprintln(writer, "\nPublish requests:")
	for _, status := range publishDomain.AllPublishStatuses {
		_, _ = fmt.Fprintf(writer, "  %s: %d\n", status, publishCounts[status])
	}
	return nil
}
