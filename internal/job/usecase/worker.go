package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// WorkerConfig configures a worker process.
type WorkerConfig struct {
	Queue        string
	WorkerID     string
	Concurrency  int
	PollInterval time.Duration
}

// Worker runs claim-process loops against one queue until its context is cancelled.
type Worker struct {
	config    WorkerConfig
	processor *Processor
	logger    *slog.Logger
}

// NewWorker creates a Worker. An empty WorkerID is replaced by DefaultWorkerID.
func NewWorker(config WorkerConfig, processor *Processor, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = DefaultWorkerID()
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	return &Worker{config: config, processor: processor, logger: logger}
}

// DefaultWorkerID identifies this process in locked_by.
func DefaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.Must(uuid.NewV7()).String()[:8])
}

// Run blocks until ctx is cancelled. A job already claimed when the stop
// signal arrives is processed to completion before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("starting worker",
		slog.String("queue", w.config.Queue),
		slog.String("worker_id", w.config.WorkerID),
		slog.Int("concurrency", w.config.Concurrency),
		slog.Duration("poll_interval", w.config.PollInterval),
	)

	var g errgroup.Group
	for i := 0; i < w.config.Concurrency; i++ {
		workerID := w.config.WorkerID
		if w.config.Concurrency > 1 {
			workerID = fmt.Sprintf("%s/%d", w.config.WorkerID, i)
		}
		g.Go(func() error {
			w.loop(ctx, workerID)
			return nil
		})
	}
	err := g.Wait()

	w.logger.Info("worker stopped", slog.String("worker_id", w.config.WorkerID))
	return err
}

func (w *Worker) loop(ctx context.Context, workerID string) {
	for {
		if ctx.Err() != nil {
			return
		}

		result, err := w.processor.ProcessNext(context.WithoutCancel(ctx), w.config.Queue, workerID)
		if err != nil {
			w.logger.Error("failed to process job",
				slog.String("queue", w.config.Queue),
				slog.String("worker_id", workerID),
				slog.Any("error", err),
			)
			if !w.wait(ctx) {
				return
			}
			continue
		}

		if !result.Processed && !w.wait(ctx) {
			return
		}
	}
}

// wait sleeps for the poll interval and reports false when ctx ends first.
func (w *Worker) wait(ctx context.Context) bool {
	timer := time.NewTimer(w.config.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
