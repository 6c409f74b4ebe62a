package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/publishq/internal/config"
)

// Runner is a worker pool that blocks until its context is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// BackgroundLoop is a ticker-driven component such as the stale job sweeper or
// the publish reconciler.
type BackgroundLoop interface {
	Start(ctx context.Context) error
}

// WorkerConcurrency resolves the number of poll loops a worker process may start.
// Without SKIP LOCKED support, parallel claims are only safe when the serialized
// claim strategy was chosen explicitly, so anything else runs a single loop.
func WorkerConcurrency(cfg *config.Config, requested int, logger *slog.Logger) int {
	if requested < 1 {
		requested = cfg.WorkerConcurrency
	}
	if requested < 1 {
		requested = 1
	}

	if requested > 1 && !cfg.DBSkipLocked && cfg.ClaimStrategy != config.ClaimStrategySerialized {
		logger.Warn("database cannot claim with SKIP LOCKED, forcing worker concurrency to 1",
			slog.Int("requested", requested),
			slog.String("claim_strategy", cfg.ClaimStrategy),
		)
		return 1
	}
	return requested
}

// RunWorker runs the worker pool next to the stale job sweeper until SIGINT/SIGTERM.
// A nil sweeper runs the pool alone. Jobs already claimed when the signal arrives
// are finished before RunWorker returns.
func RunWorker(ctx context.Context, worker Runner, sweeper BackgroundLoop, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
		return nil
	})
	if sweeper != nil {
		g.Go(func() error {
			if err := sweeper.Start(gctx); err != nil {
				return fmt.Errorf("sweeper error: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		logger.Error("worker process stopped with error", slog.Any("error", err))
		return err
	}
	logger.Info("worker process stopped")
	return nil
}

// RunReconciler runs the publish timeout sweep until SIGINT/SIGTERM.
func RunReconciler(ctx context.Context, reconciler BackgroundLoop, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := reconciler.Start(ctx); err != nil {
		return fmt.Errorf("reconciler error: %w", err)
	}
	logger.Info("reconciler process stopped")
	return nil
}
