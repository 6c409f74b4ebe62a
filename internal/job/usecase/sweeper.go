package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/publishq/internal/lock"
	"github.com/allisson/publishq/internal/metrics"
)

const staleSweepLockKey = "publishq:sweep:stale-jobs"

// SweeperConfig configures the visibility-timeout sweep.
type SweeperConfig struct {
	Interval          time.Duration
	VisibilityTimeout time.Duration
	LockTTL           time.Duration
}

// Sweeper returns jobs stuck in processing past the visibility timeout to
// pending. Only one sweeper across processes runs a pass at a time.
type Sweeper struct {
	config  SweeperConfig
	repo    JobRepository
	locker  lock.Locker
	metrics metrics.QueueMetrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewSweeper creates a Sweeper. A nil locker runs every pass unguarded; non-positive
// durations fall back to a one minute interval and a five minute visibility timeout.
func NewSweeper(
	config SweeperConfig,
	repo JobRepository,
	locker lock.Locker,
	queueMetrics metrics.QueueMetrics,
	logger *slog.Logger,
) *Sweeper {
	if queueMetrics == nil {
		queueMetrics = metrics.NewNoOpQueueMetrics()
	}
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = 5 * time.Minute
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 30 * time.Second
	}
	return &Sweeper{
		config:  config,
		repo:    repo,
		locker:  locker,
		metrics: queueMetrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Start runs Sweep on every tick until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info("starting stale job sweeper",
		slog.Duration("interval", s.config.Interval),
		slog.Duration("visibility_timeout", s.config.VisibilityTimeout),
	)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping stale job sweeper")
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("failed to sweep stale jobs", slog.Any("error", err))
			}
		}
	}
}

// Sweep requeues stale jobs once and returns how many were moved.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	var requeued int64
	ran, err := lock.RunExclusive(ctx, s.locker, staleSweepLockKey, s.config.LockTTL, func(ctx context.Context) error {
		n, err := s.repo.RequeueStale(ctx, s.now().Add(-s.config.VisibilityTimeout))
		requeued = n
		return err
	})
	if err != nil {
		return 0, err
	}
	if !ran {
		s.logger.Debug("stale job sweep skipped, another process holds the lock")
		return 0, nil
	}

	if requeued > 0 {
		s.metrics.RecordStaleRequeued(ctx, requeued)
		s.logger.Warn("requeued stale jobs", slog.Int64("count", requeued))
	}
	return requeued, nil
}
