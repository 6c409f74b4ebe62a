package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/allisson/publishq/internal/database"
	"github.com/allisson/publishq/internal/lock"
	"github.com/allisson/publishq/internal/metrics"
	"github.com/allisson/publishq/internal/publish/domain"
)

const timeoutSweepLockKey = "publishq:sweep:publish-timeouts"

// defaultPlatformFailure is stored when a failed callback carries no error text.
const defaultPlatformFailure = "platform reported failure"

// ReconcilerConfig configures reconciliation.
type ReconcilerConfig struct {
	// Timeout is how long a request may stay attempted without a callback.
	Timeout  time.Duration
	Interval time.Duration
	LockTTL  time.Duration
}

var _ ReconcileUseCase = (*Reconciler)(nil)

// Reconciler applies platform callbacks and times out requests that never get one.
type Reconciler struct {
	config    ReconcilerConfig
	txManager database.TxManager
	repo      PublishRequestRepository
	locker    lock.Locker
	metrics   metrics.QueueMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewReconciler creates a Reconciler. A nil locker lets every process run the timeout sweep.
func NewReconciler(
	config ReconcilerConfig,
	txManager database.TxManager,
	repo PublishRequestRepository,
	locker lock.Locker,
	queueMetrics metrics.QueueMetrics,
	logger *slog.Logger,
) *Reconciler {
	if queueMetrics == nil {
		queueMetrics = metrics.NewNoOpQueueMetrics()
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Minute
	}
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 30 * time.Second
	}
	return &Reconciler{
		config:    config,
		txManager: txManager,
		repo:      repo,
		locker:    locker,
		metrics:   queueMetrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func validateCallback(event *domain.CallbackEvent) error {
	if event == nil ||
		strings.TrimSpace(event.Platform) == "" ||
		strings.TrimSpace(event.ExternalPostID) == "" ||
		!event.Signal.IsValid() {
		return domain.ErrInvalidCallback
	}
	return nil
}

// IngestCallback matches the event to a request by platform and post id. An
// attempted request gets the event data merged into its metadata and moves to
// confirmed, or failed when the platform rejected the post. Anything else is a no-op.
func (r *Reconciler) IngestCallback(
	ctx context.Context,
	event *domain.CallbackEvent,
) (domain.ReconcileOutcome, error) {
	if err := validateCallback(event); err != nil {
		return "", err
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = r.now()
	}

	var outcome domain.ReconcileOutcome
	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		req, err := r.repo.GetByExternalPostID(ctx, event.Platform, event.ExternalPostID)
		if errors.Is(err, domain.ErrPublishRequestNotFound) {
			outcome = domain.ReconcileUnmatched
			return nil
		}
		if err != nil {
			return err
		}

		if req.Status != domain.PublishStatusAttempted {
			outcome = domain.ReconcileDuplicate
			return nil
		}

		metadata := domain.MergeMetadata(req.ExtraMetadata, event.Data)
		metadata["callback_received_at"] = event.ReceivedAt.UTC().Format(time.RFC3339Nano)

		var lastError *string
		if event.Signal == domain.CallbackSignalFailed {
			msg := defaultPlatformFailure
			if text, ok := event.Data["error"].(string); ok && text != "" {
				msg = text
			}
			lastError = &msg
		}

		changed, err := r.repo.Resolve(ctx, req.ID, event.Signal.TargetStatus(), metadata, lastError, r.now())
		if err != nil {
			return err
		}
		if !changed {
			outcome = domain.ReconcileDuplicate
			return nil
		}
		outcome = event.Signal.Outcome()
		return nil
	})
	if err != nil {
		return "", err
	}

	r.metrics.RecordCallback(ctx, event.Platform, string(outcome))
	r.logger.Info("callback ingested",
		slog.String("platform", event.Platform),
		slog.String("external_post_id", event.ExternalPostID),
		slog.String("signal", string(event.Signal)),
		slog.String("outcome", string(outcome)))

	return outcome, nil
}

// SweepTimedOut moves requests attempted longer than Timeout ago to timed_out.
// When another process holds the sweep lock nothing happens.
func (r *Reconciler) SweepTimedOut(ctx context.Context) (int64, error) {
	var timedOut int64
	ran, err := lock.RunExclusive(ctx, r.locker, timeoutSweepLockKey, r.config.LockTTL, func(ctx context.Context) error {
		now := r.now()
		n, err := r.repo.TimeoutAttempted(ctx, now.Add(-r.config.Timeout), now)
		timedOut = n
		return err
	})
	if err != nil {
		return 0, err
	}
	if !ran {
		r.logger.Debug("publish timeout sweep skipped, another process holds the lock")
		return 0, nil
	}

	if timedOut > 0 {
		r.metrics.RecordPublishTimedOut(ctx, timedOut)
		r.logger.Warn("publish requests timed out without confirmation",
			slog.Int64("count", timedOut),
			slog.Duration("timeout", r.config.Timeout))
	}
	return timedOut, nil
}

// Start runs SweepTimedOut on every tick until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) error {
	r.logger.Info("starting publish reconciler",
		slog.Duration("interval", r.config.Interval),
		slog.Duration("timeout", r.config.Timeout),
	)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping publish reconciler")
			return nil
		case <-ticker.C:
			if _, err := r.SweepTimedOut(ctx); err != nil {
				r.logger.Error("failed to sweep timed out publish requests", slog.Any("error", err))
			}
		}
	}
}
