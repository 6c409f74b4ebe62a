// Package usecase implements publish requests on top of the job queue: creating
// them, the publish.post job handler and reconciliation with platform callbacks.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	jobDomain "github.com/allisson/publishq/internal/job/domain"
	"github.com/allisson/publishq/internal/publish/domain"
	"github.com/allisson/publishq/internal/publish/service"
)

// PublishRequestRepository persists publish requests. Transitions are
// conditional on the current status so concurrent writers cannot both win.
type PublishRequestRepository interface {
	Create(ctx context.Context, req *domain.PublishRequest) error

	// GetByID returns domain.ErrPublishRequestNotFound when the request does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PublishRequest, error)

	// GetByExternalPostID returns domain.ErrPublishRequestNotFound when no request of
	// platform carries externalPostID.
	GetByExternalPostID(ctx context.Context, platform, externalPostID string) (*domain.PublishRequest, error)

	// MarkAttempted moves a pending request to attempted and records the provisional
	// post id. An id already stored is never overwritten. Returns
	// domain.ErrPublishRequestResolved when the request is no longer pending and
	// domain.ErrExternalPostIDTaken when another request holds the id.
	MarkAttempted(ctx context.Context, id uuid.UUID, externalPostID string, now time.Time) error

	// MarkFailed fails a pending or attempted request. It reports whether a row changed.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, now time.Time) (bool, error)

	// Resolve moves an attempted request to status, replacing its metadata and
	// flagging the webhook as received. It reports false when the request was no
	// longer attempted, which makes the first callback the only one that counts.
	Resolve(
		ctx context.Context,
		id uuid.UUID,
		status domain.PublishStatus,
		metadata map[string]any,
		lastError *string,
		now time.Time,
	) (bool, error)

	// TimeoutAttempted moves requests attempted at or before attemptedBefore to timed_out.
	TimeoutAttempted(ctx context.Context, attemptedBefore, now time.Time) (int64, error)

	// CountByStatus returns how many requests are in each status.
	CountByStatus(ctx context.Context) (map[domain.PublishStatus]int64, error)
}

// Enqueuer stores jobs. The queue use case satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, input *jobDomain.EnqueueInput) (*jobDomain.Job, bool, error)
}

// PlatformResolver returns the client for a platform.
type PlatformResolver interface {
	Get(platform string) (service.PlatformClient, error)
	Supports(platform string) bool
}

// PublishUseCase is the management surface for publish requests.
type PublishUseCase interface {
	// Create stores the request and enqueues its publish.post job in one transaction.
	Create(ctx context.Context, input *domain.CreatePublishInput) (*domain.PublishRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.PublishRequest, error)
	Stats(ctx context.Context) (map[domain.PublishStatus]int64, error)
}

// ReconcileUseCase closes the gap between attempted and platform-confirmed posts.
type ReconcileUseCase interface {
	// IngestCallback applies a platform callback. Only the first callback for a
	// request changes it; later ones report domain.ReconcileDuplicate.
	IngestCallback(ctx context.Context, event *domain.CallbackEvent) (domain.ReconcileOutcome, error)

	// SweepTimedOut times out requests that stayed attempted for longer than the window.
	SweepTimedOut(ctx context.Context) (int64, error)
}
