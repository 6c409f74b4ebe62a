package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jobDomain "github.com/allisson/publishq/internal/job/domain"
	jobUseCase "github.com/allisson/publishq/internal/job/usecase"
	"github.com/allisson/publishq/internal/publish/domain"
	"github.com/allisson/publishq/internal/publish/service"
)

// PublishHandler runs publish.post jobs. A platform acknowledgment only makes
// the request attempted; reconciliation decides whether it was published.
type PublishHandler struct {
	repo      PublishRequestRepository
	accounts  service.AccountResolver
	platforms PlatformResolver
	logger    *slog.Logger
	now       func() time.Time
}

var (
	_ jobUseCase.Handler         = (*PublishHandler)(nil)
	_ jobUseCase.FailureObserver = (*PublishHandler)(nil)
)

// NewPublishHandler creates the publish.post job handler.
func NewPublishHandler(
	repo PublishRequestRepository,
	accounts service.AccountResolver,
	platforms PlatformResolver,
	logger *slog.Logger,
) *PublishHandler {
	return &PublishHandler{
		repo:      repo,
		accounts:  accounts,
		platforms: platforms,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// publishResult is stored as the job result.
type publishResult struct {
	PublishRequestID string `json:"publish_request_id"`
	Status           string `json:"status"`
	ExternalPostID   string `json:"external_post_id,omitempty"`
	Skipped          bool   `json:"skipped,omitempty"`
}

func encodeResult(req *domain.PublishRequest, skipped bool) (json.RawMessage, error) {
	result := publishResult{
		PublishRequestID: req.ID.String(),
		Status:           string(req.Status),
		Skipped:          skipped,
	}
	if req.ExternalPostID != nil {
		result.ExternalPostID = *req.ExternalPostID
	}
	return json.Marshal(result)
}

// Handle publishes the request named by the job payload.
func (h *PublishHandler) Handle(ctx context.Context, job *jobDomain.Job) (json.RawMessage, error) {
	payload, err := domain.ParseJobPayload(job.Payload)
	if err != nil {
		return nil, jobDomain.NewPermanentError(err)
	}

	req, err := h.repo.GetByID(ctx, payload.PublishRequestID)
	if err != nil {
		if errors.Is(err, domain.ErrPublishRequestNotFound) {
			return nil, jobDomain.NewPermanentError(err)
		}
		return nil, err
	}

	// An earlier attempt already got an acknowledgment, or the request was
	// resolved meanwhile. Posting again would duplicate the post.
	if req.Status != domain.PublishStatusPending {
		h.logger.Info("publish request already past pending, skipping",
			slog.String("publish_request_id", req.ID.String()),
			slog.String("status", string(req.Status)))
		return encodeResult(req, true)
	}

	creds, err := h.accounts.Resolve(ctx, req.Platform, req.AccountRef)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, jobDomain.NewPermanentError(err)
		}
		return nil, err
	}

	client, err := h.platforms.Get(req.Platform)
	if err != nil {
		return nil, jobDomain.NewPermanentError(err)
	}

	ack, err := client.Publish(ctx, &service.PublishInput{
		RequestID:   req.ID,
		Platform:    req.Platform,
		AccountRef:  creds.AccountRef,
		AccessToken: creds.AccessToken,
		ContentRef:  req.ContentRef,
		Caption:     req.Caption,
		Metadata:    req.ExtraMetadata,
	})
	if err != nil {
		return nil, err
	}

	now := h.now()
	if err := h.repo.MarkAttempted(ctx, req.ID, ack.ExternalPostID, now); err != nil {
		switch {
		case errors.Is(err, domain.ErrExternalPostIDTaken):
			return nil, jobDomain.NewPermanentError(err)
		case errors.Is(err, domain.ErrPublishRequestResolved):
			current, getErr := h.repo.GetByID(ctx, req.ID)
			if getErr != nil {
				return nil, getErr
			}
			return encodeResult(current, true)
		default:
			return nil, fmt.Errorf("failed to record publish attempt: %w", err)
		}
	}

	req.Status = domain.PublishStatusAttempted
	req.ExternalPostID = &ack.ExternalPostID
	req.AttemptedAt = &now

	h.logger.Info("publish attempted",
		slog.String("publish_request_id", req.ID.String()),
		slog.String("platform", req.Platform),
		slog.String("external_post_id", ack.ExternalPostID))

	return encodeResult(req, false)
}

// OnFailure marks the request failed once its job is dead-lettered.
func (h *PublishHandler) OnFailure(ctx context.Context, job *jobDomain.Job, cause error) error {
	payload, err := domain.ParseJobPayload(job.Payload)
	if err != nil {
		// Nothing to mark.
		return nil
	}

	msg := "publish job failed"
	if cause != nil {
		msg = cause.Error()
	}

	changed, err := h.repo.MarkFailed(ctx, payload.PublishRequestID, msg, h.now())
	if err != nil {
		return err
	}
	if changed {
		h.logger.Warn("publish request failed",
			slog.String("publish_request_id", payload.PublishRequestID.String()),
			slog.String("error", msg))
	}
	return nil
}
