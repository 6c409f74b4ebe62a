package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/publishq/internal/database"
	apperrors "github.com/allisson/publishq/internal/errors"
	jobDomain "github.com/allisson/publishq/internal/job/domain"
	"github.com/allisson/publishq/internal/publish/domain"
	customValidation "github.com/allisson/publishq/internal/validation"
)

// maxCaptionLength is the longest caption any supported platform accepts.
const maxCaptionLength = 5000

type publishUseCase struct {
	txManager database.TxManager
	repo      PublishRequestRepository
	enqueuer  Enqueuer
	platforms PlatformResolver
	now       func() time.Time
}

// NewPublishUseCase creates the publish request use case.
func NewPublishUseCase(
	txManager database.TxManager,
	repo PublishRequestRepository,
	enqueuer Enqueuer,
	platforms PlatformResolver,
) PublishUseCase {
	return &publishUseCase{
		txManager: txManager,
		repo:      repo,
		enqueuer:  enqueuer,
		platforms: platforms,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *publishUseCase) validate(input *domain.CreatePublishInput) error {
	err := validation.ValidateStruct(input,
		validation.Field(&input.ContentRef, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&input.Platform,
			validation.Required,
			validation.By(func(value interface{}) error {
				if !uc.platforms.Supports(value.(string)) {
					return validation.NewError("validation_platform_unsupported", "platform is not supported")
				}
				return nil
			}),
		),
		validation.Field(&input.AccountRef, validation.Required, customValidation.NoWhitespace, validation.Length(1, 255)),
		validation.Field(&input.Caption, validation.Length(0, maxCaptionLength)),
	)
	return customValidation.WrapValidationError(err)
}

// Create stores the request and its publish job atomically. The job becomes
// eligible at ScheduledFor, or immediately when unset.
func (uc *publishUseCase) Create(
	ctx context.Context,
	input *domain.CreatePublishInput,
) (*domain.PublishRequest, error) {
	if input == nil {
		return nil, domain.ErrInvalidPublishRequest
	}
	if err := uc.validate(input); err != nil {
		return nil, err
	}

	req := domain.NewPublishRequest(input, uc.now())
	if req.ScheduledFor != nil {
		scheduled := req.ScheduledFor.UTC()
		req.ScheduledFor = &scheduled
	}

	payload, err := json.Marshal(domain.JobPayload{PublishRequestID: req.ID})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode publish job payload")
	}
	dedupKey := domain.DedupKey(req.ID)

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		job, _, err := uc.enqueuer.Enqueue(ctx, &jobDomain.EnqueueInput{
			Queue:    domain.Queue,
			Type:     domain.JobType,
			Payload:  payload,
			DedupKey: &dedupKey,
			RunAfter: req.ScheduledFor,
		})
		if err != nil {
			return err
		}
		req.JobID = &job.ID
		return uc.repo.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

// Get returns a publish request by id.
func (uc *publishUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.PublishRequest, error) {
	return uc.repo.GetByID(ctx, id)
}

// Stats returns request counts by status, with every status present.
func (uc *publishUseCase) Stats(ctx context.Context) (map[domain.PublishStatus]int64, error) {
	counts, err := uc.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = make(map[domain.PublishStatus]int64, len(domain.AllPublishStatuses))
	}
	for _, status := range domain.AllPublishStatuses {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}
	return counts, nil
}
