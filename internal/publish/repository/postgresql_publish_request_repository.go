package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/publishq/internal/database"
	apperrors "github.com/allisson/publishq/internal/errors"
	"github.com/allisson/publishq/internal/publish/domain"
)

const postgresPublishColumns = `id, job_id, content_ref, platform, account_ref, caption, status, external_post_id,
	extra_metadata, webhook_received, last_error, scheduled_for, attempted_at, resolved_at, created_at, updated_at`

// PostgreSQLPublishRequestRepository implements publish request persistence for PostgreSQL.
type PostgreSQLPublishRequestRepository struct {
	db *sql.DB
}

// NewPostgreSQLPublishRequestRepository creates a new PostgreSQL publish request repository instance.
func NewPostgreSQLPublishRequestRepository(db *sql.DB) *PostgreSQLPublishRequestRepository {
	return &PostgreSQLPublishRequestRepository{db: db}
}

func scanPostgresPublishRequest(row rowScanner) (*domain.PublishRequest, error) {
	var (
		req      domain.PublishRequest
		metadata []byte
	)
	err := row.Scan(
		&req.ID,
		&req.JobID,
		&req.ContentRef,
		&req.Platform,
		&req.AccountRef,
		&req.Caption,
		&req.Status,
		&req.ExternalPostID,
		&metadata,
		&req.WebhookReceived,
		&req.LastError,
		&req.ScheduledFor,
		&req.AttemptedAt,
		&req.ResolvedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if req.ExtraMetadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	return &req, nil
}

// Create inserts a new publish request.
func (p *PostgreSQLPublishRequestRepository) Create(ctx context.Context, req *domain.PublishRequest) error {
	querier := database.GetTx(ctx, p.db)

	metadata, err := metadataArg(req.ExtraMetadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO publish_requests (` + postgresPublishColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = querier.ExecContext(
		ctx,
		query,
		req.ID,
		req.JobID,
		req.ContentRef,
		req.Platform,
		req.AccountRef,
		req.Caption,
		req.Status,
		req.ExternalPostID,
		metadata,
		req.WebhookReceived,
		req.LastError,
		req.ScheduledFor,
		req.AttemptedAt,
		req.ResolvedAt,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrExternalPostIDTaken
		}
		return apperrors.Wrap(err, "failed to create publish request")
	}
	return nil
}

// GetByID retrieves a publish request by its ID.
func (p *PostgreSQLPublishRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PublishRequest, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresPublishColumns + ` FROM publish_requests WHERE id = $1`

	req, err := scanPostgresPublishRequest(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPublishRequestNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get publish request by id")
	}
	return req, nil
}

// GetByExternalPostID retrieves the request of platform holding externalPostID.
func (p *PostgreSQLPublishRequestRepository) GetByExternalPostID(
	ctx context.Context,
	platform, externalPostID string,
) (*domain.PublishRequest, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresPublishColumns + ` FROM publish_requests
			  WHERE platform = $1 AND external_post_id = $2`

	req, err := scanPostgresPublishRequest(querier.QueryRowContext(ctx, query, platform, externalPostID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPublishRequestNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get publish request by external post id")
	}
	return req, nil
}

// MarkAttempted moves a pending request to attempted. A stored post id is kept.
func (p *PostgreSQLPublishRequestRepository) MarkAttempted(
	ctx context.Context,
	id uuid.UUID,
	externalPostID string,
	now time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE publish_requests
			  SET status = 'attempted', external_post_id = COALESCE(external_post_id, $1),
			      attempted_at = $2, updated_at = $2
			  WHERE id = $3 AND status = 'pending'`

	result, err := querier.ExecContext(ctx, query, externalPostID, now, id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrExternalPostIDTaken
		}
		return apperrors.Wrap(err, "failed to mark publish request attempted")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return domain.ErrPublishRequestResolved
	}
	return nil
}

// MarkFailed fails a request that is not resolved yet.
func (p *PostgreSQLPublishRequestRepository) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	errMsg string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE publish_requests
			  SET status = 'failed', last_error = $1, resolved_at = $2, updated_at = $2
			  WHERE id = $3 AND status IN ('pending', 'attempted')`

	result, err := querier.ExecContext(ctx, query, errMsg, now, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to mark publish request failed")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return rows > 0, nil
}

// Resolve applies a callback to an attempted request.
func (p *PostgreSQLPublishRequestRepository) Resolve(
	ctx context.Context,
	id uuid.UUID,
	status domain.PublishStatus,
	metadata map[string]any,
	lastError *string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	encoded, err := metadataArg(metadata)
	if err != nil {
		return false, err
	}

	query := `UPDATE publish_requests
			  SET status = $1, extra_metadata = $2, webhook_received = TRUE, last_error = $3,
			      resolved_at = $4, updated_at = $4
			  WHERE id = $5 AND status = 'attempted'`

	result, err := querier.ExecContext(ctx, query, status, encoded, lastError, now, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to resolve publish request")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return rows > 0, nil
}

// TimeoutAttempted moves requests attempted at or before attemptedBefore to timed_out.
func (p *PostgreSQLPublishRequestRepository) TimeoutAttempted(
	ctx context.Context,
	attemptedBefore, now time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE publish_requests
			  SET status = 'timed_out', last_error = $1, resolved_at = $2, updated_at = $2
			  WHERE status = 'attempted' AND attempted_at <= $3`

	result, err := querier.ExecContext(ctx, query, timedOutMessage, now, attemptedBefore)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to time out publish requests")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get rows affected")
	}
	return rows, nil
}

// CountByStatus returns request counts grouped by status.
func (p *PostgreSQLPublishRequestRepository) CountByStatus(ctx context.Context) (map[domain.PublishStatus]int64, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, `SELECT status, COUNT(*) FROM publish_requests GROUP BY status`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count publish requests")
	}
	defer rows.Close() //nolint:errcheck

	counts, err := collectCounts(rows)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan publish request counts")
	}
	return counts, nil
}
