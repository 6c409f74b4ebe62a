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

const mysqlPublishColumns = `id, job_id, content_ref, platform, account_ref, caption, status, external_post_id,
	extra_metadata, webhook_received, last_error, scheduled_for, attempted_at, resolved_at, created_at, updated_at`

// MySQLPublishRequestRepository implements publish request persistence for MySQL.
type MySQLPublishRequestRepository struct {
	db *sql.DB
}

// NewMySQLPublishRequestRepository creates a new MySQL publish request repository instance.
func NewMySQLPublishRequestRepository(db *sql.DB) *MySQLPublishRequestRepository {
	return &MySQLPublishRequestRepository{db: db}
}

func scanMySQLPublishRequest(row rowScanner) (*domain.PublishRequest, error) {
	var (
		req        domain.PublishRequest
		idBytes    []byte
		jobIDBytes []byte
		metadata   []byte
	)
	err := row.Scan(
		&idBytes,
		&jobIDBytes,
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
	if err := req.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}
	if jobIDBytes != nil {
		var jobID uuid.UUID
		if err := jobID.UnmarshalBinary(jobIDBytes); err != nil {
			return nil, err
		}
		req.JobID = &jobID
	}
	if req.ExtraMetadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	return &req, nil
}

// nullableUUIDBytes converts an optional UUID for a BINARY(16) NULL column.
func nullableUUIDBytes(id *uuid.UUID) (any, error) {
	if id == nil {
		return nil, nil
	}
	b, err := id.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Create inserts a new publish request.
func (m *MySQLPublishRequestRepository) Create(ctx context.Context, req *domain.PublishRequest) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := req.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal publish request id")
	}
	jobIDBytes, err := nullableUUIDBytes(req.JobID)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal job id")
	}
	metadata, err := metadataArg(req.ExtraMetadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO publish_requests (` + mysqlPublishColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		idBytes,
		jobIDBytes,
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
func (m *MySQLPublishRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PublishRequest, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal publish request id")
	}

	query := `SELECT ` + mysqlPublishColumns + ` FROM publish_requests WHERE id = ?`

	req, err := scanMySQLPublishRequest(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPublishRequestNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get publish request by id")
	}
	return req, nil
}

// GetByExternalPostID retrieves the request of platform holding externalPostID.
func (m *MySQLPublishRequestRepository) GetByExternalPostID(
	ctx context.Context,
	platform, externalPostID string,
) (*domain.PublishRequest, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlPublishColumns + ` FROM publish_requests
			  WHERE platform = ? AND external_post_id = ?`

	req, err := scanMySQLPublishRequest(querier.QueryRowContext(ctx, query, platform, externalPostID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPublishRequestNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get publish request by external post id")
	}
	return req, nil
}

// MarkAttempted moves a pending request to attempted. A stored post id is kept.
func (m *MySQLPublishRequestRepository) MarkAttempted(
	ctx context.Context,
	id uuid.UUID,
	externalPostID string,
	now time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal publish request id")
	}

	query := `UPDATE publish_requests
			  SET status = 'attempted', external_post_id = COALESCE(external_post_id, ?),
			      attempted_at = ?, updated_at = ?
			  WHERE id = ? AND status = 'pending'`

	result, err := querier.ExecContext(ctx, query, externalPostID, now, now, idBytes)
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
func (m *MySQLPublishRequestRepository) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	errMsg string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal publish request id")
	}

	query := `UPDATE publish_requests
			  SET status = 'failed', last_error = ?, resolved_at = ?, updated_at = ?
			  WHERE id = ? AND status IN ('pending', 'attempted')`

	result, err := querier.ExecContext(ctx, query, errMsg, now, now, idBytes)
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
func (m *MySQLPublishRequestRepository) Resolve(
	ctx context.Context,
	id uuid.UUID,
	status domain.PublishStatus,
	metadata map[string]any,
	lastError *string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal publish request id")
	}
	encoded, err := metadataArg(metadata)
	if err != nil {
		return false, err
	}

	query := `UPDATE publish_requests
			  SET status = ?, extra_metadata = ?, webhook_received = TRUE, last_error = ?,
			      resolved_at = ?, updated_at = ?
			  WHERE id = ? AND status = 'attempted'`

	result, err := querier.ExecContext(ctx, query, status, encoded, lastError, now, now, idBytes)
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
func (m *MySQLPublishRequestRepository) TimeoutAttempted(
	ctx context.Context,
	attemptedBefore, now time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE publish_requests
			  SET status = 'timed_out', last_error = ?, resolved_at = ?, updated_at = ?
			  WHERE status = 'attempted' AND attempted_at <= ?`

	result, err := querier.ExecContext(ctx, query, timedOutMessage, now, now, attemptedBefore)
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
func (m *MySQLPublishRequestRepository) CountByStatus(ctx context.Context) (map[domain.PublishStatus]int64, error) {
	querier := database.GetTx(ctx, m.db)

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
