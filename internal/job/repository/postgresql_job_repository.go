package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/publishq/internal/database"
	apperrors "github.com/allisson/publishq/internal/errors"
	"github.com/allisson/publishq/internal/job/domain"
)

const postgresJobColumns = `id, queue, type, payload, status, result, error, attempt_count, dedup_key,
	run_after, locked_by, locked_at, created_at, updated_at`

// PostgreSQLJobRepository implements the queue store for PostgreSQL.
type PostgreSQLJobRepository struct {
	db *sql.DB
}

// NewPostgreSQLJobRepository creates a new PostgreSQL job repository instance.
func NewPostgreSQLJobRepository(db *sql.DB) *PostgreSQLJobRepository {
	return &PostgreSQLJobRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresJob(row rowScanner) (*domain.Job, error) {
	var (
		job     domain.Job
		payload []byte
		result  []byte
	)
	err := row.Scan(
		&job.ID,
		&job.Queue,
		&job.Type,
		&payload,
		&job.Status,
		&result,
		&job.Error,
		&job.AttemptCount,
		&job.DedupKey,
		&job.RunAfter,
		&job.LockedBy,
		&job.LockedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Payload = rawJSON(payload)
	job.Result = rawJSON(result)
	return &job, nil
}

// Create inserts a new job into the PostgreSQL database.
func (p *PostgreSQLJobRepository) Create(ctx context.Context, job *domain.Job) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO jobs (id, queue, type, payload, status, result, error, attempt_count, dedup_key,
			  run_after, locked_by, locked_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := querier.ExecContext(
		ctx,
		query,
		job.ID,
		job.Queue,
		job.Type,
		jsonArg(job.Payload),
		job.Status,
		jsonArg(job.Result),
		job.Error,
		job.AttemptCount,
		job.DedupKey,
		job.RunAfter,
		job.LockedBy,
		job.LockedAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateDedupKey
		}
		return apperrors.Wrap(err, "failed to create job")
	}
	return nil
}

// GetByID retrieves a job by its ID.
func (p *PostgreSQLJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresJobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanPostgresJob(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get job by id")
	}
	return job, nil
}

// GetActiveByDedupKey retrieves the non-terminal job holding key.
func (p *PostgreSQLJobRepository) GetActiveByDedupKey(ctx context.Context, key string) (*domain.Job, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresJobColumns + ` FROM jobs
			  WHERE dedup_key = $1 AND status IN ('pending', 'processing', 'retry')
			  LIMIT 1`

	job, err := scanPostgresJob(querier.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get job by dedup key")
	}
	return job, nil
}

// ClaimNext moves the oldest eligible job of queue to processing. Rows locked by
// concurrent claimers are skipped, so two callers never receive the same job.
func (p *PostgreSQLJobRepository) ClaimNext(
	ctx context.Context,
	queue, workerID string,
	now time.Time,
) (*domain.Job, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE jobs
			  SET status = 'processing', attempt_count = attempt_count + 1,
			      locked_by = $1, locked_at = $2, updated_at = $2
			  WHERE id = (
			      SELECT id FROM jobs
			      WHERE queue = $3 AND status IN ('pending', 'retry') AND run_after <= $2
			      ORDER BY created_at ASC, id ASC
			      LIMIT 1
			      FOR UPDATE SKIP LOCKED
			  )
			  RETURNING ` + postgresJobColumns

	job, err := scanPostgresJob(querier.QueryRowContext(ctx, query, workerID, now, queue))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, apperrors.Wrap(err, "failed to claim job")
	}
	return job, nil
}

// transition applies a processing-only update and reports ErrInvalidTransition
// when the job is not processing under workerID.
func (p *PostgreSQLJobRepository) transition(ctx context.Context, query string, args ...any) error {
	querier := database.GetTx(ctx, p.db)

	res, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrap(err, "failed to update job status")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

// Complete marks a processing job completed with its result.
func (p *PostgreSQLJobRepository) Complete(
	ctx context.Context,
	id uuid.UUID,
	workerID string,
	result json.RawMessage,
) error {
	query := `UPDATE jobs
			  SET status = 'completed', result = $1, error = NULL, locked_by = NULL, locked_at = NULL, updated_at = $2
			  WHERE id = $3 AND status = 'processing' AND locked_by = $4`

	return p.transition(ctx, query, jsonArg(result), time.Now().UTC(), id, workerID)
}

// Fail marks a processing job failed.
func (p *PostgreSQLJobRepository) Fail(ctx context.Context, id uuid.UUID, workerID string, errMsg string) error {
	query := `UPDATE jobs
			  SET status = 'failed', error = $1, locked_by = NULL, locked_at = NULL, updated_at = $2
			  WHERE id = $3 AND status = 'processing' AND locked_by = $4`

	return p.transition(ctx, query, errMsg, time.Now().UTC(), id, workerID)
}

// ScheduleRetry moves a processing job to retry, eligible again at runAfter.
func (p *PostgreSQLJobRepository) ScheduleRetry(
	ctx context.Context,
	id uuid.UUID,
	workerID string,
	errMsg string,
	runAfter time.Time,
) error {
	query := `UPDATE jobs
			  SET status = 'retry', error = $1, run_after = $2, locked_by = NULL, locked_at = NULL, updated_at = $3
			  WHERE id = $4 AND status = 'processing' AND locked_by = $5`

	return p.transition(ctx, query, errMsg, runAfter, time.Now().UTC(), id, workerID)
}

// RequeueStale returns processing jobs locked before lockedBefore to pending.
func (p *PostgreSQLJobRepository) RequeueStale(ctx context.Context, lockedBefore time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE jobs
			  SET status = 'pending', locked_by = NULL, locked_at = NULL, updated_at = $1
			  WHERE status = 'processing' AND locked_at < $2`

	res, err := querier.ExecContext(ctx, query, time.Now().UTC(), lockedBefore)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to requeue stale jobs")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get rows affected")
	}
	return affected, nil
}

// IncrementDeadLetter bumps the queue's dead-letter counter and returns the new value.
func (p *PostgreSQLJobRepository) IncrementDeadLetter(ctx context.Context, queue string) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO dead_letter_counters (queue, count, updated_at) VALUES ($1, 1, $2)
			  ON CONFLICT (queue) DO UPDATE
			  SET count = dead_letter_counters.count + 1, updated_at = EXCLUDED.updated_at
			  RETURNING count`

	var count int64
	if err := querier.QueryRowContext(ctx, query, queue, time.Now().UTC()).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to increment dead letter counter")
	}
	return count, nil
}

// ListDeadLetters lists failed jobs of queue, most recently failed first.
func (p *PostgreSQLJobRepository) ListDeadLetters(
	ctx context.Context,
	queue string,
	offset, limit int,
) ([]*domain.Job, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresJobColumns + ` FROM jobs
			  WHERE queue = $1 AND status = 'failed'
			  ORDER BY updated_at DESC, id DESC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, queue, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list dead letters")
	}
	defer rows.Close() //nolint:errcheck

	jobs := make([]*domain.Job, 0)
	for rows.Next() {
		job, err := scanPostgresJob(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan job")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate jobs")
	}
	return jobs, nil
}

// Replay moves a failed job back to pending with a fresh attempt budget.
func (p *PostgreSQLJobRepository) Replay(ctx context.Context, id uuid.UUID, runAfter time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE jobs
			  SET status = 'pending', attempt_count = 0, error = NULL, result = NULL,
			      run_after = $1, locked_by = NULL, locked_at = NULL, updated_at = $1
			  WHERE id = $2 AND status = 'failed'`

	res, err := querier.ExecContext(ctx, query, runAfter, id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateDedupKey
		}
		return apperrors.Wrap(err, "failed to replay job")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

// Stats returns per-queue status counts and dead-letter counters.
func (p *PostgreSQLJobRepository) Stats(ctx context.Context) ([]*domain.QueueStats, error) {
	querier := database.GetTx(ctx, p.db)
	collector := newStatsCollector()

	rows, err := querier.QueryContext(ctx, `SELECT queue, status, COUNT(*) FROM jobs GROUP BY queue, status`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count jobs")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var (
			queue  string
			status domain.JobStatus
			count  int64
		)
		if err := rows.Scan(&queue, &status, &count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan job count")
		}
		collector.addCount(queue, status, count)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate job counts")
	}

	counters, err := querier.QueryContext(ctx, `SELECT queue, count FROM dead_letter_counters`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read dead letter counters")
	}
	defer counters.Close() //nolint:errcheck

	for counters.Next() {
		var (
			queue string
			count int64
		)
		if err := counters.Scan(&queue, &count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan dead letter counter")
		}
		collector.addDeadLetters(queue, count)
	}
	if err := counters.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate dead letter counters")
	}

	return collector.result(), nil
}
