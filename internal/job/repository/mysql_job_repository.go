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

const mysqlJobColumns = `id, queue, type, payload, status, result, error, attempt_count, dedup_key,
	run_after, locked_by, locked_at, created_at, updated_at`

// claimCandidates bounds how many rows a compare-and-swap claim tries before reporting idle.
const claimCandidates = 10

// MySQLJobRepository implements the queue store for MySQL. With skipLocked the
// claim locks one row with FOR UPDATE SKIP LOCKED (MySQL 8.0+); without it the
// claim races candidates through conditional updates.
type MySQLJobRepository struct {
	db         *sql.DB
	txManager  database.TxManager
	skipLocked bool
}

// NewMySQLJobRepository creates a new MySQL job repository instance.
func NewMySQLJobRepository(db *sql.DB, skipLocked bool) *MySQLJobRepository {
	return &MySQLJobRepository{
		db:         db,
		txManager:  database.NewTxManager(db),
		skipLocked: skipLocked,
	}
}

func scanMySQLJob(row rowScanner) (*domain.Job, error) {
	var (
		job     domain.Job
		idBytes []byte
		payload []byte
		result  []byte
	)
	err := row.Scan(
		&idBytes,
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
	if err := job.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}
	job.Payload = rawJSON(payload)
	job.Result = rawJSON(result)
	return &job, nil
}

// Create inserts a new job into the MySQL database.
func (m *MySQLJobRepository) Create(ctx context.Context, job *domain.Job) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO jobs (id, queue, type, payload, status, result, error, attempt_count, dedup_key,
			  run_after, locked_by, locked_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := job.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal job id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		idBytes,
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

func (m *MySQLJobRepository) getByIDBytes(ctx context.Context, querier database.Querier, idBytes []byte) (*domain.Job, error) {
	query := `SELECT ` + mysqlJobColumns + ` FROM jobs WHERE id = ?`

	job, err := scanMySQLJob(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get job by id")
	}
	return job, nil
}

// GetByID retrieves a job by its ID.
func (m *MySQLJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal job id")
	}
	return m.getByIDBytes(ctx, database.GetTx(ctx, m.db), idBytes)
}

// GetActiveByDedupKey retrieves the non-terminal job holding key.
func (m *MySQLJobRepository) GetActiveByDedupKey(ctx context.Context, key string) (*domain.Job, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlJobColumns + ` FROM jobs WHERE active_dedup_key = ? LIMIT 1`

	job, err := scanMySQLJob(querier.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get job by dedup key")
	}
	return job, nil
}

// ClaimNext moves the oldest eligible job of queue to processing.
func (m *MySQLJobRepository) ClaimNext(
	ctx context.Context,
	queue, workerID string,
	now time.Time,
) (*domain.Job, error) {
	if m.skipLocked {
		return m.claimSkipLocked(ctx, queue, workerID, now)
	}
	return m.claimCompareAndSwap(ctx, queue, workerID, now)
}

func (m *MySQLJobRepository) claimSkipLocked(
	ctx context.Context,
	queue, workerID string,
	now time.Time,
) (*domain.Job, error) {
	var job *domain.Job
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, m.db)

		var idBytes []byte
		err := querier.QueryRowContext(ctx,
			`SELECT id FROM jobs
			 WHERE queue = ? AND status IN ('pending', 'retry') AND run_after <= ?
			 ORDER BY created_at ASC, id ASC
			 LIMIT 1
			 FOR UPDATE SKIP LOCKED`,
			queue, now,
		).Scan(&idBytes)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrJobNotFound
			}
			return apperrors.Wrap(err, "failed to select job to claim")
		}

		_, err = querier.ExecContext(ctx,
			`UPDATE jobs
			 SET status = 'processing', attempt_count = attempt_count + 1,
			     locked_by = ?, locked_at = ?, updated_at = ?
			 WHERE id = ?`,
			workerID, now, now, idBytes,
		)
		if err != nil {
			return apperrors.Wrap(err, "failed to claim job")
		}

		job, err = m.getByIDBytes(ctx, querier, idBytes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (m *MySQLJobRepository) claimCompareAndSwap(
	ctx context.Context,
	queue, workerID string,
	now time.Time,
) (*domain.Job, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(ctx,
		`SELECT id FROM jobs
		 WHERE queue = ? AND status IN ('pending', 'retry') AND run_after <= ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		queue, now, claimCandidates,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to select jobs to claim")
	}
	defer rows.Close() //nolint:errcheck

	var candidates [][]byte
	for rows.Next() {
		var idBytes []byte
		if err := rows.Scan(&idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan job id")
		}
		candidates = append(candidates, idBytes)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate claim candidates")
	}

	for _, idBytes := range candidates {
		err := m.tryClaim(ctx, querier, idBytes, workerID, now)
		if errors.Is(err, domain.ErrClaimConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return m.getByIDBytes(ctx, querier, idBytes)
	}

	return nil, domain.ErrJobNotFound
}

// tryClaim flips one candidate to processing if it is still claimable.
// Losing the race, or hitting a lock wait, yields domain.ErrClaimConflict.
func (m *MySQLJobRepository) tryClaim(
	ctx context.Context,
	querier database.Querier,
	idBytes []byte,
	workerID string,
	now time.Time,
) error {
	res, err := querier.ExecContext(ctx,
		`UPDATE jobs
		 SET status = 'processing', attempt_count = attempt_count + 1,
		     locked_by = ?, locked_at = ?, updated_at = ?
		 WHERE id = ? AND status IN ('pending', 'retry') AND run_after <= ?`,
		workerID, now, now, idBytes, now,
	)
	if err != nil {
		if database.IsLockContention(err) {
			return domain.ErrClaimConflict
		}
		return apperrors.Wrap(err, "failed to claim job")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return domain.ErrClaimConflict
	}
	return nil
}

func (m *MySQLJobRepository) transition(ctx context.Context, query string, args ...any) error {
	querier := database.GetTx(ctx, m.db)

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
func (m *MySQLJobRepository) Complete(
	ctx context.Context,
	id uuid.UUID,
	workerID string,
	result json.RawMessage,
) error {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal job id")
	}

	query := `UPDATE jobs
			  SET status = 'completed', result = ?, error = NULL, locked_by = NULL, locked_at = NULL, updated_at = ?
			  WHERE id = ? AND status = 'processing' AND locked_by = ?`

	return m.transition(ctx, query, jsonArg(result), time.Now().UTC(), idBytes, workerID)
}

// Fail marks a processing job failed.
func (m *MySQLJobRepository) Fail(ctx context.Context, id uuid.UUID, workerID string, errMsg string) error {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal job id")
	}

	query := `UPDATE jobs
			  SET status = 'failed', error = ?, locked_by = NULL, locked_at = NULL, updated_at = ?
			  WHERE id = ? AND status = 'processing' AND locked_by = ?`

	return m.transition(ctx, query, errMsg, time.Now().UTC(), idBytes, workerID)
}

// ScheduleRetry moves a processing job to retry, eligible again at runAfter.
func (m *MySQLJobRepository) ScheduleRetry(
	ctx context.Context,
	id uuid.UUID,
	workerID string,
	errMsg string,
	runAfter time.Time,
) error {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal job id")
	}

	query := `UPDATE jobs
			  SET status = 'retry', error = ?, run_after = ?, locked_by = NULL, locked_at = NULL, updated_at = ?
			  WHERE id = ? AND status = 'processing' AND locked_by = ?`

	return m.transition(ctx, query, errMsg, runAfter, time.Now().UTC(), idBytes, workerID)
}

// RequeueStale returns processing jobs locked before lockedBefore to pending.
func (m *MySQLJobRepository) RequeueStale(ctx context.Context, lockedBefore time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE jobs
			  SET status = 'pending', locked_by = NULL, locked_at = NULL, updated_at = ?
			  WHERE status = 'processing' AND locked_at < ?`

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
// LAST_INSERT_ID(expr) hands the updated count back through the result.
func (m *MySQLJobRepository) IncrementDeadLetter(ctx context.Context, queue string) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO dead_letter_counters (queue, count, updated_at) VALUES (?, 1, ?)
			  ON DUPLICATE KEY UPDATE count = LAST_INSERT_ID(count + 1), updated_at = VALUES(updated_at)`

	res, err := querier.ExecContext(ctx, query, queue, time.Now().UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to increment dead letter counter")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 1 {
		return 1, nil
	}
	count, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read dead letter counter")
	}
	return count, nil
}

// ListDeadLetters lists failed jobs of queue, most recently failed first.
func (m *MySQLJobRepository) ListDeadLetters(
	ctx context.Context,
	queue string,
	offset, limit int,
) ([]*domain.Job, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlJobColumns + ` FROM jobs
			  WHERE queue = ? AND status = 'failed'
			  ORDER BY updated_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, queue, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list dead letters")
	}
	defer rows.Close() //nolint:errcheck

	jobs := make([]*domain.Job, 0)
	for rows.Next() {
		job, err := scanMySQLJob(rows)
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
func (m *MySQLJobRepository) Replay(ctx context.Context, id uuid.UUID, runAfter time.Time) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal job id")
	}

	query := `UPDATE jobs
			  SET status = 'pending', attempt_count = 0, error = NULL, result = NULL,
			      run_after = ?, locked_by = NULL, locked_at = NULL, updated_at = ?
			  WHERE id = ? AND status = 'failed'`

	res, err := querier.ExecContext(ctx, query, runAfter, runAfter, idBytes)
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
func (m *MySQLJobRepository) Stats(ctx context.Context) ([]*domain.QueueStats, error) {
	querier := database.GetTx(ctx, m.db)
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
