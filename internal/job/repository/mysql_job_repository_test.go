package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/publishq/internal/job/domain"
)

func mysqlJobRow(t *testing.T, id uuid.UUID, status domain.JobStatus, attempt int) *sqlmock.Rows {
	t.Helper()
	idBytes, err := id.MarshalBinary()
	require.NoError(t, err)
	return sqlmock.NewRows(jobColumnNames).AddRow(
		idBytes, "default", "system.echo", []byte(`{"n":1}`), []byte(status), nil, nil, int64(attempt),
		nil, now, []byte("w1"), now, now, now,
	)
}

func mustBinary(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	b, err := id.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestMySQLJobRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, true)
		job := domain.NewJob("default", "system.echo", json.RawMessage(`{"n":1}`), nil, now, now)

		mock.ExpectExec("INSERT INTO jobs").
			WithArgs(mustBinary(t, job.ID), "default", "system.echo", `{"n":1}`, "pending", nil, nil, 0, nil,
				now, nil, nil, now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, job))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_DuplicateDedupKey", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, true)
		key := "abc"
		job := domain.NewJob("default", "system.echo", nil, &key, now, now)

		mock.ExpectExec("INSERT INTO jobs").WillReturnError(&mysql.MySQLError{Number: 1062})

		assert.ErrorIs(t, repo.Create(ctx, job), domain.ErrDuplicateDedupKey)
	})
}

func TestMySQLJobRepository_GetActiveByDedupKey(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, true)

		mock.ExpectQuery("SELECT (.+) FROM jobs WHERE active_dedup_key").
			WithArgs("abc").
			WillReturnRows(mysqlJobRow(t, id, domain.JobStatusPending, 0))

		job, err := repo.GetActiveByDedupKey(ctx, "abc")

		require.NoError(t, err)
		assert.Equal(t, id, job.ID)
		assert.Equal(t, domain.JobStatusPending, job.Status)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, true)

		mock.ExpectQuery("SELECT (.+) FROM jobs WHERE active_dedup_key").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetActiveByDedupKey(ctx, "abc")
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})
}

func TestMySQLJobRepository_ClaimNext_SkipLocked(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, true)
		id := uuid.Must(uuid.NewV7())
		idBytes := mustBinary(t, id)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM jobs(.+)FOR UPDATE SKIP LOCKED").
			WithArgs("default", now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(idBytes))
		mock.ExpectExec("UPDATE jobs SET status = 'processing'").
			WithArgs("w1", now, now, idBytes).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
			WithArgs(idBytes).
			WillReturnRows(mysqlJobRow(t, id, domain.JobStatusProcessing, 1))
		mock.ExpectCommit()

		job, err := repo.ClaimNext(ctx, "default", "w1", now)

		require.NoError(t, err)
		assert.Equal(t, id, job.ID)
		assert.Equal(t, domain.JobStatusProcessing, job.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_NothingClaimableRollsBack", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, true)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM jobs").WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err := repo.ClaimNext(ctx, "default", "w1", now)

		assert.ErrorIs(t, err, domain.ErrJobNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLJobRepository_ClaimNext_CompareAndSwap(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_SkipsLostRaces", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, false)
		taken := mustBinary(t, uuid.Must(uuid.NewV7()))
		locked := mustBinary(t, uuid.Must(uuid.NewV7()))
		id := uuid.Must(uuid.NewV7())
		free := mustBinary(t, id)

		mock.ExpectQuery("SELECT id FROM jobs").
			WithArgs("default", now, claimCandidates).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(taken).AddRow(locked).AddRow(free))
		mock.ExpectExec("UPDATE jobs SET status = 'processing'").
			WithArgs("w1", now, now, taken, now).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("UPDATE jobs SET status = 'processing'").
			WithArgs("w1", now, now, locked, now).
			WillReturnError(&mysql.MySQLError{Number: 1205})
		mock.ExpectExec("UPDATE jobs SET status = 'processing'").
			WithArgs("w1", now, now, free, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
			WithArgs(free).
			WillReturnRows(mysqlJobRow(t, id, domain.JobStatusProcessing, 1))

		job, err := repo.ClaimNext(ctx, "default", "w1", now)

		require.NoError(t, err)
		assert.Equal(t, id, job.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_AllCandidatesLost", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, false)
		taken := mustBinary(t, uuid.Must(uuid.NewV7()))

		mock.ExpectQuery("SELECT id FROM jobs").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(taken))
		mock.ExpectExec("UPDATE jobs").WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := repo.ClaimNext(ctx, "default", "w1", now)

		assert.ErrorIs(t, err, domain.ErrJobNotFound)
		assert.NotErrorIs(t, err, domain.ErrClaimConflict)
	})

	t.Run("Error_Database", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, false)
		taken := mustBinary(t, uuid.Must(uuid.NewV7()))

		mock.ExpectQuery("SELECT id FROM jobs").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(taken))
		mock.ExpectExec("UPDATE jobs").WillReturnError(sql.ErrConnDone)

		_, err := repo.ClaimNext(ctx, "default", "w1", now)

		assert.ErrorIs(t, err, sql.ErrConnDone)
	})
}

func TestMySQLJobRepository_IncrementDeadLetter(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_FirstFailure", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, true)

		mock.ExpectExec("INSERT INTO dead_letter_counters(.+)ON DUPLICATE KEY UPDATE").
			WithArgs("publish", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		count, err := repo.IncrementDeadLetter(ctx, "publish")

		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Success_ExistingCounter", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, true)

		mock.ExpectExec("INSERT INTO dead_letter_counters").
			WillReturnResult(sqlmock.NewResult(5, 2))

		count, err := repo.IncrementDeadLetter(ctx, "publish")

		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
	})
}

func TestMySQLJobRepository_Transitions(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())

	t.Run("Success_Fail", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, true)

		mock.ExpectExec("UPDATE jobs SET status = 'failed'").
			WithArgs("boom", sqlmock.AnyArg(), mustBinary(t, id), "w1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Fail(ctx, id, "w1", "boom"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_ScheduleRetryNotHeld", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLJobRepository(db, true)

		mock.ExpectExec("UPDATE jobs SET status = 'retry'").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.ScheduleRetry(ctx, id, "w1", "timeout", now)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}
