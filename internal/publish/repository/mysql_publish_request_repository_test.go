package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/publishq/internal/publish/domain"
)

func mustBinary(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	b, err := id.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestMySQLPublishRequestRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLPublishRequestRepository(db)
		req := newTestRequest()

		mock.ExpectExec("INSERT INTO publish_requests").
			WithArgs(mustBinary(t, req.ID), mustBinary(t, *req.JobID), "video-1", "tiktok", "brand", "hi", "pending", nil,
				`{"campaign":"launch"}`, false, nil, nil, nil, nil, now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, req))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_WithoutJob", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLPublishRequestRepository(db)
		req := newTestRequest()
		req.JobID = nil

		mock.ExpectExec("INSERT INTO publish_requests").
			WithArgs(mustBinary(t, req.ID), nil, "video-1", "tiktok", "brand", "hi", "pending", nil,
				`{"campaign":"launch"}`, false, nil, nil, nil, nil, now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, req))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLPublishRequestRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLPublishRequestRepository(db)
		id := uuid.Must(uuid.NewV7())

		mock.ExpectQuery("SELECT (.+) FROM publish_requests WHERE id = \\?").
			WithArgs(mustBinary(t, id)).
			WillReturnRows(sqlmock.NewRows(publishColumnNames).AddRow(
				mustBinary(t, id), nil, "video-1", "tiktok", "brand", "hi", "pending", nil,
				[]byte(`{}`), false, nil, now, nil, nil, now, now,
			))

		req, err := repo.GetByID(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, id, req.ID)
		assert.Nil(t, req.JobID)
		assert.Equal(t, domain.PublishStatusPending, req.Status)
		assert.Empty(t, req.ExtraMetadata)
		assert.Equal(t, now, *req.ScheduledFor)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLPublishRequestRepository(db)

		mock.ExpectQuery("SELECT (.+) FROM publish_requests").WillReturnRows(sqlmock.NewRows(publishColumnNames))

		_, err := repo.GetByID(ctx, uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, domain.ErrPublishRequestNotFound)
	})
}

func TestMySQLPublishRequestRepository_MarkAttempted(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLPublishRequestRepository(db)

		mock.ExpectExec("UPDATE publish_requests SET status = 'attempted'").
			WithArgs("tt-1", now, now, mustBinary(t, id)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.MarkAttempted(ctx, id, "tt-1", now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_PostIDTaken", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLPublishRequestRepository(db)

		mock.ExpectExec("UPDATE publish_requests").WillReturnError(&mysql.MySQLError{Number: 1062})

		assert.ErrorIs(t, repo.MarkAttempted(ctx, id, "tt-1", now), domain.ErrExternalPostIDTaken)
	})

	t.Run("Error_NotPending", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLPublishRequestRepository(db)

		mock.ExpectExec("UPDATE publish_requests").WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.MarkAttempted(ctx, id, "tt-1", now), domain.ErrPublishRequestResolved)
	})
}

func TestMySQLPublishRequestRepository_Resolve(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMySQLPublishRequestRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectExec("UPDATE publish_requests SET status = \\?, extra_metadata = \\?(.+)status = 'attempted'").
		WithArgs("confirmed", `{"a":"b"}`, nil, now, now, mustBinary(t, id)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.Resolve(ctx, id, domain.PublishStatusConfirmed, map[string]any{"a": "b"}, nil, now)

	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLPublishRequestRepository_MarkFailed(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMySQLPublishRequestRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectExec("UPDATE publish_requests SET status = 'failed'").
		WithArgs("boom", now, now, mustBinary(t, id)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.MarkFailed(ctx, id, "boom", now)

	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLPublishRequestRepository_TimeoutAttempted(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMySQLPublishRequestRepository(db)
	cutoff := now.Add(-10 * time.Minute)

	mock.ExpectExec("UPDATE publish_requests SET status = 'timed_out'").
		WithArgs(timedOutMessage, now, now, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.TimeoutAttempted(ctx, cutoff, now)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLPublishRequestRepository_CountByStatus(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMySQLPublishRequestRepository(db)

	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("timed_out", int64(1)))

	counts, err := repo.CountByStatus(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.PublishStatusTimedOut])
}
