package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/publishq/internal/job/domain"
	"github.com/allisson/publishq/internal/lock"
)

func TestSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	config := SweeperConfig{Interval: time.Minute, VisibilityTimeout: 5 * time.Minute, LockTTL: time.Second}

	t.Run("Success_RequeuesOnlyStaleJobs", func(t *testing.T) {
		store := newFakeStore()
		stale := seedJob(store, "default", "x")
		fresh := seedJob(store, "default", "x")
		_, err := store.ClaimNext(ctx, "default", "crashed", t0)
		require.NoError(t, err)
		_, err = store.ClaimNext(ctx, "default", "alive", t0.Add(4*time.Minute))
		require.NoError(t, err)

		sweeper := NewSweeper(config, store, lock.NewMemoryLocker(), nil, discardLogger())
		sweeper.now = func() time.Time { return t0.Add(6 * time.Minute) }

		n, err := sweeper.Sweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, domain.JobStatusPending, store.job(stale.ID).Status)
		assert.Nil(t, store.job(stale.ID).LockedBy)
		assert.Equal(t, domain.JobStatusProcessing, store.job(fresh.ID).Status)
	})

	t.Run("Success_SkipsWhenLockHeld", func(t *testing.T) {
		store := newFakeStore()
		seedJob(store, "default", "x")
		_, err := store.ClaimNext(ctx, "default", "crashed", t0)
		require.NoError(t, err)

		locker := lock.NewMemoryLocker()
		held, err := locker.Obtain(ctx, staleSweepLockKey, time.Minute)
		require.NoError(t, err)
		defer held.Release(ctx) //nolint:errcheck

		sweeper := NewSweeper(config, store, locker, nil, discardLogger())
		sweeper.now = func() time.Time { return t0.Add(time.Hour) }

		n, err := sweeper.Sweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestSweeper_Start(t *testing.T) {
	store := newFakeStore()
	seedJob(store, "default", "x")
	_, err := store.ClaimNext(context.Background(), "default", "crashed", t0)
	require.NoError(t, err)

	sweeper := NewSweeper(SweeperConfig{Interval: 5 * time.Millisecond, VisibilityTimeout: time.Minute},
		store, nil, nil, discardLogger())
	sweeper.now = func() time.Time { return t0.Add(time.Hour) }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, sweeper.Start(ctx))
	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[0].Counts[domain.JobStatusPending])
}

func TestNewSweeper_Defaults(t *testing.T) {
	t.Run("Success_ZeroDurationsFallBack", func(t *testing.T) {
		sweeper := NewSweeper(SweeperConfig{}, newFakeStore(), nil, nil, discardLogger())

		assert.Equal(t, time.Minute, sweeper.config.Interval)
		assert.Equal(t, 5*time.Minute, sweeper.config.VisibilityTimeout)
		assert.Equal(t, 30*time.Second, sweeper.config.LockTTL)
	})

	t.Run("Success_ZeroIntervalStartDoesNotPanic", func(t *testing.T) {
		sweeper := NewSweeper(SweeperConfig{Interval: 0, VisibilityTimeout: time.Minute},
			newFakeStore(), nil, nil, discardLogger())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.NotPanics(t, func() {
			assert.NoError(t, sweeper.Start(ctx))
		})
	})

	t.Run("Success_ZeroVisibilityTimeoutKeepsRunningJobs", func(t *testing.T) {
		store := newFakeStore()
		running := seedJob(store, "default", "x")
		_, err := store.ClaimNext(context.Background(), "default", "alive", t0)
		require.NoError(t, err)

		sweeper := NewSweeper(SweeperConfig{Interval: time.Minute}, store, nil, nil, discardLogger())
		sweeper.now = func() time.Time { return t0.Add(time.Second) }

		n, err := sweeper.Sweep(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
		assert.Equal(t, domain.JobStatusProcessing, store.job(running.ID).Status)
	})
}
