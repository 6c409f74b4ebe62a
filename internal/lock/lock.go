// Package lock provides short-lived mutual exclusion across worker processes.
// The redis implementation is backed by bsm/redislock; the memory implementation
// only coordinates goroutines of a single process and is used when redis is not configured.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

// ErrNotObtained is returned when the lock is held by someone else.
var ErrNotObtained = errors.New("lock not obtained")

// Lock is a held lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker obtains named locks with a TTL.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RedisLocker obtains locks through redislock.
type RedisLocker struct {
	client *redislock.Client
	retry  redislock.RetryStrategy
}

// NewRedisLocker wraps a redislock client. retryEvery > 0 makes Obtain poll until
// ctx is done instead of failing immediately.
func NewRedisLocker(client *redislock.Client, retryEvery time.Duration) *RedisLocker {
	retry := redislock.NoRetry()
	if retryEvery > 0 {
		retry = redislock.LinearBackoff(retryEvery)
	}
	return &RedisLocker{client: client, retry: retry}
}

// Obtain tries to take the lock for key.
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	held, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, err
	}
	return held, nil
}

// MemoryLocker is an in-process Locker. TTLs are honored so a holder that
// never releases does not block forever.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryEntry
	next  uint64
	clock func() time.Time
}

type memoryEntry struct {
	token     uint64
	expiresAt time.Time
}

// NewMemoryLocker creates an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryEntry), clock: time.Now}
}

// Obtain takes the lock for key or returns ErrNotObtained.
func (l *MemoryLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if entry, ok := l.held[key]; ok && now.Before(entry.expiresAt) {
		return nil, ErrNotObtained
	}

	l.next++
	l.held[key] = memoryEntry{token: l.next, expiresAt: now.Add(ttl)}
	return &memoryLock{locker: l, key: key, token: l.next}, nil
}

type memoryLock struct {
	locker *MemoryLocker
	key    string
	token  uint64
}

// Release drops the lock if it is still owned by this holder.
func (m *memoryLock) Release(ctx context.Context) error {
	m.locker.mu.Lock()
	defer m.locker.mu.Unlock()

	if entry, ok := m.locker.held[m.key]; ok && entry.token == m.token {
		delete(m.locker.held, m.key)
	}
	return nil
}

// RunExclusive runs fn while holding key. It reports ran=false without error
// when another holder has the lock.
func RunExclusive(
	ctx context.Context,
	locker Locker,
	key string,
	ttl time.Duration,
	fn func(ctx context.Context) error,
) (bool, error) {
	if locker == nil {
		return true, fn(ctx)
	}

	held, err := locker.Obtain(ctx, key, ttl)
	if errors.Is(err, ErrNotObtained) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() {
		_ = held.Release(context.WithoutCancel(ctx))
	}()

	return true, fn(ctx)
}
