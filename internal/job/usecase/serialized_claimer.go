package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/allisson/publishq/internal/job/domain"
	"github.com/allisson/publishq/internal/lock"
)

// ErrClaimerClosed is returned by a SerializedClaimer after Close.
var ErrClaimerClosed = errors.New("claimer closed")

type claimRequest struct {
	ctx      context.Context
	queue    string
	workerID string
	now      time.Time
	reply    chan claimReply
}

type claimReply struct {
	job *domain.Job
	err error
}

// SerializedClaimer funnels every claim through a single goroutine, and across
// processes through a per-queue lock. It is used when the store cannot skip
// locked rows.
type SerializedClaimer struct {
	next     Claimer
	locker   lock.Locker
	lockTTL  time.Duration
	logger   *slog.Logger
	requests chan claimRequest
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

// NewSerializedClaimer starts the claiming goroutine. Call Close to stop it.
// A nil locker only serializes claims within this process.
func NewSerializedClaimer(next Claimer, locker lock.Locker, lockTTL time.Duration, logger *slog.Logger) *SerializedClaimer {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	c := &SerializedClaimer{
		next:     next,
		locker:   locker,
		lockTTL:  lockTTL,
		logger:   logger,
		requests: make(chan claimRequest),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go c.run()
	return c
}

// ClaimNext hands the claim to the claiming goroutine and waits for its answer.
// Once the request is accepted the answer is awaited even if ctx is cancelled,
// so a claimed job is never dropped on the floor.
func (c *SerializedClaimer) ClaimNext(ctx context.Context, queue, workerID string, now time.Time) (*domain.Job, error) {
	req := claimRequest{
		ctx:      context.WithoutCancel(ctx),
		queue:    queue,
		workerID: workerID,
		now:      now,
		reply:    make(chan claimReply, 1),
	}

	select {
	case c.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClaimerClosed
	}

	reply := <-req.reply
	return reply.job, reply.err
}

// Close stops the claiming goroutine and waits for it to exit.
func (c *SerializedClaimer) Close() {
	c.once.Do(func() { close(c.done) })
	<-c.stopped
}

func (c *SerializedClaimer) run() {
	defer close(c.stopped)
	for {
		select {
		case <-c.done:
			return
		case req := <-c.requests:
			job, err := c.claim(req)
			req.reply <- claimReply{job: job, err: err}
		}
	}
}

func (c *SerializedClaimer) claim(req claimRequest) (*domain.Job, error) {
	var (
		job      *domain.Job
		claimErr error
	)
	ran, err := lock.RunExclusive(req.ctx, c.locker, "publishq:claim:"+req.queue, c.lockTTL, func(ctx context.Context) error {
		job, claimErr = c.next.ClaimNext(ctx, req.queue, req.workerID, req.now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ran {
		// Another process is claiming from this queue; report idle and let the caller poll again.
		c.logger.Debug("claim lock held elsewhere", slog.String("queue", req.queue))
		return nil, domain.ErrJobNotFound
	}
	return job, claimErr
}
