package service

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobDomain "github.com/allisson/publishq/internal/job/domain"
)

func transientCall() (*PublishAck, error) {
	return nil, jobDomain.NewTransientError(errors.New("gateway unavailable"))
}

func permanentCall() (*PublishAck, error) {
	return nil, jobDomain.NewPermanentError(errors.New("post rejected"))
}

func okCall() (*PublishAck, error) {
	return &PublishAck{ExternalPostID: "post-1"}, nil
}

func TestCircuitBreaker(t *testing.T) {
	breaker := NewCircuitBreaker("tiktok", 2, 50*time.Millisecond, discardLogger())

	_, err := breaker.Execute(transientCall)
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())

	_, err = breaker.Execute(transientCall)
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	_, err = breaker.Execute(okCall)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	// After the open timeout a single trial request decides.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, breaker.State())

	_, err = breaker.Execute(transientCall)
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	time.Sleep(80 * time.Millisecond)
	ack, err := breaker.Execute(okCall)
	require.NoError(t, err)
	assert.Equal(t, "post-1", ack.ExternalPostID)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	breaker := NewCircuitBreaker("tiktok", 2, time.Minute, discardLogger())

	_, _ = breaker.Execute(transientCall)
	_, _ = breaker.Execute(okCall)
	_, _ = breaker.Execute(transientCall)

	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestCircuitBreaker_PermanentErrorsAreNotFailures(t *testing.T) {
	breaker := NewCircuitBreaker("tiktok", 1, time.Minute, discardLogger())

	for i := 0; i < 3; i++ {
		_, err := breaker.Execute(permanentCall)
		require.Error(t, err)
		assert.False(t, jobDomain.IsRetryable(err))
	}

	assert.Equal(t, gobreaker.StateClosed, breaker.State())
	assert.Equal(t, uint32(0), breaker.Counts().ConsecutiveFailures)
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	breaker := NewCircuitBreaker("tiktok", 0, 0, nil)

	for i := 0; i < 2; i++ {
		_, _ = breaker.Execute(transientCall)
	}
	assert.Equal(t, gobreaker.StateClosed, breaker.State())

	_, _ = breaker.Execute(transientCall)
	assert.Equal(t, gobreaker.StateOpen, breaker.State())
}
