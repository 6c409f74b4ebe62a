package service

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	jobDomain "github.com/allisson/publishq/internal/job/domain"
)

// CircuitBreaker guards the calls to one platform gateway.
type CircuitBreaker = gobreaker.CircuitBreaker[*PublishAck]

// NewCircuitBreaker creates a closed breaker that opens after threshold
// consecutive retryable failures. Once openFor has elapsed a single trial request is
// let through; its result closes or reopens the circuit. Permanent errors
// such as a rejected post never count as failures.
func NewCircuitBreaker(name string, threshold int, openFor time.Duration, logger *slog.Logger) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if openFor <= 0 {
		openFor = 15 * time.Second
	}

	return gobreaker.NewCircuitBreaker[*PublishAck](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !jobDomain.IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Warn("platform circuit state changed",
				slog.String("platform", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
}
