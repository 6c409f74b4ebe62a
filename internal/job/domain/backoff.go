package domain

import (
	"math"
	"time"
)

// BackoffPolicy computes exponential retry delays: Base * Multiplier^(attempt-1), capped at Max.
type BackoffPolicy struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration
}

// DefaultBackoffPolicy waits 1s, 2s, 4s ... up to 10 minutes.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{Base: time.Second, Multiplier: 2, Max: 10 * time.Minute}
}

// Delay returns the wait before the retry that follows the given (1-based) attempt.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if p.Base <= 0 {
		return 0
	}

	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	delay := float64(p.Base) * math.Pow(multiplier, float64(attempt-1))
	if p.Max > 0 && delay > float64(p.Max) {
		return p.Max
	}
	if delay > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}
