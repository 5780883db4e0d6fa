package queue

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitError reports a synthesis attempt rejected by the provider rate
// gate. The queue server retries it after RetryIn without counting it as a
// failed attempt.
type RateLimitError struct {
	RetryIn time.Duration
}

// Error implements the error interface for RateLimitError.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry in %v", e.RetryIn)
}

// IsRateLimitError checks if the given error is a rate limit rejection.
func IsRateLimitError(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// RateGate bounds how many synthesis requests leave the workers per window.
// All workers of a process share one gate.
type RateGate struct {
	limiter *rate.Limiter
}

// NewRateGate allows at most n requests per window, with bursts up to n.
func NewRateGate(n int, window time.Duration) *RateGate {
	if n <= 0 {
		n = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateGate{
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(n)), n),
	}
}

// Check reserves one slot. When the gate is saturated it returns a
// RateLimitError carrying the wait until the next slot frees up, and the
// reservation is released.
func (g *RateGate) Check() error {
	reservation := g.limiter.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		return &RateLimitError{RetryIn: delay}
	}
	return nil
}
