package inspire

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultMinInterval is the minimum spacing between two outgoing requests.
	DefaultMinInterval = 400 * time.Millisecond

	// DefaultPollInterval is the granularity at which a waiting caller wakes
	// up to check for cancellation.
	DefaultPollInterval = 100 * time.Millisecond
)

// RateLimiter enforces a minimum interval between requests issued by one
// client. It is owned by that client; two clients never share a limiter
// unless the caller passes the same instance to both.
type RateLimiter struct {
	limiter *rate.Limiter
	poll    time.Duration
}

// NewRateLimiter creates a limiter admitting one request per minInterval.
// Non-positive arguments fall back to the defaults.
func NewRateLimiter(minInterval, pollInterval time.Duration) *RateLimiter {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		poll:    pollInterval,
	}
}

// MinInterval returns the configured spacing between requests.
func (l *RateLimiter) MinInterval() time.Duration {
	return time.Duration(float64(time.Second) / float64(l.limiter.Limit()))
}

// Wait blocks until the next request may be issued. The first call returns
// immediately. The wait is split into poll-sized sleeps so a cancelled ctx
// releases the caller within one poll interval; the reserved slot is then
// returned to the limiter.
func (l *RateLimiter) Wait(ctx context.Context) error {
	r := l.limiter.Reserve()
	if !r.OK() {
		return ErrReservationRefused
	}
	deadline := time.Now().Add(r.Delay())

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		timer := time.NewTimer(min(remaining, l.poll))
		select {
		case <-ctx.Done():
			timer.Stop()
			r.Cancel()
			return fmt.Errorf("rate limiter: %w", ctx.Err())
		case <-timer.C:
		}
	}
}
