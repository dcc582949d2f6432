package llm

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultBackoff = 30 * time.Second

// RateLimiter is a token bucket shared by all calls to one provider, plus a
// backoff window opened by 429 responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter returns nil for a non-positive rate; a nil *RateLimiter never blocks.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a request may be sent, honoring any open backoff window.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return ctx.Err()
	}
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// Backoff opens a backoff window after a 429. retryAfterSeconds <= 0 uses the default.
func (r *RateLimiter) Backoff(retryAfterSeconds int) {
	if r == nil {
		return
	}
	d := defaultBackoff
	if retryAfterSeconds > 0 {
		d = time.Duration(retryAfterSeconds) * time.Second
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if at := time.Now().Add(d); at.After(r.retryAt) {
		r.retryAt = at
	}
}

// RetryAt reports when the current backoff window closes.
func (r *RateLimiter) RetryAt() time.Time {
	if r == nil {
		return time.Time{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt
}
