// Package clients provides the shared HTTP client stack: transport,
// rate limiting, circuit breaking and credential management.
package clients

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// RateLimiter throttles outgoing requests.
type RateLimiter interface {
	// Allow checks if a request is allowed immediately
	Allow() bool
	// Wait blocks until a request is allowed or the context is done
	Wait(ctx context.Context) error
	// Stats returns rate limiter statistics
	Stats() RateLimiterStats
}

// RateLimiterStats describes limiter state for monitoring.
type RateLimiterStats struct {
	Rate            float64   `json:"rate"`
	Burst           int       `json:"burst"`
	AllowedRequests int64     `json:"allowed_requests"`
	BlockedRequests int64     `json:"blocked_requests"`
	CurrentTokens   float64   `json:"current_tokens"`
	LastRefill      time.Time `json:"last_refill"`
}

// TokenBucketRateLimiter implements the token bucket algorithm. Tokens
// accrue at a constant rate up to the burst capacity.
type TokenBucketRateLimiter struct {
	rate     float64
	burst    int
	tokens   float64
	lastTime time.Time

	allowedRequests int64
	blockedRequests int64

	mu sync.Mutex
}

// NewRateLimiter creates a token bucket limiter allowing rate requests
// per second with the given burst capacity.
func NewRateLimiter(rate int, burst int) RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucketRateLimiter{
		rate:     float64(rate),
		burst:    burst,
		tokens:   float64(burst),
		lastTime: time.Now(),
	}
}

// Allow consumes a token if one is available.
func (tb *TokenBucketRateLimiter) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens--
		atomic.AddInt64(&tb.allowedRequests, 1)
		return true
	}
	atomic.AddInt64(&tb.blockedRequests, 1)
	return false
}

// Wait blocks until a token is available or the context is cancelled.
func (tb *TokenBucketRateLimiter) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		tb.refill()
		if tb.tokens >= 1.0 {
			tb.tokens--
			atomic.AddInt64(&tb.allowedRequests, 1)
			tb.mu.Unlock()
			return nil
		}
		// Time until the next full token accrues
		wait := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			atomic.AddInt64(&tb.blockedRequests, 1)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Stats returns current limiter statistics.
func (tb *TokenBucketRateLimiter) Stats() RateLimiterStats {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	return RateLimiterStats{
		Rate:            tb.rate,
		Burst:           tb.burst,
		AllowedRequests: atomic.LoadInt64(&tb.allowedRequests),
		BlockedRequests: atomic.LoadInt64(&tb.blockedRequests),
		CurrentTokens:   tb.tokens,
		LastRefill:      tb.lastTime,
	}
}

// refill adds tokens accrued since the last refill. Caller holds mu.
func (tb *TokenBucketRateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastTime).Seconds()
	tb.tokens += elapsed * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
	tb.lastTime = now
}

// noopRateLimiter allows everything; used when rate limiting is disabled.
type noopRateLimiter struct{}

// NewNoopRateLimiter returns a limiter that never blocks.
func NewNoopRateLimiter() RateLimiter { return noopRateLimiter{} }

func (noopRateLimiter) Allow() bool { return true }

func (noopRateLimiter) Wait(ctx context.Context) error { return ctx.Err() }

func (noopRateLimiter) Stats() RateLimiterStats { return RateLimiterStats{} }
