// Package backpressure provides rate limiting primitives for the
// request-facing services so pricing traffic degrades predictably
// under load.
package backpressure

import (
	"context"
	"sync"
	"time"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// ErrRequestTooLarge is returned when a single request asks for more
// tokens than the limiter's burst capacity can ever hold.
var ErrRequestTooLarge = errors.New(errors.ResourceExhausted, "request size exceeds burst capacity")

// RateLimiter controls how many operations may proceed per unit time.
type RateLimiter interface {
	Allow() bool
	AllowN(n int) bool
	Wait(ctx context.Context) error
	WaitN(ctx context.Context, n int) error
	Limit() float64
	Burst() int
	TokensRemaining() int
}

// TokenBucketLimiter implements rate limiting with a refilling token
// bucket. Tokens are tracked fractionally so low rates still make
// progress between calls.
type TokenBucketLimiter struct {
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewTokenBucketLimiter creates a token bucket limiter that refills at
// rate tokens per second up to burst.
func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1.0
	}
	if burst <= 0 {
		burst = 1
	}

	return &TokenBucketLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

// Allow checks if a single operation is allowed
func (tb *TokenBucketLimiter) Allow() bool {
	return tb.AllowN(1)
}

// AllowN checks if n operations are allowed
func (tb *TokenBucketLimiter) AllowN(n int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())

	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// Wait waits until a single operation is allowed
func (tb *TokenBucketLimiter) Wait(ctx context.Context) error {
	return tb.WaitN(ctx, 1)
}

// WaitN waits until n operations are allowed or the context is done
func (tb *TokenBucketLimiter) WaitN(ctx context.Context, n int) error {
	if n > tb.burst {
		return ErrRequestTooLarge
	}

	for {
		if tb.AllowN(n) {
			return nil
		}

		select {
		case <-time.After(tb.waitTime(n)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// refill adds tokens based on elapsed time. Caller must hold mu.
func (tb *TokenBucketLimiter) refill(now time.Time) {
	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 {
		return
	}

	tb.tokens += elapsed.Seconds() * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
	tb.lastUpdate = now
}

// waitTime estimates how long until n tokens are available
func (tb *TokenBucketLimiter) waitTime(n int) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	needed := float64(n) - tb.tokens
	if needed <= 0 {
		return time.Millisecond
	}

	wait := time.Duration(needed / tb.rate * float64(time.Second))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// Limit returns the refill rate in tokens per second
func (tb *TokenBucketLimiter) Limit() float64 {
	return tb.rate
}

// Burst returns the burst capacity
func (tb *TokenBucketLimiter) Burst() int {
	return tb.burst
}

// TokensRemaining returns the number of whole tokens remaining
func (tb *TokenBucketLimiter) TokensRemaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	return int(tb.tokens)
}

// SlidingWindowLimiter caps the number of operations inside a rolling
// time window. Suited to expensive endpoints where a burst budget is
// less meaningful than a hard per-window cap.
type SlidingWindowLimiter struct {
	limit    int
	window   time.Duration
	requests []time.Time
	mu       sync.Mutex
}

// NewSlidingWindowLimiter creates a sliding window limiter allowing
// limit operations per window.
func NewSlidingWindowLimiter(limit int, window time.Duration) *SlidingWindowLimiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}

	return &SlidingWindowLimiter{
		limit:    limit,
		window:   window,
		requests: make([]time.Time, 0, limit),
	}
}

// Allow checks if a request is allowed
func (sw *SlidingWindowLimiter) Allow() bool {
	return sw.AllowN(1)
}

// AllowN checks if n requests are allowed
func (sw *SlidingWindowLimiter) AllowN(n int) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.expire(now)

	if len(sw.requests)+n <= sw.limit {
		for i := 0; i < n; i++ {
			sw.requests = append(sw.requests, now)
		}
		return true
	}
	return false
}

// Wait waits until a request is allowed
func (sw *SlidingWindowLimiter) Wait(ctx context.Context) error {
	return sw.WaitN(ctx, 1)
}

// WaitN waits until n requests are allowed or the context is done
func (sw *SlidingWindowLimiter) WaitN(ctx context.Context, n int) error {
	if n > sw.limit {
		return ErrRequestTooLarge
	}

	for {
		if sw.AllowN(n) {
			return nil
		}

		select {
		case <-time.After(sw.waitTime()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// expire drops requests that have left the window. Caller must hold mu.
func (sw *SlidingWindowLimiter) expire(now time.Time) {
	cutoff := now.Add(-sw.window)
	start := 0
	for start < len(sw.requests) && sw.requests[start].Before(cutoff) {
		start++
	}
	if start > 0 {
		sw.requests = sw.requests[start:]
	}
}

// waitTime estimates how long until the oldest request leaves the window
func (sw *SlidingWindowLimiter) waitTime() time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if len(sw.requests) == 0 {
		return time.Millisecond
	}

	wait := time.Until(sw.requests[0].Add(sw.window))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// Limit returns the average allowed rate in operations per second
func (sw *SlidingWindowLimiter) Limit() float64 {
	return float64(sw.limit) / sw.window.Seconds()
}

// Burst returns the per-window capacity
func (sw *SlidingWindowLimiter) Burst() int {
	return sw.limit
}

// TokensRemaining returns remaining capacity in the current window
func (sw *SlidingWindowLimiter) TokensRemaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.expire(time.Now())
	return sw.limit - len(sw.requests)
}

// LimiterStats is a snapshot of a limiter's state
type LimiterStats struct {
	Limit     float64 `json:"limit"`
	Burst     int     `json:"burst"`
	Remaining int     `json:"remaining"`
}

// Manager hands out named rate limiters, creating them on first use.
// Keying limiters by client address bounds each caller independently.
type Manager struct {
	limiters map[string]RateLimiter
	maxSize  int
	mu       sync.RWMutex
	log      *logger.Logger
}

// DefaultManagerMaxSize bounds the number of tracked limiters before
// the manager flushes its state.
const DefaultManagerMaxSize = 10000

// NewManager creates a rate limiter manager
func NewManager() *Manager {
	return &Manager{
		limiters: make(map[string]RateLimiter),
		maxSize:  DefaultManagerMaxSize,
		log:      logger.GetLogger("backpressure.manager"),
	}
}

// TokenBucket gets or creates a token bucket limiter under name
func (m *Manager) TokenBucket(name string, rate float64, burst int) RateLimiter {
	return m.getOrCreate(name, func() RateLimiter {
		return NewTokenBucketLimiter(rate, burst)
	})
}

// SlidingWindow gets or creates a sliding window limiter under name
func (m *Manager) SlidingWindow(name string, limit int, window time.Duration) RateLimiter {
	return m.getOrCreate(name, func() RateLimiter {
		return NewSlidingWindowLimiter(limit, window)
	})
}

func (m *Manager) getOrCreate(name string, create func() RateLimiter) RateLimiter {
	m.mu.RLock()
	limiter, exists := m.limiters[name]
	m.mu.RUnlock()
	if exists {
		return limiter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.limiters[name]; exists {
		return limiter
	}

	// Keys are client addresses, so the table must stay bounded.
	// A flush refills every bucket, which briefly re-admits bursts.
	if len(m.limiters) >= m.maxSize {
		m.log.Warnf("Limiter table reached %d entries, flushing", m.maxSize)
		m.limiters = make(map[string]RateLimiter)
	}

	limiter = create()
	m.limiters[name] = limiter
	m.log.Debugf("Created rate limiter '%s'", name)
	return limiter
}

// Remove removes a rate limiter
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.limiters, name)
}

// Stats returns a snapshot of every tracked limiter
func (m *Manager) Stats() map[string]LimiterStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]LimiterStats, len(m.limiters))
	for name, limiter := range m.limiters {
		stats[name] = LimiterStats{
			Limit:     limiter.Limit(),
			Burst:     limiter.Burst(),
			Remaining: limiter.TokensRemaining(),
		}
	}
	return stats
}
