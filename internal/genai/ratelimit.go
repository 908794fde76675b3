package genai

import (
	"context"
	"sync"
	"time"
)

// RateLimiter allows at most requestsPerMinute calls in any sliding
// one-minute window.
type RateLimiter struct {
	requestsPerMinute int
	requests          []time.Time
	mu                sync.Mutex

	now   func() time.Time
	sleep SleepFunc
}

// NewRateLimiter returns nil when requestsPerMinute is not positive; a nil
// limiter never blocks.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requests:          make([]time.Time, 0, requestsPerMinute),
		now:               time.Now,
		sleep:             Sleep,
	}
}

// Wait blocks until a request can be made within the rate limit
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)

	if len(rl.requests) >= rl.requestsPerMinute {
		waitDuration := rl.requests[0].Add(time.Minute).Sub(now)
		if waitDuration > 0 {
			// Holding the lock keeps waiters in arrival order.
			if err := rl.sleep(ctx, waitDuration); err != nil {
				return err
			}
			now = rl.now()
			rl.prune(now)
		}
	}

	rl.requests = append(rl.requests, now)
	return nil
}

// Usage returns the requests in the current window and the limit.
func (rl *RateLimiter) Usage() (int, int) {
	if rl == nil {
		return 0, 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.prune(rl.now())
	return len(rl.requests), rl.requestsPerMinute
}

func (rl *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-time.Minute)
	valid := rl.requests[:0]
	for _, t := range rl.requests {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	rl.requests = valid
}
