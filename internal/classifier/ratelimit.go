package classifier

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultRequestsPerMinute = 60

// rateLimiter is a token bucket refilled lazily from elapsed time, so it
// needs no background goroutine. The bucket starts full.
type rateLimiter struct {
	now      func() time.Time
	last     time.Time
	interval time.Duration
	tokens   float64
	capacity float64
	mu       sync.Mutex
}

func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}
	rl := &rateLimiter{
		now:      time.Now,
		interval: time.Minute / time.Duration(requestsPerMinute),
		capacity: float64(requestsPerMinute),
		tokens:   float64(requestsPerMinute),
	}
	rl.last = rl.now()
	return rl
}

// reserve takes a token if one is available. Otherwise it reports how long
// until the next one.
func (rl *rateLimiter) reserve() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if elapsed := now.Sub(rl.last); elapsed > 0 {
		rl.tokens = min(rl.capacity, rl.tokens+float64(elapsed)/float64(rl.interval))
		rl.last = now
	}

	if rl.tokens >= 1 {
		rl.tokens--
		return 0, true
	}
	return time.Duration((1 - rl.tokens) * float64(rl.interval)), false
}

func (rl *rateLimiter) tryAcquire() bool {
	_, ok := rl.reserve()
	return ok
}

// wait blocks until a token is taken or ctx is done.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		delay, ok := rl.reserve()
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}
