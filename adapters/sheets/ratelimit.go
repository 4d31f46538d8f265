package sheets

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// RateLimiter implements token bucket rate limiting, refilled once per minute
type RateLimiter struct {
	rate       int // requests per minute
	tokens     chan struct{}
	resetTimer *time.Timer
	stopOnce   sync.Once
	stopped    atomic.Bool
}

// NewRateLimiter returns nil when requestsPerMinute is not positive; a nil
// limiter never blocks.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	rl := &RateLimiter{
		rate:   requestsPerMinute,
		tokens: make(chan struct{}, requestsPerMinute),
	}
	rl.fill()
	rl.resetTimer = time.AfterFunc(time.Minute, rl.resetTokens)
	return rl
}

// Wait blocks until a token is available or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	select {
	case <-rl.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop halts the refill timer
func (rl *RateLimiter) Stop() {
	if rl == nil {
		return
	}
	rl.stopOnce.Do(func() {
		rl.stopped.Store(true)
		rl.resetTimer.Stop()
	})
}

func (rl *RateLimiter) fill() {
	for i := 0; i < rl.rate; i++ {
		select {
		case rl.tokens <- struct{}{}:
		default:
			return
		}
	}
}

func (rl *RateLimiter) resetTokens() {
	if rl.stopped.Load() {
		return
	}
	rl.fill()
	rl.resetTimer.Reset(time.Minute)
}
