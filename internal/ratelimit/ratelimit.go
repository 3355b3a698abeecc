package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter: at most max events within any
// window. Wait blocks until a slot opens or the context ends.
type Limiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	requests []time.Time
	now      func() time.Time
}

// New creates a limiter allowing max events per window.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{max: max, window: window, now: time.Now}
}

// NewPlatform returns a limiter matching the platform API's read/write
// budget: 300 requests per 15 minutes.
func NewPlatform() *Limiter {
	return New(300, 15*time.Minute)
}

// NewGeneration returns a limiter for the hosted inference API: 100 requests
// per hour.
func NewGeneration() *Limiter {
	return New(100, time.Hour)
}

// prune drops timestamps that have left the window. Callers hold mu.
func (l *Limiter) prune(now time.Time) {
	keep := l.requests[:0]
	for _, t := range l.requests {
		if now.Sub(t) < l.window {
			keep = append(keep, t)
		}
	}
	l.requests = keep
}

// Wait blocks until a request slot is available, then claims it. Returns the
// context error if it ends first.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if len(l.requests) < l.max {
			l.requests = append(l.requests, now)
			l.mu.Unlock()
			return nil
		}
		wait := l.window - now.Sub(l.requests[0])
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining reports how many slots are currently free.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	if left := l.max - len(l.requests); left > 0 {
		return left
	}
	return 0
}

// Reset clears the window.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = nil
}
