package aur

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds concurrent outstanding requests and enforces a minimum
// delay between successive grants process-wide. It is the sole serialization
// point for outbound RPC traffic: steady-state throughput is bounded by
// maxConcurrent permits spaced at least minDelay apart.
type Limiter struct {
	sem      *semaphore.Weighted
	minDelay time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewLimiter creates a Limiter allowing maxConcurrent held permits with at
// least minDelay between grants.
func NewLimiter(maxConcurrent int, minDelay time.Duration) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		minDelay: minDelay,
	}
}

// Acquire blocks until a permit is available and the minimum delay since the
// previous grant has elapsed, then returns a release func. Release frees the
// concurrency slot but does not reset the delay timer. The only error is a
// cancelled context.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	// The lock is intentionally held across the sleep so that grants are
	// spaced out even when many callers arrive at once.
	l.mu.Lock()
	if wait := l.minDelay - time.Since(l.last); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.mu.Unlock()
			l.sem.Release(1)
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	l.last = time.Now()
	l.mu.Unlock()

	return func() { l.sem.Release(1) }, nil
}
