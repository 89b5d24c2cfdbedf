// Package ratelimit implements the keyed token bucket used by the data
// plane. Buckets are created lazily per key, refill on access from elapsed
// wall-clock time, and hold fractional tokens.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/striped-zebra-dev/oagw/internal/model"
	"github.com/striped-zebra-dev/oagw/internal/oagwerr"
)

// fallbackRetryAfter is returned when the refill rate is degenerate and a
// real estimate cannot be computed.
const fallbackRetryAfter = 60

// cleanupInterval is how often idle buckets are swept.
const cleanupInterval = 5 * time.Minute

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// refill credits tokens for the time elapsed since the last touch,
// clamped to capacity.
func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.tokens+elapsed*b.refillRate, b.capacity)
	}
	b.last = now
}

// retryAfterSecs estimates whole seconds until cost tokens are available.
func (b *bucket) retryAfterSecs(cost float64) int64 {
	if b.refillRate <= 0 {
		return fallbackRetryAfter
	}
	needed := cost - b.tokens
	if needed <= 0 {
		return 0
	}
	return int64(math.Ceil(needed / b.refillRate))
}

// Limiter is a keyed token-bucket rate limiter shared by all in-flight
// requests. Lookups are sharded; per-bucket mutation is serialized by the
// bucket's own mutex.
type Limiter struct {
	buckets *shardedMap[*bucket]
	now     func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a limiter and starts its idle-bucket sweeper.
func New() *Limiter {
	l := &Limiter{
		buckets: newShardedMap[*bucket](),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// TryConsume refills the key's bucket and consumes cost tokens from it.
// On exhaustion it returns a RateLimitExceeded error carrying the
// retry-after estimate; no tokens are deducted in that case.
func (l *Limiter) TryConsume(key string, cfg *model.RateLimitConfig, instanceURI string) *oagwerr.Error {
	cost := cfg.EffectiveCost()
	now := l.now()

	b := l.buckets.getOrCreate(key, func() *bucket {
		capacity := cfg.EffectiveCapacity()
		return &bucket{
			tokens:     capacity,
			capacity:   capacity,
			refillRate: cfg.RefillRate(),
			last:       now,
		}
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	// Track config changes so an updated upstream takes effect without a
	// process restart. Shrinking capacity clamps on the next refill.
	b.capacity = cfg.EffectiveCapacity()
	b.refillRate = cfg.RefillRate()

	b.refill(now)
	if b.tokens >= cost {
		b.tokens -= cost
		return nil
	}

	err := oagwerr.Newf(oagwerr.KindRateLimitExceeded, instanceURI,
		"rate limit exceeded for key: %s", key)
	err.RetryAfterSecs = b.retryAfterSecs(cost)
	return err
}

// Len returns the current bucket count (for introspection and tests).
func (l *Limiter) Len() int {
	return l.buckets.size()
}

// Close stops the sweeper goroutine.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// cleanup periodically evicts buckets that have been idle long enough to
// refill completely: recreating such a bucket yields the identical full
// bucket, so eviction can never cause a false rejection.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep(l.now())
		}
	}
}

// sweep runs one eviction pass at the given time.
func (l *Limiter) sweep(now time.Time) {
	l.buckets.deleteFunc(func(_ string, b *bucket) bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		idle := now.Sub(b.last)
		if idle < cleanupInterval {
			return false
		}
		return idle.Seconds()*b.refillRate >= b.capacity
	})
}
