package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// TokenBucket is an in-memory token bucket limiter. Each key gets Capacity
// tokens which refill linearly over RefillEvery.
type TokenBucket struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	capacity    int
	refillEvery time.Duration
	now         func() time.Time

	ticker    *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// TokenBucketConfig holds configuration for the token bucket limiter
type TokenBucketConfig struct {
	Capacity    int
	RefillEvery time.Duration
	// CleanupInterval is how often idle buckets are dropped. Zero disables
	// the background sweep.
	CleanupInterval time.Duration
}

// NewTokenBucket creates a token bucket limiter
func NewTokenBucket(cfg TokenBucketConfig) (*TokenBucket, error) {
	if cfg.Capacity <= 0 {
		return nil, errors.New("capacity must be greater than 0")
	}
	if cfg.RefillEvery <= 0 {
		return nil, errors.New("refill interval must be greater than 0")
	}

	tb := &TokenBucket{
		buckets:     make(map[string]*bucket),
		capacity:    cfg.Capacity,
		refillEvery: cfg.RefillEvery,
		now:         time.Now,
		done:        make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		tb.ticker = time.NewTicker(cfg.CleanupInterval)
		go tb.sweepLoop()
	}
	return tb, nil
}

// Allow consumes one token for key if any are left
func (tb *TokenBucket) Allow(_ context.Context, key string) (*Decision, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, lastRefill: now}
		tb.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		refill := int(float64(tb.capacity) * elapsed.Seconds() / tb.refillEvery.Seconds())
		if refill > 0 {
			b.tokens = min(tb.capacity, b.tokens+refill)
			b.lastRefill = now
		}
	}

	d := &Decision{
		Limit:   tb.capacity,
		ResetAt: b.lastRefill.Add(tb.refillEvery),
	}
	if b.tokens > 0 {
		b.tokens--
		d.Allowed = true
	}
	d.Remaining = b.tokens
	return d, nil
}

// Reset forgets key so its next request starts with a full bucket
func (tb *TokenBucket) Reset(_ context.Context, key string) error {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	delete(tb.buckets, key)
	return nil
}

// Len reports how many keys are tracked
func (tb *TokenBucket) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}

func (tb *TokenBucket) sweepLoop() {
	for {
		select {
		case <-tb.ticker.C:
			tb.sweep()
		case <-tb.done:
			return
		}
	}
}

// sweep drops buckets idle for more than two refill periods; they would be
// full again anyway.
func (tb *TokenBucket) sweep() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	cutoff := tb.now().Add(-2 * tb.refillEvery)
	for key, b := range tb.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(tb.buckets, key)
		}
	}
}

// Close stops the background sweep
func (tb *TokenBucket) Close() error {
	tb.closeOnce.Do(func() {
		close(tb.done)
		if tb.ticker != nil {
			tb.ticker.Stop()
		}
	})
	return nil
}
