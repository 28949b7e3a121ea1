// Package ratelimit throttles repeated requests from the same client. The
// login form and the API token endpoint use it to slow down password
// guessing.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Decision, error)
}

// Resetter is implemented by limiters that can forget a key.
type Resetter interface {
	Reset(ctx context.Context, key string) error
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	// Limit is the number of requests permitted per window
	Limit int
	// Remaining is how many more requests fit in the current window
	Remaining int
	// ResetAt is when the window frees up again
	ResetAt time.Time
	Allowed bool
}

// RetryAfter is the wait before a denied request is worth retrying.
func (d *Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Config selects and sizes a limiter.
type Config struct {
	Limit  int
	Window time.Duration
	// Prefix namespaces redis keys, e.g. "ratelimit:login:"
	Prefix string
}

// New returns a redis sliding window limiter when client is non-nil and an
// in-process token bucket otherwise. Callers should Close the result when it
// implements io.Closer.
func New(client *redis.Client, cfg Config) (Limiter, error) {
	if client != nil {
		return NewRedisLimiter(RedisConfig{
			Client: client,
			Limit:  cfg.Limit,
			Window: cfg.Window,
			Prefix: cfg.Prefix,
		})
	}
	return NewTokenBucket(TokenBucketConfig{
		Capacity:        cfg.Limit,
		RefillEvery:     cfg.Window,
		CleanupInterval: 2 * cfg.Window,
	})
}
