// Package ratelimit implements a fixed-window, per-IP request limiter on
// Redis, used to slow down credential stuffing against the auth endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Limiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewLimiter allows `limit` requests per key within each `window`.
func NewLimiter(client *redis.Client, limit int64, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: limit, window: window}
}

// Allow records a request for the given IP and purpose and reports whether
// it is within the limit. The counter key expires with the window, so stale
// entries clean themselves up.
func (l *Limiter) Allow(ctx context.Context, ip, purpose string) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", purpose, ip)

	pipe := l.client.Pipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to record request: %w", err)
	}

	return count.Val() <= l.limit, nil
}
