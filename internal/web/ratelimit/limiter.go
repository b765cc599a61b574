// Package ratelimit limits how often a client may call the API
package ratelimit

import (
	"context"
	"time"
)

// RateLimiter defines the interface for rate limiting implementations
type RateLimiter interface {
	// Allow records a request for key and reports whether it may proceed
	Allow(ctx context.Context, key string) (*Info, error)
}

// Info contains information about the current rate limit state
type Info struct {
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Remaining is the number of requests remaining in the current window
	Remaining int
	// ResetAt is when the rate limit window resets
	ResetAt time.Time
	// Allowed indicates whether the request should be allowed
	Allowed bool
}

// RetryAfter returns whole seconds until the window resets, never negative
func (i *Info) RetryAfter(now time.Time) int {
	secs := int(i.ResetAt.Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
