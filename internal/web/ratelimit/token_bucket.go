package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// TokenBucketConfig sizes an in-memory limiter
type TokenBucketConfig struct {
	// Capacity is the burst size and the number of requests per RefillRate
	Capacity int
	// RefillRate is how long an empty bucket takes to fill up again
	RefillRate time.Duration
	// CleanupInterval is how often idle buckets are dropped; 0 never drops them
	CleanupInterval time.Duration
}

// TokenBucket limits per key inside a single process. Tokens refill
// continuously, so a client that waits half the period gets half its
// allowance back. It backs the API when redis is not configured.
type TokenBucket struct {
	capacity float64
	period   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewTokenBucket starts a limiter, plus a janitor goroutine when
// cfg.CleanupInterval is set. Close stops the janitor.
func NewTokenBucket(cfg TokenBucketConfig) *TokenBucket {
	tb := &TokenBucket{
		capacity: float64(cfg.Capacity),
		period:   cfg.RefillRate,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
		stop:     make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		tb.wg.Add(1)
		go tb.janitor(cfg.CleanupInterval)
	}
	return tb
}

// Allow takes one token from key's bucket if there is one
func (tb *TokenBucket) Allow(_ context.Context, key string) (*Info, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b := tb.refill(key, now)

	allowed := b.tokens >= 1
	if allowed {
		b.tokens--
	}

	missing := tb.capacity - b.tokens
	return &Info{
		Limit:     int(tb.capacity),
		Remaining: int(math.Floor(b.tokens)),
		ResetAt:   now.Add(time.Duration(missing / tb.capacity * float64(tb.period))),
		Allowed:   allowed,
	}, nil
}

// refill returns key's bucket topped up for the time since it was last seen
func (tb *TokenBucket) refill(key string, now time.Time) *bucket {
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, seen: now}
		tb.buckets[key] = b
		return b
	}
	if elapsed := now.Sub(b.seen); elapsed > 0 && tb.period > 0 {
		b.tokens = math.Min(tb.capacity, b.tokens+elapsed.Seconds()*tb.capacity/tb.period.Seconds())
		b.seen = now
	}
	return b
}

func (tb *TokenBucket) janitor(every time.Duration) {
	defer tb.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tb.sweep()
		case <-tb.stop:
			return
		}
	}
}

// sweep forgets buckets untouched for two periods. A forgotten bucket
// comes back full, which is where it would have refilled to anyway.
func (tb *TokenBucket) sweep() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	cutoff := tb.now().Add(-2 * tb.period)
	for key, b := range tb.buckets {
		if b.seen.Before(cutoff) {
			delete(tb.buckets, key)
		}
	}
}

// Close stops the janitor and waits for it to exit
func (tb *TokenBucket) Close() error {
	tb.stopOnce.Do(func() { close(tb.stop) })
	tb.wg.Wait()
	return nil
}
