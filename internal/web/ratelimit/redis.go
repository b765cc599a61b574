package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisRateLimiter
type RedisConfig struct {
	Client redis.UniversalClient
	Limit  int
	Window time.Duration
	Prefix string
}

// RedisRateLimiter keeps a sliding window per key in a sorted set, so the
// limit holds across every API instance sharing the redis. Rejected
// requests are recorded too: a client hammering the API stays blocked
// until it backs off for a full window.
type RedisRateLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisRateLimiter(cfg RedisConfig) (*RedisRateLimiter, error) {
	switch {
	case cfg.Client == nil:
		return nil, errors.New("ratelimit: redis client is required")
	case cfg.Limit <= 0:
		return nil, errors.New("ratelimit: limit must be positive")
	case cfg.Window <= 0:
		return nil, errors.New("ratelimit: window must be positive")
	}
	return &RedisRateLimiter{
		client: cfg.Client,
		limit:  cfg.Limit,
		window: cfg.Window,
		prefix: cfg.Prefix + "ratelimit:",
		now:    time.Now,
	}, nil
}

// Allow records a hit for key and counts the hits inside the window
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (*Info, error) {
	now := r.now()
	k := r.prefix + key
	cutoff := "(" + strconv.FormatInt(now.Add(-r.window).UnixMicro(), 10)

	var count *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, k, "-inf", cutoff)
		pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMicro()), Member: uuid.NewString()})
		count = pipe.ZCard(ctx, k)
		pipe.PExpire(ctx, k, r.window)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: redis: %w", err)
	}

	n := int(count.Val())
	return &Info{
		Limit:     r.limit,
		Remaining: max(0, r.limit-n),
		ResetAt:   now.Add(r.window),
		Allowed:   n <= r.limit,
	}, nil
}

// Reset forgets every hit recorded for key
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
