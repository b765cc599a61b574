// Package cache provides the read-through cache in front of aggregate
// queries (stats, leaderboard, achievement catalog)
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache defines the interface for all cache backends
type Cache interface {
	// Get retrieves a value, returning ErrCacheMiss when absent or expired
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value; ttl <= 0 uses the backend default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the given keys
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error
}

// Config holds common configuration for cache backends
type Config struct {
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "habitnation:cache:",
	}
}

// ErrCacheMiss is returned when a key is not found in the cache
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// GetJSON loads key into dst
func GetJSON(ctx context.Context, c Cache, key string, dst interface{}) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// SetJSON stores v under key
func SetJSON(ctx context.Context, c Cache, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// Loader reads through a cache. Concurrent misses for the same key share a
// single load. Cache errors other than a miss fall back to the loader and
// are reported to OnError.
type Loader struct {
	cache   Cache
	group   singleflight.Group
	OnError func(key string, err error)
}

// NewLoader creates a Loader over c. A nil cache always loads.
func NewLoader(c Cache) *Loader {
	return &Loader{cache: c}
}

// Cache returns the underlying cache
func (l *Loader) Cache() Cache {
	return l.cache
}

// Fetch returns the cached value for key or calls load and stores its result
func Fetch[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var out T
	if l == nil || l.cache == nil {
		return load(ctx)
	}

	err := GetJSON(ctx, l.cache, key, &out)
	if err == nil {
		return out, nil
	}
	if !IsCacheMiss(err) {
		l.report(key, err)
	}

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := SetJSON(ctx, l.cache, key, val, ttl); err != nil {
			l.report(key, err)
		}
		return val, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}

// Invalidate deletes keys, reporting failures instead of returning them
func (l *Loader) Invalidate(ctx context.Context, keys ...string) {
	if l == nil || l.cache == nil || len(keys) == 0 {
		return
	}
	if err := l.cache.Delete(ctx, keys...); err != nil {
		l.report(keys[0], err)
	}
}

// InvalidatePrefix deletes every key under prefix
func (l *Loader) InvalidatePrefix(ctx context.Context, prefix string) {
	if l == nil || l.cache == nil {
		return
	}
	if err := l.cache.DeletePrefix(ctx, prefix); err != nil {
		l.report(prefix, err)
	}
}

func (l *Loader) report(key string, err error) {
	if l.OnError != nil {
		l.OnError(key, err)
	}
}
