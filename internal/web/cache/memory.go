package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache is the single-process Cache used when no redis is
// configured. Expired entries are never returned; the janitor only
// reclaims their memory.
type MemoryCache struct {
	prefix     string
	defaultTTL time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]entry

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) live(now time.Time) bool {
	return e.expires.IsZero() || !now.After(e.expires)
}

// NewMemoryCache returns a cache that sweeps expired entries every
// sweepEvery; 0 disables the janitor goroutine.
func NewMemoryCache(config Config, sweepEvery time.Duration) *MemoryCache {
	return newMemoryCache(config, sweepEvery, time.Now)
}

func newMemoryCache(config Config, sweepEvery time.Duration, now func() time.Time) *MemoryCache {
	m := &MemoryCache{
		prefix:     config.Prefix,
		defaultTTL: config.DefaultTTL,
		now:        now,
		entries:    make(map[string]entry),
		stop:       make(chan struct{}),
	}
	if sweepEvery > 0 {
		m.wg.Add(1)
		go m.janitor(sweepEvery)
	}
	return m
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	e, ok := m.entries[m.prefix+key]
	m.mu.RUnlock()
	if !ok || !e.live(m.now()) {
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

// Set copies value, so callers may reuse their buffer. ttl <= 0 means the
// configured default.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[m.prefix+key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, m.prefix+key)
	}
	return nil
}

// DeletePrefix drops every key under prefix, e.g. all of one user's stats
func (m *MemoryCache) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := m.prefix + prefix
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, full) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Close stops the janitor and waits for it
func (m *MemoryCache) Close() error {
	m.once.Do(func() { close(m.stop) })
	m.wg.Wait()
	return nil
}

func (m *MemoryCache) janitor(every time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *MemoryCache) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.entries {
		if !e.live(now) {
			delete(m.entries, key)
		}
	}
}
