package cache

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func backends(t *testing.T) map[string]Cache {
	t.Helper()
	mem := NewMemoryCache(Config{DefaultTTL: time.Minute, Prefix: "t:"}, time.Minute)
	t.Cleanup(func() { mem.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Cache{
		"memory": mem,
		"redis":  NewRedisCache(client, Config{DefaultTTL: time.Minute, Prefix: "t:"}),
	}
}

func TestBackends(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Get(ctx, "missing")
			assert.True(t, IsCacheMiss(err))

			require.NoError(t, c.Set(ctx, StatsKey("u1"), []byte("a"), 0))
			require.NoError(t, c.Set(ctx, StatsKey("u2"), []byte("b"), 0))
			require.NoError(t, c.Set(ctx, LeaderboardKey(10), []byte("c"), 0))

			got, err := c.Get(ctx, StatsKey("u1"))
			require.NoError(t, err)
			assert.Equal(t, []byte("a"), got)

			require.NoError(t, c.Delete(ctx, StatsKey("u1")))
			_, err = c.Get(ctx, StatsKey("u1"))
			assert.True(t, IsCacheMiss(err))

			require.NoError(t, c.DeletePrefix(ctx, StatsPrefix))
			_, err = c.Get(ctx, StatsKey("u2"))
			assert.True(t, IsCacheMiss(err))

			_, err = c.Get(ctx, LeaderboardKey(10))
			assert.NoError(t, err)
		})
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	defer goleak.VerifyNone(t)

	var (
		mu  sync.Mutex
		now = time.Now()
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	mc := newMemoryCache(DefaultConfig(), time.Millisecond, clock)

	ctx := context.Background()
	require.NoError(t, mc.Set(ctx, "k", []byte("v"), time.Second))
	_, err := mc.Get(ctx, "k")
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(2 * time.Second)
	mu.Unlock()
	_, err = mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, mc.Close())
}

func TestFetch(t *testing.T) {
	mc := NewMemoryCache(DefaultConfig(), 0)
	defer mc.Close()
	loader := NewLoader(mc)
	ctx := context.Background()

	var calls int32
	load := func(context.Context) ([]int, error) {
		atomic.AddInt32(&calls, 1)
		return []int{1, 2, 3}, nil
	}

	got, err := Fetch(ctx, loader, "nums", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	got, err = Fetch(ctx, loader, "nums", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	loader.Invalidate(ctx, "nums")
	_, err = Fetch(ctx, loader, "nums", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchConcurrentMisses(t *testing.T) {
	mc := NewMemoryCache(DefaultConfig(), 0)
	defer mc.Close()
	loader := NewLoader(mc)

	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Fetch(context.Background(), loader, "k", time.Minute, load)
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(5))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestFetchLoadError(t *testing.T) {
	loader := NewLoader(NewMemoryCache(DefaultConfig(), 0))
	_, err := Fetch(context.Background(), loader, "k", 0, func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")

	var nilLoader *Loader
	v, err := Fetch(context.Background(), nilLoader, "k", 0, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFetchReportsBackendErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	loader := NewLoader(NewRedisCache(client, DefaultConfig()))

	var reported int32
	loader.OnError = func(string, error) { atomic.AddInt32(&reported, 1) }
	mr.Close()

	v, err := Fetch(context.Background(), loader, "k", 0, func(context.Context) (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&reported))
}

func TestETag(t *testing.T) {
	tag := ETag([]byte(`[{"name":"First Step"}]`))
	assert.Equal(t, tag, ETag([]byte(`[{"name":"First Step"}]`)))

	r := httptest.NewRequest("GET", "/", nil)
	assert.False(t, NotModified(r, tag))
	r.Header.Set("If-None-Match", `"other", W/`+tag)
	assert.True(t, NotModified(r, tag))
}
