package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/habitnation/habitnation/internal/config"
	"github.com/habitnation/habitnation/internal/habit"
	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/web/auth"
	"github.com/habitnation/habitnation/internal/web/cache"
	"github.com/habitnation/habitnation/internal/web/jobs"
)

func TestMain(m *testing.M) {
	auth.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// Wednesday
var startTime = time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)

type event struct {
	userID string
	kind   string
	data   interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) Publish(userID, eventType string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{userID, eventType, data})
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.kind)
	}
	return out
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	svc    *Service
	store  *store.Store
	queue  *jobs.Queue
	cache  *cache.MemoryCache
	events *recorder
	clock  *clock
	tokens *auth.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, config.DatabaseConfig{Driver: "sqlite3", URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Migrator(nil).MigrateUp(ctx, store.Migrations(db.Dialect))
	require.NoError(t, err)

	f := &fixture{
		store:  store.New(db),
		queue:  jobs.NewQueue(db),
		cache:  cache.NewMemoryCache(cache.DefaultConfig(), 0),
		events: &recorder{},
		clock:  &clock{t: startTime},
		tokens: auth.NewAuthService("test-secret", time.Hour),
	}
	t.Cleanup(func() { f.cache.Close() })

	f.svc = New(f.store, f.tokens,
		WithCache(cache.NewLoader(f.cache)),
		WithNotifier(f.events),
		WithQueue(f.queue),
		WithLogger(zaptest.NewLogger(t)),
		WithClock(f.clock.Now),
	)
	return f
}

func (f *fixture) register(t *testing.T, username string) *habit.PublicUser {
	t.Helper()
	sess, err := f.svc.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	return &sess.User
}

func (f *fixture) habit(t *testing.T, userID, name string, in habit.Input) *habit.Habit {
	t.Helper()
	in.Name = &name
	h, err := f.svc.CreateHabit(context.Background(), userID, in)
	require.NoError(t, err)
	return h
}

func (f *fixture) admin(t *testing.T, username string) *habit.PublicUser {
	t.Helper()
	u := f.register(t, username)
	require.NoError(t, f.svc.PromoteUser(context.Background(), u.Email, true))
	return u
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }
