// Package service implements the HabitNation operations: accounts, habits,
// completion bookkeeping, achievements and the leaderboard. Handlers call
// into a Service; it owns transactions, cache invalidation and event fan-out.
package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/config"
	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/web/auth"
	"github.com/habitnation/habitnation/internal/web/cache"
	"github.com/habitnation/habitnation/internal/web/jobs"
)

// Notifier delivers realtime events to a user's open connections
type Notifier interface {
	Publish(userID, eventType string, data interface{})
}

// Service is the application layer shared by the API and background jobs
type Service struct {
	store  *store.Store
	tokens *auth.AuthService
	cache  *cache.Loader
	notify Notifier
	queue  *jobs.Queue
	ttl    config.CacheConfig
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithCache enables read-through caching of stats, the leaderboard and the
// achievement catalog
func WithCache(l *cache.Loader) Option {
	return func(s *Service) { s.cache = l }
}

// WithCacheTTLs sets the lifetimes of cached values
func WithCacheTTLs(cfg config.CacheConfig) Option {
	return func(s *Service) { s.ttl = cfg }
}

// WithNotifier publishes completion, level-up and achievement events
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithQueue lets operations hand follow-up work to the job queue
func WithQueue(q *jobs.Queue) Option {
	return func(s *Service) { s.queue = q }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service over st issuing tokens with tokens
func New(st *store.Store, tokens *auth.AuthService, opts ...Option) *Service {
	s := &Service{
		store:  st,
		tokens: tokens,
		ttl: config.CacheConfig{
			StatsTTL:       30 * time.Second,
			LeaderboardTTL: time.Minute,
			CatalogTTL:     10 * time.Minute,
		},
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("service")
	return s
}

func (s *Service) publish(userID, eventType string, data interface{}) {
	if s.notify == nil {
		return
	}
	s.notify.Publish(userID, eventType, data)
}
