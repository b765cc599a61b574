package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/habitnation/habitnation/internal/api"
	"github.com/habitnation/habitnation/internal/config"
	"github.com/habitnation/habitnation/internal/logging"
	"github.com/habitnation/habitnation/internal/service"
	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/web/auth"
	"github.com/habitnation/habitnation/internal/web/cache"
	"github.com/habitnation/habitnation/internal/web/jobs"
	"github.com/habitnation/habitnation/internal/web/ratelimit"
	"github.com/habitnation/habitnation/internal/web/server"
	"github.com/habitnation/habitnation/internal/web/websocket"
)

const (
	jobPurge       = "jobs.purge"
	purgeRetention = 7 * 24 * time.Hour
	jobTimeout     = 5 * time.Minute
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server, realtime hub and background workers",
		Long: `Run the API server, realtime hub and background workers.

Pending migrations are applied before the listener opens. When redis.url
is set, caching and rate limiting are shared through Redis; otherwise
they are kept in process. Editing the config file adjusts log.level
without a restart.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	v, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, level, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if v.ConfigFileUsed() != "" {
		config.Watch(v, func(next *config.Config) {
			if err := logging.SetLevel(level, next.Log.Level); err != nil {
				logger.Warn("ignoring log level change", zap.Error(err))
				return
			}
			logger.Info("configuration reloaded", zap.String("log_level", next.Log.Level))
		}, func(err error) {
			logger.Warn("configuration reload failed", zap.Error(err))
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return a.run(ctx)
}

// app is a fully wired server process
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *store.DB
	hub      *websocket.Hub
	pool     *jobs.WorkerPool
	sched    *jobs.Scheduler
	server   *server.Server
	shutdown *server.GracefulShutdown
	// closers release backing services after every component stopped
	closers []namedCloser
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	a.db, err = store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, namedCloser{"database", func(context.Context) error { return a.db.Close() }})

	n, err := migrateLatest(ctx, a.db, logger.Named("migrate"))
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if n > 0 {
		logger.Info("database migrated", zap.Int("applied", n))
	}

	b, err := newBackends(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, b.closers...)

	tokens := auth.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	queue := jobs.NewQueue(a.db)
	a.hub = websocket.NewHub(logger.Named("ws"))

	st := store.New(a.db)
	svc := service.New(st, tokens,
		service.WithCache(cache.NewLoader(b.cache)),
		service.WithCacheTTLs(cfg.Cache),
		service.WithNotifier(a.hub),
		service.WithQueue(queue),
		service.WithLogger(logger.Named("service")),
	)

	a.pool = jobs.NewWorkerPool(queue, jobs.PoolConfig{
		Queue:        service.JobQueue,
		Workers:      cfg.Jobs.Workers,
		PollInterval: cfg.Jobs.PollInterval,
		JobTimeout:   jobTimeout,
	}, logger.Named("jobs"))
	svc.RegisterJobs(a.pool)
	a.pool.RegisterHandler(jobPurge, purgeJobs(queue, logger))

	a.sched = jobs.NewScheduler(queue, logger.Named("scheduler"))
	schedules := append(svc.Schedules(cfg.Jobs.StreakSweepInterval), jobs.Schedule{
		Queue:    service.JobQueue,
		Type:     jobPurge,
		Interval: 24 * time.Hour,
	})
	for _, s := range schedules {
		if err := a.sched.Add(s); err != nil {
			return nil, err
		}
	}

	handler := api.New(api.Deps{
		Config:      cfg,
		Service:     svc,
		Tokens:      tokens,
		Hub:         a.hub,
		Limiter:     b.limiter,
		AuthLimiter: b.authLimiter,
		Health:      st.Ping,
		Logger:      logger.Named("http"),
	}).Handler()

	a.server, err = server.New(cfg.Server, handler, logger)
	if err != nil {
		return nil, err
	}
	if err := a.server.Listen(); err != nil {
		return nil, err
	}

	a.shutdown = server.NewGracefulShutdown(a.server, cfg.Server.ShutdownTimeout, logger)
	a.shutdown.RegisterHook("job metrics", func(context.Context) error {
		for jobType, stats := range a.pool.Metrics().All() {
			logger.Info("job stats",
				zap.String("type", jobType),
				zap.Int64("processed", stats.Processed),
				zap.Int64("failed", stats.Failed),
				zap.Duration("avg", stats.AvgDuration()),
			)
		}
		return nil
	})
	return a, nil
}

// run serves until ctx ends or a component fails, then drains everything
func (a *app) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.hub.Run(gctx) })
	g.Go(func() error { return a.pool.Run(gctx) })
	g.Go(func() error { return a.sched.Run(gctx) })
	g.Go(func() error { return a.shutdown.Run(gctx) })
	return errors.Join(g.Wait(), a.close())
}

// close releases backing services in reverse order of acquisition
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Addr is the bound listen address
func (a *app) Addr() string {
	return a.server.Addr()
}

type namedCloser struct {
	name string
	fn   func(context.Context) error
}

// backends are the cache and rate limiters, shared through Redis when one
// is configured
type backends struct {
	cache       cache.Cache
	limiter     ratelimit.RateLimiter
	authLimiter ratelimit.RateLimiter
	closers     []namedCloser
}

func newBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backends, error) {
	cacheConfig := cache.DefaultConfig()
	cacheConfig.Prefix = cfg.Redis.Prefix + "cache:"

	if cfg.Redis.URL == "" {
		mem := cache.NewMemoryCache(cacheConfig, time.Minute)
		apiLimit := ratelimit.NewTokenBucket(ratelimit.TokenBucketConfig{
			Capacity:        cfg.RateLimit.Requests,
			RefillRate:      cfg.RateLimit.Window,
			CleanupInterval: 10 * time.Minute,
		})
		authLimit := ratelimit.NewTokenBucket(ratelimit.TokenBucketConfig{
			Capacity:        cfg.RateLimit.AuthRequests,
			RefillRate:      cfg.RateLimit.Window,
			CleanupInterval: 10 * time.Minute,
		})
		logger.Info("using in-process cache and rate limiting")
		return &backends{
			cache:       mem,
			limiter:     apiLimit,
			authLimiter: authLimit,
			closers: []namedCloser{
				{"cache", func(context.Context) error { return mem.Close() }},
				{"rate limiter", func(context.Context) error { return apiLimit.Close() }},
				{"auth rate limiter", func(context.Context) error { return authLimit.Close() }},
			},
		}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	apiLimit, err := ratelimit.NewRedisRateLimiter(ratelimit.RedisConfig{
		Client: client,
		Limit:  cfg.RateLimit.Requests,
		Window: cfg.RateLimit.Window,
		Prefix: cfg.Redis.Prefix + "ratelimit:",
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	authLimit, err := ratelimit.NewRedisRateLimiter(ratelimit.RedisConfig{
		Client: client,
		Limit:  cfg.RateLimit.AuthRequests,
		Window: cfg.RateLimit.Window,
		Prefix: cfg.Redis.Prefix + "ratelimit:",
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("using redis cache and rate limiting", zap.String("addr", opts.Addr))
	return &backends{
		cache:       cache.NewRedisCache(client, cacheConfig),
		limiter:     apiLimit,
		authLimiter: authLimit,
		closers: []namedCloser{
			{"redis", func(context.Context) error { return client.Close() }},
		},
	}, nil
}

func purgeJobs(queue *jobs.Queue, logger *zap.Logger) jobs.Handler {
	return func(ctx context.Context, job *jobs.Job) error {
		n, err := queue.PurgeFinished(ctx, purgeRetention)
		if err != nil {
			return err
		}
		logger.Info("purged finished jobs", zap.Int64("count", n))
		return nil
	}
}
