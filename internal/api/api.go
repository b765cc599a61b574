// Package api exposes the HabitNation REST and websocket endpoints
package api

import (
	"context"

	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/config"
	"github.com/habitnation/habitnation/internal/service"
	"github.com/habitnation/habitnation/internal/web/auth"
	"github.com/habitnation/habitnation/internal/web/middleware"
	"github.com/habitnation/habitnation/internal/web/profiling"
	"github.com/habitnation/habitnation/internal/web/ratelimit"
	"github.com/habitnation/habitnation/internal/web/request"
	"github.com/habitnation/habitnation/internal/web/router"
	"github.com/habitnation/habitnation/internal/web/websocket"
)

// Deps are the collaborators the API is built from
type Deps struct {
	Config  *config.Config
	Service *service.Service
	Tokens  *auth.AuthService
	// Hub enables /ws when set
	Hub *websocket.Hub
	// Limiter applies per user to authenticated routes
	Limiter ratelimit.RateLimiter
	// AuthLimiter applies per client IP to register and login
	AuthLimiter ratelimit.RateLimiter
	// Health reports whether backing services are reachable
	Health func(context.Context) error
	Logger *zap.Logger
}

// API holds the HTTP handlers
type API struct {
	cfg         *config.Config
	svc         *service.Service
	tokens      *auth.AuthService
	hub         *websocket.Hub
	upgrader    *websocket.Upgrader
	limiter     ratelimit.RateLimiter
	authLimiter ratelimit.RateLimiter
	health      func(context.Context) error
	logger      *zap.Logger
	strict      *request.Parser
	lenient     *request.Parser
}

// New creates the API
func New(d Deps) *API {
	a := &API{
		cfg:         d.Config,
		svc:         d.Service,
		tokens:      d.Tokens,
		hub:         d.Hub,
		limiter:     d.Limiter,
		authLimiter: d.AuthLimiter,
		health:      d.Health,
		logger:      d.Logger,
		strict:      request.NewParser(),
		lenient:     request.NewParser().Lenient(),
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.hub != nil {
		wsConfig := websocket.DefaultConfig()
		wsConfig.AllowedOrigins = a.cfg.Server.CORSOrigins
		a.upgrader = websocket.NewUpgrader(wsConfig, a.hub)
	}
	return a
}

// Handler builds the router. Everything except /health lives under the
// configured API prefix.
func (a *API) Handler() *router.Router {
	r := router.New()
	r.Use(
		middleware.RequestID(),
		middleware.LoggingWithConfig(middleware.LoggingConfig{Logger: a.logger, SkipPaths: []string{"/health"}}),
		middleware.Recovery(a.cfg.IsDevelopment()),
		middleware.CORS(a.cfg.Server.CORSOrigins),
	)
	r.Get("/health", a.healthCheck)

	requireAuth := middleware.Auth(a.tokens)
	timeout := middleware.Timeout(a.cfg.Server.RequestTimeout)

	r.Group(a.cfg.Server.APIPrefix, func(g *router.Router) {
		public := g.With(append([]middleware.Middleware{timeout}, a.rateLimit(a.authLimiter, "auth")...)...)
		protected := g.Authenticated(append([]middleware.Middleware{timeout, requireAuth}, a.rateLimit(a.limiter, "api")...)...)

		public.Post("/auth/register", a.register)
		public.Post("/auth/login", a.login)
		protected.Get("/auth/me", a.me)

		protected.Get("/users/me", a.me)
		protected.Put("/users/me", a.updateProfile)
		protected.Put("/users/me/password", a.changePassword)
		protected.Get("/users/me/stats", a.stats)
		protected.Get("/users/me/export", a.exportCompletions)

		protected.Get("/habits", a.listHabits)
		protected.Post("/habits", a.createHabit)
		protected.Get("/habits/{id}", a.getHabit)
		protected.Put("/habits/{id}", a.updateHabit)
		protected.Delete("/habits/{id}", a.deleteHabit)
		protected.Post("/habits/{id}/complete", a.completeHabit)
		protected.Get("/habits/{id}/completions", a.listCompletions)

		protected.Get("/achievements", a.listAchievements)
		protected.Post("/achievements", a.createAchievement)
		protected.Get("/achievements/user", a.userAchievements)
		protected.Post("/achievements/check", a.checkAchievements)

		protected.Get("/leaderboard", a.leaderboard)

		if a.upgrader != nil {
			g.Get("/ws", a.serveWebsocket)
		}
		if a.cfg.Profiling.Enabled {
			g.Authenticated(requireAuth, middleware.RequireRole(auth.RoleAdmin)).Mount("/debug/pprof", profiling.Handler())
		}
	})
	return r
}

func (a *API) rateLimit(l ratelimit.RateLimiter, scope string) []middleware.Middleware {
	if l == nil || !a.cfg.RateLimit.Enabled {
		return nil
	}
	return []middleware.Middleware{middleware.RateLimit(l, scope)}
}
