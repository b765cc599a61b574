package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	webcontext "github.com/habitnation/habitnation/internal/web/context"
	"github.com/habitnation/habitnation/internal/web/ratelimit"
	"github.com/habitnation/habitnation/internal/web/response"
)

// RateLimitKeyFunc extracts a rate limit key from a request
type RateLimitKeyFunc func(*http.Request) string

// RateLimitConfig holds configuration for rate limiting middleware
type RateLimitConfig struct {
	Limiter ratelimit.RateLimiter
	KeyFunc RateLimitKeyFunc
	// Scope prefixes keys so separate limits do not share counters
	Scope string
	// FailOpen lets requests through when the limiter errors
	FailOpen bool
}

// RateLimit limits requests per client IP
func RateLimit(limiter ratelimit.RateLimiter, scope string) Middleware {
	return RateLimitWithConfig(RateLimitConfig{
		Limiter:  limiter,
		KeyFunc:  UserOrIPKeyFunc,
		Scope:    scope,
		FailOpen: true,
	})
}

// RateLimitWithConfig creates a rate limiting middleware with custom configuration
func RateLimitWithConfig(config RateLimitConfig) Middleware {
	if config.KeyFunc == nil {
		config.KeyFunc = IPKeyFunc
	}
	return func(next http.Handler) http.Handler {
		if config.Limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := config.KeyFunc(r)
			if config.Scope != "" {
				key = config.Scope + ":" + key
			}

			info, err := config.Limiter.Allow(r.Context(), key)
			if err != nil {
				webcontext.Logger(r.Context()).Warn("rate limiter unavailable", zap.Error(err))
				if config.FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				response.RenderServiceUnavailable(w, "")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !info.Allowed {
				response.RenderTooManyRequests(w, info.RetryAfter(time.Now()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPKeyFunc keys by client IP, honoring the first X-Forwarded-For hop
func IPKeyFunc(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return "ip:" + strings.TrimSpace(first)
	}
	if xr := r.Header.Get("X-Real-IP"); xr != "" {
		return "ip:" + xr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// UserOrIPKeyFunc keys authenticated requests by user, others by IP
func UserOrIPKeyFunc(r *http.Request) string {
	if user := webcontext.GetCurrentUser(r.Context()); user != "" {
		return "user:" + user
	}
	return IPKeyFunc(r)
}
