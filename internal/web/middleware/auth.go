package middleware

import (
	"net/http"
	"strings"

	"github.com/habitnation/habitnation/internal/web/auth"
	webcontext "github.com/habitnation/habitnation/internal/web/context"
	"github.com/habitnation/habitnation/internal/web/response"
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Auth requires a valid bearer token and stores the user and roles in the
// request context
func Auth(validator TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				response.RenderUnauthorized(w, "No token provided")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				response.RenderUnauthorized(w, "Invalid token")
				return
			}

			ctx := webcontext.SetCurrentUser(r.Context(), claims.UserID)
			ctx = webcontext.SetUserRoles(ctx, claims.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated users without role
func RequireRole(role string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if webcontext.GetCurrentUser(r.Context()) == "" {
				response.RenderUnauthorized(w, "")
				return
			}
			if !webcontext.HasRole(r.Context(), role) {
				response.RenderForbidden(w, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
