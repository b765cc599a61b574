// Package context carries per-request values set by the middleware chain
package context

import (
	"context"
	"slices"

	"go.uber.org/zap"
)

type key int

const (
	requestIDKey key = iota
	currentUserKey
	userRolesKey
	loggerKey
)

func value[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// GetRequestID returns the X-Request-ID of the request, or ""
func GetRequestID(ctx context.Context) string {
	id, _ := value[string](ctx, requestIDKey)
	return id
}

func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetCurrentUser returns the authenticated user id, or "" on public routes
func GetCurrentUser(ctx context.Context) string {
	id, _ := value[string](ctx, currentUserKey)
	return id
}

func SetCurrentUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, currentUserKey, userID)
}

// SetUserRoles records the roles claimed by the bearer token
func SetUserRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, userRolesKey, roles)
}

// HasRole reports whether the authenticated user carries role
func HasRole(ctx context.Context, role string) bool {
	roles, _ := value[[]string](ctx, userRolesKey)
	return slices.Contains(roles, role)
}

// Logger returns the request-scoped logger, or a no-op logger outside a request
func Logger(ctx context.Context) *zap.Logger {
	if l, ok := value[*zap.Logger](ctx, loggerKey); ok {
		return l
	}
	return zap.NewNop()
}

func SetLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}
