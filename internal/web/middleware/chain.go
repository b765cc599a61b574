// Package middleware holds the HTTP middleware stack of the API
package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares so the first one is outermost
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Apply wraps h with the given middlewares
func Apply(h http.Handler, middlewares ...Middleware) http.Handler {
	return Chain(middlewares...)(h)
}
