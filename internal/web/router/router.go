// Package router wraps chi with JSON fallbacks and route introspection
package router

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/habitnation/habitnation/internal/web/middleware"
	"github.com/habitnation/habitnation/internal/web/response"
)

// RouteInfo provides metadata about a route for introspection
type RouteInfo struct {
	Method  string
	Pattern string
	// Auth is true when the route sits behind the auth middleware
	Auth bool
}

// Router manages HTTP routing using chi
type Router struct {
	mux    chi.Router
	prefix string
	auth   bool
	routes *[]RouteInfo
}

// New creates a Router whose 404 and 405 responses are JSON
func New() *Router {
	mux := chi.NewRouter()
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RenderNotFound(w, "Route not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.RenderMethodNotAllowed(w, nil)
	})
	return &Router{mux: mux, routes: &[]RouteInfo{}}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use appends middlewares to the stack. It must be called before routes
// are registered on this router.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.mux.Use(m)
	}
}

// Group mounts a sub-router under prefix
func (r *Router) Group(prefix string, fn func(*Router)) {
	r.mux.Route(prefix, func(sub chi.Router) {
		fn(&Router{mux: sub, prefix: r.prefix + prefix, auth: r.auth, routes: r.routes})
	})
}

// With returns a router whose routes get the extra middlewares
func (r *Router) With(middlewares ...middleware.Middleware) *Router {
	chiMW := make([]func(http.Handler) http.Handler, len(middlewares))
	for i, m := range middlewares {
		chiMW[i] = m
	}
	return &Router{mux: r.mux.With(chiMW...), prefix: r.prefix, auth: r.auth, routes: r.routes}
}

// Authenticated is With that also marks the routes as requiring auth
func (r *Router) Authenticated(middlewares ...middleware.Middleware) *Router {
	sub := r.With(middlewares...)
	sub.auth = true
	return sub
}

// Get registers a GET route
func (r *Router) Get(pattern string, h http.HandlerFunc) { r.handle(http.MethodGet, pattern, h) }

// Post registers a POST route
func (r *Router) Post(pattern string, h http.HandlerFunc) { r.handle(http.MethodPost, pattern, h) }

// Put registers a PUT route
func (r *Router) Put(pattern string, h http.HandlerFunc) { r.handle(http.MethodPut, pattern, h) }

// Patch registers a PATCH route
func (r *Router) Patch(pattern string, h http.HandlerFunc) { r.handle(http.MethodPatch, pattern, h) }

// Delete registers a DELETE route
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.handle(http.MethodDelete, pattern, h) }

func (r *Router) handle(method, pattern string, h http.HandlerFunc) {
	r.mux.Method(method, pattern, h)
	full := r.prefix + pattern
	if full != "/" {
		full = strings.TrimSuffix(full, "/")
	}
	*r.routes = append(*r.routes, RouteInfo{Method: method, Pattern: full, Auth: r.auth})
}

// Mount attaches a handler for every method under pattern
func (r *Router) Mount(pattern string, h http.Handler) {
	r.mux.Mount(pattern, h)
	*r.routes = append(*r.routes, RouteInfo{Method: "*", Pattern: r.prefix + pattern + "/*", Auth: r.auth})
}

// Routes returns the registered routes sorted by pattern then method
func (r *Router) Routes() []RouteInfo {
	out := append([]RouteInfo(nil), *r.routes...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}
