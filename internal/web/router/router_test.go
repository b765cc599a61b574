package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitnation/habitnation/internal/web/middleware"
)

func TestRouter(t *testing.T) {
	r := New()
	var header string
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Outer", "1")
			next.ServeHTTP(w, req)
		})
	})

	tag := func(v string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				header = v
				next.ServeHTTP(w, req)
			})
		}
	}

	r.Group("/api", func(api *Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		api.Group("/habits", func(h *Router) {
			authed := h.Authenticated(tag("auth"))
			authed.Get("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
			authed.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
				id, err := IDParam(req, "id")
				if err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				_, _ = w.Write([]byte(id))
			})
		})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Outer"))
	assert.Empty(t, header)

	id := uuid.NewString()
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/habits/"+id, nil))
	assert.Equal(t, id, rec.Body.String())
	assert.Equal(t, "auth", header)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/habits/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	routes := r.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, RouteInfo{Method: "GET", Pattern: "/api/habits", Auth: true}, routes[0])
	assert.Equal(t, RouteInfo{Method: "GET", Pattern: "/api/habits/{id}", Auth: true}, routes[1])
	assert.False(t, routes[2].Auth)
}

func TestRouterFallbacks(t *testing.T) {
	r := New()
	r.Get("/only-get", func(w http.ResponseWriter, _ *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Route not found", body["message"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/only-get", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
