package api

import (
	"net/http"
	"time"

	"github.com/habitnation/habitnation/internal/web/middleware"
	"github.com/habitnation/habitnation/internal/web/response"
)

// serveWebsocket authenticates with ?token= because browsers cannot set headers
// on the upgrade request. A bearer header is accepted too.
func (a *API) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.BearerToken(r)
	}
	if token == "" {
		response.RenderUnauthorized(w, "No token provided")
		return
	}
	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		response.RenderUnauthorized(w, "Invalid token")
		return
	}
	a.upgrader.Serve(w, r, claims.UserID)
}

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Clients   int       `json:"websocketClients"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	out := healthResponse{Status: "ok", Database: "ok", Timestamp: time.Now().UTC()}
	if a.hub != nil {
		out.Clients = a.hub.ClientCount()
	}
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			out.Status, out.Database = "unavailable", err.Error()
			if !a.cfg.IsDevelopment() {
				out.Database = "unreachable"
			}
			response.JSON(w, http.StatusServiceUnavailable, out)
			return
		}
	}
	response.OK(w, out)
}
