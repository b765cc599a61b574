package api

import (
	"encoding/json"
	"net/http"

	"github.com/habitnation/habitnation/internal/habit"
	"github.com/habitnation/habitnation/internal/web/cache"
	"github.com/habitnation/habitnation/internal/web/request"
	"github.com/habitnation/habitnation/internal/web/response"
)

// listAchievements serves the catalog with an ETag so clients can poll it cheaply
func (a *API) listAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.ListAchievements(r.Context())
	if err != nil {
		a.renderError(w, r, err, "Achievement")
		return
	}
	body, err := json.Marshal(list)
	if err != nil {
		a.renderError(w, r, err, "Achievement")
		return
	}

	etag := cache.ETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if cache.NotModified(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (a *API) userAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.UserAchievements(r.Context(), currentUser(r))
	if err != nil {
		a.renderError(w, r, err, "User")
		return
	}
	response.OK(w, list)
}

func (a *API) checkAchievements(w http.ResponseWriter, r *http.Request) {
	check, err := a.svc.CheckAchievements(r.Context(), currentUser(r))
	if err != nil {
		a.renderError(w, r, err, "User")
		return
	}
	response.OK(w, check)
}

func (a *API) createAchievement(w http.ResponseWriter, r *http.Request) {
	var in habit.AchievementInput
	if err := a.strict.ParseJSON(w, r, &in); err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}
	ach, err := a.svc.CreateAchievement(r.Context(), currentUser(r), in)
	if err != nil {
		a.renderError(w, r, err, "User")
		return
	}
	response.Created(w, ach)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := request.QueryInt(r, "limit", 10, 1, 100)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}
	entries, err := a.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		a.renderError(w, r, err, "Leaderboard")
		return
	}
	response.OK(w, entries)
}
