package api

import (
	"errors"
	"net/http"

	"github.com/habitnation/habitnation/internal/habit"
	"github.com/habitnation/habitnation/internal/service"
	"github.com/habitnation/habitnation/internal/web/request"
	"github.com/habitnation/habitnation/internal/web/response"
	"github.com/habitnation/habitnation/internal/web/router"
)

type completeRequest struct {
	Note string `json:"note"`
}

func (a *API) listHabits(w http.ResponseWriter, r *http.Request) {
	var f service.HabitFilter
	if freq := r.URL.Query().Get("frequency"); freq != "" {
		switch habit.Frequency(freq) {
		case habit.Daily, habit.Weekly, habit.Monthly:
			f.Frequency = habit.Frequency(freq)
		default:
			response.RenderBadRequest(w, "frequency must be one of: daily, weekly, monthly")
			return
		}
	}
	active, err := request.QueryBool(r, "active")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}
	f.Active = active
	today, err := request.QueryBool(r, "scheduledToday")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}
	f.ScheduledToday = today != nil && *today

	habits, err := a.svc.ListHabits(r.Context(), currentUser(r), f)
	if err != nil {
		a.renderError(w, r, err, "User")
		return
	}
	response.OK(w, habits)
}

func (a *API) createHabit(w http.ResponseWriter, r *http.Request) {
	var in habit.Input
	if err := a.strict.ParseJSON(w, r, &in); err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}
	h, err := a.svc.CreateHabit(r.Context(), currentUser(r), in)
	if err != nil {
		a.renderError(w, r, err, "User")
		return
	}
	response.Created(w, h)
}

// habitID reads the {id} path parameter, answering 404 for malformed ids
func habitID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := router.IDParam(r, "id")
	if err != nil {
		response.RenderNotFound(w, "Habit not found")
		return "", false
	}
	return id, true
}

func (a *API) getHabit(w http.ResponseWriter, r *http.Request) {
	id, ok := habitID(w, r)
	if !ok {
		return
	}
	h, err := a.svc.GetHabit(r.Context(), currentUser(r), id)
	if err != nil {
		a.renderError(w, r, err, "Habit")
		return
	}
	response.OK(w, h)
}

func (a *API) updateHabit(w http.ResponseWriter, r *http.Request) {
	id, ok := habitID(w, r)
	if !ok {
		return
	}
	var in habit.Input
	if err := a.lenient.ParseJSON(w, r, &in); err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}
	h, err := a.svc.UpdateHabit(r.Context(), currentUser(r), id, in)
	if err != nil {
		a.renderError(w, r, err, "Habit")
		return
	}
	response.OK(w, h)
}

func (a *API) deleteHabit(w http.ResponseWriter, r *http.Request) {
	id, ok := habitID(w, r)
	if !ok {
		return
	}
	if err := a.svc.DeleteHabit(r.Context(), currentUser(r), id); err != nil {
		a.renderError(w, r, err, "Habit")
		return
	}
	response.Message(w, "Habit deleted successfully")
}

func (a *API) completeHabit(w http.ResponseWriter, r *http.Request) {
	id, ok := habitID(w, r)
	if !ok {
		return
	}
	var in completeRequest
	if err := a.strict.ParseJSON(w, r, &in); err != nil && !errors.Is(err, request.ErrEmptyBody) {
		response.RenderBadRequest(w, err.Error())
		return
	}
	out, err := a.svc.CompleteHabit(r.Context(), currentUser(r), id, in.Note)
	if err != nil {
		a.renderError(w, r, err, "Habit")
		return
	}
	response.OK(w, out)
}

func (a *API) listCompletions(w http.ResponseWriter, r *http.Request) {
	id, ok := habitID(w, r)
	if !ok {
		return
	}
	limit, err := request.QueryInt(r, "limit", 30, 1, 366)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}
	completions, err := a.svc.ListCompletions(r.Context(), currentUser(r), id, limit)
	if err != nil {
		a.renderError(w, r, err, "Habit")
		return
	}
	response.OK(w, completions)
}
