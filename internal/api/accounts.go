package api

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/habit"
	"github.com/habitnation/habitnation/internal/service"
	webcontext "github.com/habitnation/habitnation/internal/web/context"
	"github.com/habitnation/habitnation/internal/web/response"
	"github.com/habitnation/habitnation/internal/web/stream"
)

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := a.strict.ParseJSON(w, r, &in); err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}
	sess, err := a.svc.Register(r.Context(), in)
	if err != nil {
		a.renderError(w, r, err, "User")
		return
	}
	response.Created(w, sess)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := a.strict.ParseJSON(w, r, &in); err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}
	sess, err := a.svc.Login(r.Context(), in)
	if err != nil {
		a.renderError(w, r, err, "User")
		return
	}
	response.OK(w, sess)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	u, err := a.svc.Me(r.Context(), currentUser(r))
	if err != nil {
		a.renderError(w, r, err, "User")
		return
	}
	response.OK(w, u)
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileInput
	if err := a.lenient.ParseJSON(w, r, &in); err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}
	u, err := a.svc.UpdateProfile(r.Context(), currentUser(r), in)
	if err != nil {
		a.renderError(w, r, err, "User")
		return
	}
	response.OK(w, u)
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request) {
	var in service.PasswordInput
	if err := a.strict.ParseJSON(w, r, &in); err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}
	if err := a.svc.ChangePassword(r.Context(), currentUser(r), in); err != nil {
		a.renderError(w, r, err, "User")
		return
	}
	response.Message(w, "Password updated successfully")
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	st, err := a.svc.Stats(r.Context(), currentUser(r))
	if err != nil {
		a.renderError(w, r, err, "User")
		return
	}
	response.OK(w, st)
}

// exportCompletions streams the whole completion history as a JSON array
func (a *API) exportCompletions(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	if _, err := a.svc.Me(r.Context(), userID); err != nil {
		a.renderError(w, r, err, "User")
		return
	}

	filename := fmt.Sprintf("habitnation-completions-%s.json", time.Now().UTC().Format("2006-01-02"))
	arr, err := stream.NewJSONArray(w, http.StatusOK, filename)
	if err != nil {
		a.renderError(w, r, err, "User")
		return
	}
	err = a.svc.ExportCompletions(r.Context(), userID, func(c *habit.Completion) error {
		return arr.Item(c)
	})
	if err != nil {
		// Headers are gone; the client sees a truncated array
		webcontext.Logger(r.Context()).Warn("completion export aborted", zap.Int("written", arr.Count()), zap.Error(err))
		return
	}
	if err := arr.Close(); err != nil {
		webcontext.Logger(r.Context()).Warn("completion export not terminated", zap.Error(err))
	}
}
