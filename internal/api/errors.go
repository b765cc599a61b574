package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/service"
	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/validation"
	webcontext "github.com/habitnation/habitnation/internal/web/context"
	"github.com/habitnation/habitnation/internal/web/response"
)

// renderError maps service and store errors onto HTTP responses. resource
// names the thing a not-found error refers to.
func (a *API) renderError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	var conflict *service.ConflictError
	if ve, ok := validation.AsValidationErrors(err); ok {
		response.RenderValidationError(w, ve)
		return
	}

	switch {
	case errors.As(err, &conflict):
		response.RenderFieldError(w, http.StatusBadRequest, conflict.Field, conflict.Message)
	case errors.Is(err, store.ErrNotFound):
		response.RenderNotFound(w, resource+" not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		response.RenderUnauthorized(w, "Invalid credentials")
	case errors.Is(err, service.ErrForbidden):
		response.RenderForbidden(w, "Admin access required")
	case errors.Is(err, service.ErrHabitInactive):
		response.RenderConflict(w, "Habit is inactive")
	case errors.Is(err, service.ErrIncorrectPassword):
		response.RenderFieldError(w, http.StatusBadRequest, "currentPassword", "Current password is incorrect")
	default:
		webcontext.Logger(r.Context()).Error("request failed", zap.Error(err))
		response.RenderInternalError(w, err, a.cfg.IsDevelopment())
	}
}

func currentUser(r *http.Request) string {
	return webcontext.GetCurrentUser(r.Context())
}
