package router

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ErrBadID is returned by IDParam for a missing or non-UUID segment
var ErrBadID = errors.New("malformed id")

// IDParam reads the UUID path segment name and returns it in canonical
// lower-case form, so ids compare equal to what the store generated.
func IDParam(r *http.Request, name string) (string, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return "", ErrBadID
	}
	return id.String(), nil
}
