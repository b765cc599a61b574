package service

import (
	"errors"

	"github.com/habitnation/habitnation/internal/store"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden is returned when the caller lacks the role an operation needs
	ErrForbidden = errors.New("forbidden")
	// ErrHabitInactive is returned when completing a paused habit
	ErrHabitInactive = errors.New("habit is inactive")
	// ErrIncorrectPassword is returned by ChangePassword when the current password does not match
	ErrIncorrectPassword = errors.New("current password is incorrect")
)

// ConflictError reports that Field collides with another record
type ConflictError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// asConflict rewrites a store conflict into a ConflictError carrying message.
// Other errors pass through unchanged.
func asConflict(err error, message func(field string) string) error {
	var c *store.ConflictError
	if errors.As(err, &c) {
		return &ConflictError{Field: c.Field, Message: message(c.Field), Err: err}
	}
	return err
}
