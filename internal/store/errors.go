package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/habitnation/habitnation/internal/store/dialect"
)

// ErrNotFound is returned when a row does not exist or is not visible to the caller
var ErrNotFound = errors.New("not found")

// ConflictError reports a unique constraint violation on Field
type ConflictError struct {
	Field string
	Err   error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// conflictFields maps fragments of constraint names (postgres) or
// "table.column" descriptions (sqlite) to the field clients see
var conflictFields = []struct {
	fragment string
	field    string
}{
	{"users_email", "email"},
	{"users.email", "email"},
	{"users_username", "username"},
	{"users.username", "username"},
	{"achievements_name", "name"},
	{"achievements.name", "name"},
	{"habit_completions", "date"},
	{"user_achievements", "achievement"},
}

// translate converts driver errors into store errors
func translate(err error) error {
	if err == nil {
		return nil
	}
	if detail, ok := dialect.UniqueViolation(err); ok {
		for _, c := range conflictFields {
			if strings.Contains(detail, c.fragment) {
				return &ConflictError{Field: c.field, Err: err}
			}
		}
		return &ConflictError{Field: detail, Err: err}
	}
	return err
}
