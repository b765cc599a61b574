package validation

import (
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"strings"
)

// ValidationErrors collects messages per request field. The zero value is
// usable; NewValidationErrors exists for symmetry with call sites that
// want a pointer up front.
type ValidationErrors struct {
	Fields map[string][]string `json:"fields"`
	order  []string
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Fields: map[string][]string{}}
}

// Single is shorthand for a ValidationErrors with one message
func Single(field, message string) *ValidationErrors {
	ve := NewValidationErrors()
	ve.Add(field, message)
	return ve
}

// Add appends message to field
func (ve *ValidationErrors) Add(field, message string) {
	if ve.Fields == nil {
		ve.Fields = map[string][]string{}
	}
	if _, seen := ve.Fields[field]; !seen {
		ve.order = append(ve.order, field)
	}
	ve.Fields[field] = append(ve.Fields[field], message)
}

func (ve *ValidationErrors) HasErrors() bool { return len(ve.Fields) > 0 }

// Count is the number of messages over all fields
func (ve *ValidationErrors) Count() int {
	n := 0
	for _, msgs := range ve.Fields {
		n += len(msgs)
	}
	return n
}

// fieldOrder is insertion order, or sorted names for a decoded value
func (ve *ValidationErrors) fieldOrder() []string {
	if len(ve.order) == len(ve.Fields) {
		return ve.order
	}
	return slices.Sorted(maps.Keys(ve.Fields))
}

// First is the earliest message added. API responses use it as the
// human-readable message next to the per-field map.
func (ve *ValidationErrors) First() string {
	for _, field := range ve.fieldOrder() {
		if msgs := ve.Fields[field]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	return ""
}

// OrNil lets a validation pass end with `return errs.OrNil()`
func (ve *ValidationErrors) OrNil() error {
	if ve == nil || !ve.HasErrors() {
		return nil
	}
	return ve
}

// Error lists every message with fields in name order
func (ve *ValidationErrors) Error() string {
	var lines []string
	for _, field := range slices.Sorted(maps.Keys(ve.Fields)) {
		for _, msg := range ve.Fields[field] {
			lines = append(lines, field+": "+msg)
		}
	}
	switch len(lines) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + lines[0]
	}
	return "validation failed:\n  - " + strings.Join(lines, "\n  - ")
}

func (ve *ValidationErrors) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"error":  "validation_failed",
		"fields": ve.Fields,
	})
}

// AsValidationErrors unwraps err into *ValidationErrors
func AsValidationErrors(err error) (*ValidationErrors, bool) {
	var ve *ValidationErrors
	ok := errors.As(err, &ve)
	return ve, ok
}
