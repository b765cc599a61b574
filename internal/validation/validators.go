package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// emailPattern is deliberately loose: something@something.tld with no whitespace
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsEmail reports whether s looks like an email address
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Required records an error when value is blank after trimming
func (ve *ValidationErrors) Required(field, value, message string) bool {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, message)
		return false
	}
	return true
}

// MaxLength records an error when value exceeds max characters
func (ve *ValidationErrors) MaxLength(field, value string, max int) bool {
	if utf8.RuneCountInString(value) > max {
		ve.Add(field, fmt.Sprintf("must be at most %d characters", max))
		return false
	}
	return true
}

// Email records an error when value is not an email address
func (ve *ValidationErrors) Email(field, value string) bool {
	if !IsEmail(value) {
		ve.Add(field, "Invalid email format")
		return false
	}
	return true
}

// Range records an error when value falls outside [min, max]
func (ve *ValidationErrors) Range(field string, value, min, max int) bool {
	if value < min || value > max {
		ve.Add(field, fmt.Sprintf("must be between %d and %d", min, max))
		return false
	}
	return true
}

// OneOf records an error when value is not one of allowed
func (ve *ValidationErrors) OneOf(field, value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	ve.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return false
}
