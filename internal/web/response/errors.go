package response

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/habitnation/habitnation/internal/validation"
)

// ErrorResponse is the body of every error. Error and Message carry the same
// text; older clients read one and newer clients the other.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	// Fields lists every problem of a failed validation by field
	Fields map[string][]string `json:"fields,omitempty"`
}

var statusCodes = map[int]string{
	http.StatusBadRequest:            "bad_request",
	http.StatusUnauthorized:          "unauthorized",
	http.StatusForbidden:             "forbidden",
	http.StatusNotFound:              "not_found",
	http.StatusMethodNotAllowed:      "method_not_allowed",
	http.StatusRequestTimeout:        "request_timeout",
	http.StatusConflict:              "conflict",
	http.StatusRequestEntityTooLarge: "request_too_large",
	http.StatusUnsupportedMediaType:  "unsupported_media_type",
	http.StatusTooManyRequests:       "too_many_requests",
	http.StatusInternalServerError:   "internal_error",
	http.StatusServiceUnavailable:    "service_unavailable",
}

func codeFor(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	return "error"
}

func renderMessage(w http.ResponseWriter, status int, message string) {
	JSON(w, status, &ErrorResponse{Error: message, Message: message, Code: codeFor(status)})
}

// RenderError renders err with status. Validation errors always render as
// 400 with their field list.
func RenderError(w http.ResponseWriter, status int, err error) {
	if ve, ok := validation.AsValidationErrors(err); ok {
		RenderValidationError(w, ve)
		return
	}
	renderMessage(w, status, err.Error())
}

// RenderFieldError renders an error tied to one request field
func RenderFieldError(w http.ResponseWriter, status int, field, message string) {
	JSON(w, status, &ErrorResponse{Error: message, Message: message, Code: codeFor(status), Field: field})
}

// RenderValidationError renders ve as 400. The top-level message is the first
// problem found.
func RenderValidationError(w http.ResponseWriter, ve *validation.ValidationErrors) {
	msg := ve.First()
	if msg == "" {
		msg = "The request contains invalid data"
	}
	JSON(w, http.StatusBadRequest, &ErrorResponse{
		Error:   msg,
		Message: msg,
		Code:    "validation_error",
		Fields:  ve.Fields,
	})
}

// orDefault returns message, or fallback when message is empty
func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

// RenderBadRequest renders 400
func RenderBadRequest(w http.ResponseWriter, message string) {
	renderMessage(w, http.StatusBadRequest, orDefault(message, "Bad request"))
}

// RenderUnauthorized renders 401
func RenderUnauthorized(w http.ResponseWriter, message string) {
	renderMessage(w, http.StatusUnauthorized, orDefault(message, "Authentication required"))
}

// RenderForbidden renders 403
func RenderForbidden(w http.ResponseWriter, message string) {
	renderMessage(w, http.StatusForbidden, orDefault(message, "Access denied"))
}

// RenderNotFound renders 404
func RenderNotFound(w http.ResponseWriter, message string) {
	renderMessage(w, http.StatusNotFound, orDefault(message, "Resource not found"))
}

// RenderMethodNotAllowed renders 405 and lists allowed in the Allow header
func RenderMethodNotAllowed(w http.ResponseWriter, allowed []string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	renderMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// RenderConflict renders 409
func RenderConflict(w http.ResponseWriter, message string) {
	renderMessage(w, http.StatusConflict, orDefault(message, "Conflict"))
}

// RenderTooManyRequests renders 429 with Retry-After in seconds
func RenderTooManyRequests(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	renderMessage(w, http.StatusTooManyRequests, "Too many requests, please try again later")
}

// RenderInternalError renders 500. The error text is only exposed when
// expose is set (development).
func RenderInternalError(w http.ResponseWriter, err error, expose bool) {
	message := "Internal server error"
	if err != nil && expose {
		message = err.Error()
	}
	renderMessage(w, http.StatusInternalServerError, message)
}

// RenderServiceUnavailable renders 503
func RenderServiceUnavailable(w http.ResponseWriter, message string) {
	renderMessage(w, http.StatusServiceUnavailable, orDefault(message, "Service temporarily unavailable"))
}
