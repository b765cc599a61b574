package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// DefaultMaxBodySize bounds JSON request bodies
const DefaultMaxBodySize = 1 << 20

// ErrEmptyBody is returned when a JSON body is required but missing
var ErrEmptyBody = errors.New("request body is empty")

// Parser handles parsing of HTTP request bodies
type Parser struct {
	maxBodySize int64 // Maximum size for request bodies (in bytes)
	strict      bool  // Reject unknown JSON fields
}

// NewParser creates a strict parser with the default size limit
func NewParser() *Parser {
	return &Parser{
		maxBodySize: DefaultMaxBodySize,
		strict:      true,
	}
}

// Lenient returns a copy of p that ignores unknown JSON fields. Used for
// update endpoints where clients send back whole documents.
func (p *Parser) Lenient() *Parser {
	c := *p
	c.strict = false
	return &c
}

// WithMaxSize returns a copy of p with a different body size limit
func (p *Parser) WithMaxSize(maxBytes int64) *Parser {
	c := *p
	c.maxBodySize = maxBytes
	return &c
}

// ParseJSON parses a JSON request body into target
func (p *Parser) ParseJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("unsupported content type: %s", ct)
		}
	}

	// Limit body size to prevent DoS attacks
	r.Body = http.MaxBytesReader(w, r.Body, p.maxBodySize)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	if p.strict {
		decoder.DisallowUnknownFields()
	}

	if err := decoder.Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return ErrEmptyBody
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("invalid JSON at offset %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return fmt.Errorf("invalid value for field %q", typeErr.Field)
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			return fmt.Errorf("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}

	// Check if there's additional data after the JSON object
	if decoder.More() {
		return fmt.Errorf("request body contains multiple JSON objects")
	}

	return nil
}

// QueryInt reads an integer query parameter, falling back to def when it
// is missing and clamping to [min, max]
func QueryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be an integer", name)
	}
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n, nil
}

// QueryBool reads an optional boolean query parameter
func QueryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("query parameter %s must be true or false", name)
	}
	return &b, nil
}
