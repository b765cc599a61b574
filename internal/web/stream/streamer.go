// Package stream writes responses incrementally so large collections never
// sit in memory in full.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotSupported is returned when the ResponseWriter cannot flush
var ErrNotSupported = errors.New("streaming not supported")

// Streamer writes and flushes to an http.ResponseWriter
type Streamer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// New creates a streamer. The writer must support flushing, directly or
// through an Unwrap chain.
func New(w http.ResponseWriter) (*Streamer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNotSupported
	}
	return &Streamer{w: w, flusher: flusher}, nil
}

// Write writes bytes and flushes
func (s *Streamer) Write(data []byte) (int, error) {
	n, err := s.w.Write(data)
	if err != nil {
		return n, err
	}
	s.flusher.Flush()
	return n, nil
}

// Flush flushes buffered data to the client
func (s *Streamer) Flush() {
	s.flusher.Flush()
}

// ArrayWriter streams a JSON array one element at a time. Elements are
// flushed every FlushEvery items.
type ArrayWriter struct {
	s          *Streamer
	enc        *json.Encoder
	count      int
	FlushEvery int
	closed     bool
}

// NewJSONArray starts a JSON array response with the given status. An
// attachment filename sets Content-Disposition.
func NewJSONArray(w http.ResponseWriter, status int, filename string) (*ArrayWriter, error) {
	s, err := New(w)
	if err != nil {
		return nil, err
	}
	w.Header().Set("Content-Type", "application/json")
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(status)
	if _, err := w.Write([]byte("[")); err != nil {
		return nil, err
	}
	return &ArrayWriter{s: s, enc: json.NewEncoder(w), FlushEvery: 100}, nil
}

// Item appends v to the array
func (a *ArrayWriter) Item(v interface{}) error {
	if a.closed {
		return errors.New("array already closed")
	}
	if a.count > 0 {
		if _, err := a.s.w.Write([]byte(",")); err != nil {
			return err
		}
	}
	if err := a.enc.Encode(v); err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	a.count++
	if a.FlushEvery > 0 && a.count%a.FlushEvery == 0 {
		a.s.Flush()
	}
	return nil
}

// Count returns how many items have been written
func (a *ArrayWriter) Count() int {
	return a.count
}

// Close terminates the array and flushes
func (a *ArrayWriter) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	_, err := a.s.Write([]byte("]"))
	return err
}
