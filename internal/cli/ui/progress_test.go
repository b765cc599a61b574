package ui

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestWithSpinnerReportsOutcome(t *testing.T) {
	var buf bytes.Buffer
	err := WithSpinner(&buf, "Applying migrations", true, func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, "✓ Applying migrations\n", buf.String())

	buf.Reset()
	boom := errors.New("boom")
	err = WithSpinner(&buf, "Hashing password", true, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "❌ Hashing password failed\n", buf.String())
}

func TestSpinnerAnimatesAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	var buf syncBuffer
	s := NewSpinner(&buf, "working", false)
	s.interval = time.Millisecond
	s.Start()
	s.Start()
	assert.Eventually(t, func() bool { return bytes.Contains(buf.Bytes(), []byte("working")) }, time.Second, time.Millisecond)
	s.Stop()
	s.Stop()
	assert.Contains(t, buf.String(), "\r\033[K")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *syncBuffer) String() string {
	return string(b.Bytes())
}
