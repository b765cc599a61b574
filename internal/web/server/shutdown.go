package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ShutdownHook is called after the HTTP server stopped accepting requests
type ShutdownHook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// GracefulShutdown serves until its context ends, then drains the server
// and runs the registered hooks in reverse registration order
type GracefulShutdown struct {
	server  *Server
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []ShutdownHook
}

// NewGracefulShutdown creates a new graceful shutdown handler
func NewGracefulShutdown(server *Server, timeout time.Duration, logger *zap.Logger) *GracefulShutdown {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GracefulShutdown{server: server, timeout: timeout, logger: logger}
}

// RegisterHook registers a shutdown hook
func (gs *GracefulShutdown) RegisterHook(name string, fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, ShutdownHook{Name: name, Fn: fn})
}

// Run serves until ctx is done or the server fails, then shuts down
func (gs *GracefulShutdown) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- gs.server.Serve() }()

	var serveErr error
	select {
	case <-ctx.Done():
		gs.logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		if serveErr == nil {
			return gs.runHooks()
		}
	}

	if err := gs.Shutdown(); err != nil {
		serveErr = errors.Join(serveErr, err)
	}
	return serveErr
}

// Shutdown drains the HTTP server and runs the hooks
func (gs *GracefulShutdown) Shutdown() error {
	gs.logger.Info("initiating graceful shutdown", zap.Duration("timeout", gs.timeout))
	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	var errs []error
	if err := gs.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := gs.runHooksCtx(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		gs.logger.Info("shutdown complete")
	}
	return errors.Join(errs...)
}

func (gs *GracefulShutdown) runHooks() error {
	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()
	return gs.runHooksCtx(ctx)
}

func (gs *GracefulShutdown) runHooksCtx(ctx context.Context) error {
	gs.mu.Lock()
	hooks := append([]ShutdownHook(nil), gs.hooks...)
	gs.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.Fn(ctx); err != nil {
			gs.logger.Error("shutdown hook failed", zap.String("hook", h.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
		}
	}
	return errors.Join(errs...)
}
