package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler processes one job
type Handler func(ctx context.Context, job *Job) error

// HandlerRegistry manages job type handlers
type HandlerRegistry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]Handler)}
}

// Register adds a handler for a job type
func (r *HandlerRegistry) Register(jobType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = handler
}

// Get retrieves a handler for a job type
func (r *HandlerRegistry) Get(jobType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[jobType]
	if !ok {
		return nil, fmt.Errorf("no handler registered for job type: %s", jobType)
	}
	return handler, nil
}

// PoolConfig configures a WorkerPool
type PoolConfig struct {
	Queue   string
	Workers int
	// PollInterval is how long an idle worker waits before polling again
	PollInterval time.Duration
	// JobTimeout bounds a single handler run (0 means no limit)
	JobTimeout time.Duration
}

// WorkerPool runs a fixed number of workers against one queue
type WorkerPool struct {
	queue    *Queue
	handlers *HandlerRegistry
	config   PoolConfig
	logger   *zap.Logger
	metrics  *Metrics

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(queue *Queue, config PoolConfig, logger *zap.Logger) *WorkerPool {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.Queue == "" {
		config.Queue = "default"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		queue:    queue,
		handlers: NewHandlerRegistry(),
		config:   config,
		logger:   logger.Named("jobs").With(zap.String("queue", config.Queue)),
		metrics:  NewMetrics(),
	}
}

// RegisterHandler registers a job handler for a specific job type
func (p *WorkerPool) RegisterHandler(jobType string, handler Handler) {
	p.handlers.Register(jobType, handler)
}

// Metrics returns the pool's metrics
func (p *WorkerPool) Metrics() *Metrics {
	return p.metrics
}

// Start launches the workers. They stop when ctx ends or Stop is called.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.logger.Info("starting worker pool", zap.Int("workers", p.config.Workers))
	for i := 0; i < p.config.Workers; i++ {
		id := fmt.Sprintf("worker-%s-%d", p.config.Queue, i)
		p.wg.Add(1)
		go p.run(ctx, id)
	}
}

// Stop cancels the workers and waits for in-flight jobs to return
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// Run starts the pool and blocks until ctx ends
func (p *WorkerPool) Run(ctx context.Context) error {
	p.Start(ctx)
	<-ctx.Done()
	p.Stop()
	return nil
}

func (p *WorkerPool) run(ctx context.Context, workerID string) {
	defer p.wg.Done()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		job, err := p.queue.Dequeue(ctx, workerID, p.config.Queue)
		switch {
		case err == nil:
			p.process(ctx, workerID, job)
			timer.Reset(0)
		case errors.Is(err, ErrNoJobs), ctx.Err() != nil:
			timer.Reset(p.config.PollInterval)
		default:
			p.logger.Warn("dequeue failed", zap.String("worker", workerID), zap.Error(err))
			timer.Reset(p.config.PollInterval)
		}
	}
}

func (p *WorkerPool) process(ctx context.Context, workerID string, job *Job) {
	start := time.Now()
	log := p.logger.With(
		zap.String("worker", workerID),
		zap.String("job_id", job.ID),
		zap.String("job_type", job.Type),
		zap.Int("attempt", job.Attempts),
	)

	// Bookkeeping must outlive a cancelled worker context
	bookkeeping := context.WithoutCancel(ctx)

	handler, err := p.handlers.Get(job.Type)
	if err != nil {
		log.Error("no handler for job")
		if failErr := p.queue.Fail(bookkeeping, job.ID, err.Error()); failErr != nil {
			log.Error("failed to mark job failed", zap.Error(failErr))
		}
		p.metrics.RecordFailure(job.Type, time.Since(start))
		return
	}

	runCtx := ctx
	if p.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.config.JobTimeout)
		defer cancel()
	}

	err = safeRun(runCtx, handler, job)
	duration := time.Since(start)
	if err == nil {
		if err := p.queue.Complete(bookkeeping, job.ID); err != nil {
			log.Error("failed to mark job complete", zap.Error(err))
			return
		}
		log.Debug("job completed", zap.Duration("duration", duration))
		p.metrics.RecordSuccess(job.Type, duration)
		return
	}

	if job.IsRetryable() {
		nextRun, retryErr := p.queue.Retry(bookkeeping, job, err.Error())
		if retryErr == nil {
			log.Warn("job failed, retry scheduled", zap.Error(err), zap.Time("next_run", nextRun))
			p.metrics.RecordRetry(job.Type)
			return
		}
		log.Error("failed to retry job", zap.Error(retryErr))
	}

	if failErr := p.queue.Fail(bookkeeping, job.ID, err.Error()); failErr != nil {
		log.Error("failed to mark job failed", zap.Error(failErr))
	}
	log.Error("job failed permanently", zap.Error(err))
	p.metrics.RecordFailure(job.Type, duration)
}

// safeRun converts a handler panic into an error
func safeRun(ctx context.Context, h Handler, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return h(ctx, job)
}
