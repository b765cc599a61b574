package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Schedule defines a recurring job
type Schedule struct {
	Queue    string
	Type     string
	Payload  interface{}
	Interval time.Duration
	// RunOnStart enqueues the job immediately instead of after one interval
	RunOnStart bool
}

// Scheduler enqueues recurring jobs at fixed intervals. A job that is still
// pending from a previous tick is not enqueued again.
type Scheduler struct {
	queue  *Queue
	logger *zap.Logger

	mu        sync.Mutex
	schedules []Schedule
}

// NewScheduler creates a scheduler on queue
func NewScheduler(queue *Queue, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{queue: queue, logger: logger.Named("scheduler")}
}

// Add registers a recurring job
func (s *Scheduler) Add(schedule Schedule) error {
	if schedule.Type == "" {
		return errors.New("job type is required")
	}
	if schedule.Interval <= 0 {
		return errors.New("interval must be greater than 0")
	}
	if schedule.Queue == "" {
		schedule.Queue = "default"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, schedule)
	return nil
}

// Run ticks every schedule until ctx ends
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	schedules := append([]Schedule(nil), s.schedules...)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, sch := range schedules {
		wg.Add(1)
		go func(sch Schedule) {
			defer wg.Done()
			s.loop(ctx, sch)
		}(sch)
	}
	wg.Wait()
	return nil
}

func (s *Scheduler) loop(ctx context.Context, sch Schedule) {
	ticker := time.NewTicker(sch.Interval)
	defer ticker.Stop()

	if sch.RunOnStart {
		s.fire(ctx, sch)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, sch)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, sch Schedule) {
	log := s.logger.With(zap.String("job_type", sch.Type))

	pending, err := s.queue.PendingOfType(ctx, sch.Queue, sch.Type)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("failed to check pending jobs", zap.Error(err))
		}
		return
	}
	if pending {
		log.Debug("previous run still pending")
		return
	}

	job, err := NewJob(sch.Queue, sch.Type, sch.Payload)
	if err != nil {
		log.Error("failed to build scheduled job", zap.Error(err))
		return
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		if ctx.Err() == nil {
			log.Error("failed to enqueue scheduled job", zap.Error(err))
		}
		return
	}
	log.Debug("enqueued scheduled job", zap.String("job_id", job.ID))
}
