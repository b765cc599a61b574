package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/web/jobs"
)

const (
	// JobQueue is the queue background work is enqueued on
	JobQueue = "default"
	// JobSweepStreaks resets lapsed streaks
	JobSweepStreaks = "streaks.sweep"
	// JobRecheckAchievements evaluates every user against the catalog
	JobRecheckAchievements = "achievements.recheck"
)

type recheckPayload struct {
	AchievementID string `json:"achievementId,omitempty"`
}

// RegisterJobs installs the service's job handlers on pool
func (s *Service) RegisterJobs(pool *jobs.WorkerPool) {
	pool.RegisterHandler(JobSweepStreaks, s.sweepJob)
	pool.RegisterHandler(JobRecheckAchievements, s.recheckJob)
}

// Schedules returns the recurring jobs the service relies on
func (s *Service) Schedules(sweepInterval time.Duration) []jobs.Schedule {
	return []jobs.Schedule{{
		Queue:      JobQueue,
		Type:       JobSweepStreaks,
		Interval:   sweepInterval,
		RunOnStart: true,
	}}
}

func (s *Service) sweepJob(ctx context.Context, job *jobs.Job) error {
	_, err := s.SweepStreaks(ctx, s.now())
	return err
}

func (s *Service) recheckJob(ctx context.Context, job *jobs.Job) error {
	var payload recheckPayload
	if err := job.Decode(&payload); err != nil {
		return err
	}
	ids, err := s.store.UserIDs(ctx)
	if err != nil {
		return err
	}

	awarded := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		check, err := s.CheckAchievements(ctx, id)
		if err != nil {
			return err
		}
		awarded += len(check.NewAchievements)
	}
	s.logger.Info("achievements rechecked",
		zap.String("achievement_id", payload.AchievementID),
		zap.Int("users", len(ids)),
		zap.Int("awarded", awarded))
	return nil
}
