package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/habit"
	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/web/cache"
	"github.com/habitnation/habitnation/internal/web/jobs"
	"github.com/habitnation/habitnation/internal/web/websocket"
)

// AchievementCheck is the result of CheckAchievements
type AchievementCheck struct {
	NewAchievements []habit.Achievement `json:"newAchievements"`
	User            Progress            `json:"user"`
}

// ListAchievements returns the achievement catalog
func (s *Service) ListAchievements(ctx context.Context) ([]habit.Achievement, error) {
	return cache.Fetch(ctx, s.cache, cache.CatalogKey, s.ttl.CatalogTTL, func(ctx context.Context) ([]habit.Achievement, error) {
		list, err := s.store.ListAchievements(ctx)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []habit.Achievement{}
		}
		return list, nil
	})
}

// UserAchievements returns the achievements the user has earned
func (s *Service) UserAchievements(ctx context.Context, userID string) ([]habit.Achievement, error) {
	if _, err := s.store.UserByID(ctx, userID); err != nil {
		return nil, err
	}
	earned, err := s.store.EarnedAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	if earned == nil {
		earned = []habit.Achievement{}
	}
	return earned, nil
}

// CheckAchievements awards every achievement the user now qualifies for,
// crediting each reward
func (s *Service) CheckAchievements(ctx context.Context, userID string) (*AchievementCheck, error) {
	before, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	check, err := s.checkAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(check.NewAchievements) > 0 {
		s.invalidateProgress(ctx, userID)
		if check.User.Level > before.Level {
			s.publish(userID, websocket.EventLevelUp, check.User)
		}
		s.publishAchievements(userID, check.NewAchievements)
	}
	return check, nil
}

// checkAchievements evaluates the catalog in one transaction. Rewards can
// raise the level, which can satisfy further achievements, so evaluation
// repeats until a pass awards nothing.
func (s *Service) checkAchievements(ctx context.Context, userID string) (*AchievementCheck, error) {
	check := &AchievementCheck{NewAchievements: []habit.Achievement{}}

	err := s.store.InTx(ctx, func(tx *store.Store) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		catalog, err := tx.ListAchievements(ctx)
		if err != nil {
			return err
		}
		earned, err := tx.EarnedAchievements(ctx, userID)
		if err != nil {
			return err
		}
		stats, err := statsFor(ctx, tx, u, len(earned))
		if err != nil {
			return err
		}

		have := make(map[string]bool, len(earned))
		for _, a := range earned {
			have[a.ID] = true
		}

		now := s.now()
		for awarded := true; awarded; {
			awarded = false
			for i := range catalog {
				a := catalog[i]
				if have[a.ID] {
					continue
				}
				ok, err := a.Earned(stats)
				if err != nil {
					s.logger.Warn("achievement rule failed", zap.String("achievement", a.Name), zap.Error(err))
					continue
				}
				if !ok {
					continue
				}
				fresh, err := tx.AwardAchievement(ctx, userID, a.ID, now)
				if err != nil {
					return err
				}
				have[a.ID] = true
				if !fresh {
					continue
				}
				awarded = true
				u.AwardXP(a.XPReward)
				stats.XP, stats.Level = u.XP, u.Level
				stats.TotalAchievements++
				at := now
				a.EarnedAt = &at
				check.NewAchievements = append(check.NewAchievements, a)
			}
		}

		if len(check.NewAchievements) > 0 {
			u.UpdatedAt = now
			if err := tx.UpdateProgress(ctx, u); err != nil {
				return err
			}
		}
		check.User = progressOf(u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return check, nil
}

func statsFor(ctx context.Context, st *store.Store, u *habit.User, earned int) (habit.UserStats, error) {
	counts, err := st.CountHabits(ctx, u.ID)
	if err != nil {
		return habit.UserStats{}, err
	}
	completions, err := st.CountCompletions(ctx, u.ID)
	if err != nil {
		return habit.UserStats{}, err
	}
	return habit.UserStats{
		XP:                u.XP,
		Level:             u.Level,
		Streak:            u.Streak,
		LongestStreak:     u.LongestStreak,
		TotalHabits:       counts.Total,
		ActiveHabits:      counts.Active,
		TotalCompletions:  completions,
		TotalAchievements: earned,
	}, nil
}

// CreateAchievement adds an achievement to the catalog. Only administrators
// may do this. Existing users are rechecked in the background when a queue
// is configured.
func (s *Service) CreateAchievement(ctx context.Context, userID string, in habit.AchievementInput) (*habit.Achievement, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsAdmin {
		return nil, ErrForbidden
	}

	a, err := habit.NewAchievement(in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAchievement(ctx, a); err != nil {
		return nil, asConflict(err, func(string) string { return "Achievement already exists" })
	}
	s.cache.Invalidate(ctx, cache.CatalogKey)
	s.logger.Info("achievement created", zap.String("achievement", a.Name), zap.String("category", string(a.Category)))

	if s.queue != nil {
		job, err := jobs.NewJob(JobQueue, JobRecheckAchievements, recheckPayload{AchievementID: a.ID})
		if err == nil {
			err = s.queue.Enqueue(ctx, job)
		}
		if err != nil {
			s.logger.Warn("could not enqueue achievement recheck", zap.Error(err))
		}
	}
	return a, nil
}
