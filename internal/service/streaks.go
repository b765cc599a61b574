package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/habit"
	"github.com/habitnation/habitnation/internal/web/cache"
)

// SweepResult counts the streaks SweepStreaks reset
type SweepResult struct {
	Habits int `json:"habits"`
	Users  int `json:"users"`
}

// SweepStreaks zeroes habit streaks that missed their last eligible period
// and activity streaks that missed a day. Candidates are selected with a
// UTC cutoff and then judged against each owner's own calendar day. A reset
// only applies while the row still matches what was judged, so a completion
// committed after the candidate read keeps its streak.
func (s *Service) SweepStreaks(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult
	cutoff := habit.DateOf(now.UTC())
	owners := map[string]*habit.User{}
	touched := map[string]bool{}

	owner := func(id string) (*habit.User, error) {
		if u, ok := owners[id]; ok {
			return u, nil
		}
		u, err := s.store.UserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		owners[id] = u
		return u, nil
	}

	habits, err := s.store.HabitsWithStreaks(ctx, cutoff)
	if err != nil {
		return res, err
	}
	for _, h := range habits {
		u, err := owner(h.UserID)
		if err != nil {
			return res, err
		}
		if !h.StreakBroken(u.Today(now)) {
			continue
		}
		reset, err := s.store.ResetHabitStreak(ctx, h, now)
		if err != nil {
			return res, err
		}
		if !reset {
			continue
		}
		touched[h.UserID] = true
		res.Habits++
	}

	users, err := s.store.UsersWithStaleStreaks(ctx, cutoff)
	if err != nil {
		return res, err
	}
	for _, u := range users {
		if !u.ActivityStreakBroken(u.Today(now)) {
			continue
		}
		reset, err := s.store.ResetUserStreak(ctx, u, now)
		if err != nil {
			return res, err
		}
		if !reset {
			continue
		}
		touched[u.ID] = true
		res.Users++
	}

	for id := range touched {
		s.cache.Invalidate(ctx, cache.StatsKey(id))
	}
	if res.Users > 0 {
		s.cache.InvalidatePrefix(ctx, cache.LeaderboardPrefix)
	}
	if res.Habits > 0 || res.Users > 0 {
		s.logger.Info("streaks reset", zap.Int("habits", res.Habits), zap.Int("users", res.Users))
	}
	return res, nil
}
