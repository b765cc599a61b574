package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/habit"
	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/web/cache"
	"github.com/habitnation/habitnation/internal/web/websocket"
)

// Progress is the slice of the user returned after progress changes
type Progress struct {
	XP             int `json:"xp"`
	Level          int `json:"level"`
	Streak         int `json:"streak"`
	XPForNextLevel int `json:"xpForNextLevel"`
}

func progressOf(u *habit.User) Progress {
	return Progress{
		XP:             u.XP,
		Level:          u.Level,
		Streak:         u.Streak,
		XPForNextLevel: habit.XPForNextLevel(u.Level),
	}
}

// CompletionOutcome is the result of marking a habit done
type CompletionOutcome struct {
	Habit            *habit.Habit        `json:"habit"`
	User             Progress            `json:"user"`
	XPAwarded        int                 `json:"xpAwarded"`
	LeveledUp        bool                `json:"leveledUp"`
	AlreadyCompleted bool                `json:"alreadyCompleted"`
	NewAchievements  []habit.Achievement `json:"newAchievements"`
}

// CompleteHabit marks a habit done for the user's current day. The streak,
// XP and activity bookkeeping commit together. A second completion in the
// same period changes nothing and reports AlreadyCompleted.
func (s *Service) CompleteHabit(ctx context.Context, userID, habitID, note string) (*CompletionOutcome, error) {
	out := &CompletionOutcome{NewAchievements: []habit.Achievement{}}
	startLevel := 0

	err := s.store.InTx(ctx, func(tx *store.Store) error {
		// user before habit, the same order checkAchievements locks in
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		h, err := tx.LockHabit(ctx, userID, habitID)
		if err != nil {
			return err
		}
		if !h.IsActive {
			return ErrHabitInactive
		}

		now := s.now()
		today := u.Today(now)
		startLevel = u.Level
		out.Habit = h

		result := h.Complete(today, now)
		if result.AlreadyCompleted {
			out.AlreadyCompleted = true
			out.User = progressOf(u)
			return nil
		}

		if err := tx.InsertCompletion(ctx, habit.NewCompletion(h, today, note, now), h.XPValue); err != nil {
			return err
		}
		u.AwardXP(h.XPValue)
		u.RecordActivity(today)
		u.UpdatedAt = now

		if err := tx.UpdateHabitProgress(ctx, h); err != nil {
			return err
		}
		if err := tx.UpdateProgress(ctx, u); err != nil {
			return err
		}
		out.XPAwarded = h.XPValue
		out.User = progressOf(u)
		return nil
	})

	var conflict *store.ConflictError
	if errors.As(err, &conflict) && conflict.Field == "date" {
		// A concurrent request recorded today's completion first
		return s.alreadyCompleted(ctx, userID, habitID)
	}
	if err != nil {
		return nil, err
	}
	if out.AlreadyCompleted {
		return out, nil
	}

	check, err := s.checkAchievements(ctx, userID)
	if err != nil {
		s.logger.Warn("achievement check after completion failed", zap.String("habit_id", habitID), zap.Error(err))
	} else {
		out.NewAchievements = check.NewAchievements
		out.User = check.User
	}
	out.LeveledUp = out.User.Level > startLevel

	s.invalidateProgress(ctx, userID)
	s.publish(userID, websocket.EventHabitCompleted, map[string]interface{}{
		"habitId":   out.Habit.ID,
		"streak":    out.Habit.Streak,
		"xpAwarded": out.XPAwarded,
		"user":      out.User,
	})
	if out.LeveledUp {
		s.publish(userID, websocket.EventLevelUp, out.User)
	}
	s.publishAchievements(userID, out.NewAchievements)
	return out, nil
}

func (s *Service) alreadyCompleted(ctx context.Context, userID, habitID string) (*CompletionOutcome, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	h, err := s.store.HabitForUser(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	h.CompletedToday = true
	return &CompletionOutcome{
		Habit:            h,
		User:             progressOf(u),
		AlreadyCompleted: true,
		NewAchievements:  []habit.Achievement{},
	}, nil
}

func (s *Service) invalidateProgress(ctx context.Context, userID string) {
	s.cache.Invalidate(ctx, cache.StatsKey(userID))
	s.cache.InvalidatePrefix(ctx, cache.LeaderboardPrefix)
}

func (s *Service) publishAchievements(userID string, earned []habit.Achievement) {
	for _, a := range earned {
		s.publish(userID, websocket.EventAchievementUnlocked, a)
	}
}
