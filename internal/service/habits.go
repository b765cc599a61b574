package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/habit"
	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/web/cache"
)

// HabitFilter narrows ListHabits
type HabitFilter struct {
	Frequency habit.Frequency
	Active    *bool
	// ScheduledToday keeps only habits due on the user's current day
	ScheduledToday bool
}

// ListHabits returns the user's habits with CompletedToday filled in
func (s *Service) ListHabits(ctx context.Context, userID string, f HabitFilter) ([]*habit.Habit, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	habits, err := s.store.ListHabits(ctx, userID, store.HabitFilter{Frequency: f.Frequency, Active: f.Active})
	if err != nil {
		return nil, err
	}

	today := u.Today(s.now())
	markCompletedToday(habits, today)
	if !f.ScheduledToday {
		return habits, nil
	}
	due := habits[:0]
	for _, h := range habits {
		if h.IsScheduledOn(today) {
			due = append(due, h)
		}
	}
	return due, nil
}

// GetHabit returns one of the user's habits
func (s *Service) GetHabit(ctx context.Context, userID, habitID string) (*habit.Habit, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	h, err := s.store.HabitForUser(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	h.CompletedToday = h.CompletedOn(u.Today(s.now()))
	return h, nil
}

// CreateHabit adds a habit for the user
func (s *Service) CreateHabit(ctx context.Context, userID string, in habit.Input) (*habit.Habit, error) {
	if _, err := s.store.UserByID(ctx, userID); err != nil {
		return nil, err
	}
	h, err := habit.New(userID, in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateHabit(ctx, h); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.StatsKey(userID))
	// Habit-count achievements can unlock on creation
	if _, err := s.CheckAchievements(ctx, userID); err != nil {
		s.logger.Warn("achievement check after habit creation failed", zap.Error(err))
	}
	return h, nil
}

// UpdateHabit applies in to one of the user's habits
func (s *Service) UpdateHabit(ctx context.Context, userID, habitID string, in habit.Input) (*habit.Habit, error) {
	var out *habit.Habit
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		h, err := tx.HabitForUser(ctx, userID, habitID)
		if err != nil {
			return err
		}
		if err := h.Apply(in, s.now()); err != nil {
			return err
		}
		if err := tx.UpdateHabit(ctx, h); err != nil {
			return err
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.StatsKey(userID))
	return out, nil
}

// DeleteHabit removes one of the user's habits
func (s *Service) DeleteHabit(ctx context.Context, userID, habitID string) error {
	if err := s.store.DeleteHabit(ctx, userID, habitID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.StatsKey(userID))
	return nil
}

// ListCompletions returns the newest completions of one of the user's habits
func (s *Service) ListCompletions(ctx context.Context, userID, habitID string, limit int) ([]*habit.Completion, error) {
	if _, err := s.store.HabitForUser(ctx, userID, habitID); err != nil {
		return nil, err
	}
	return s.store.ListCompletions(ctx, habitID, limit)
}

func markCompletedToday(habits []*habit.Habit, today habit.Date) {
	for _, h := range habits {
		h.CompletedToday = h.CompletedOn(today)
	}
}

// ExportCompletions calls fn for every completion the user has logged,
// oldest first
func (s *Service) ExportCompletions(ctx context.Context, userID string, fn func(*habit.Completion) error) error {
	if _, err := s.store.UserByID(ctx, userID); err != nil {
		return err
	}
	return s.store.EachCompletion(ctx, userID, fn)
}
