package service

import (
	"context"
	"strings"

	"github.com/habitnation/habitnation/internal/habit"
	"github.com/habitnation/habitnation/internal/validation"
	"github.com/habitnation/habitnation/internal/web/auth"
	"github.com/habitnation/habitnation/internal/web/cache"
)

// ProfileInput carries the profile fields a user may change. Nil fields
// are left as they are.
type ProfileInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Timezone *string `json:"timezone"`
}

// PasswordInput is the body of a password change
type PasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Stats summarises a user's progress
type Stats struct {
	XP                      int `json:"xp"`
	Level                   int `json:"level"`
	Streak                  int `json:"streak"`
	LongestStreak           int `json:"longestStreak"`
	XPForNextLevel          int `json:"xpForNextLevel"`
	TotalHabits             int `json:"totalHabits"`
	ActiveHabits            int `json:"activeHabits"`
	TotalAchievements       int `json:"totalAchievements"`
	TotalCompletions        int `json:"totalCompletions"`
	TotalXPFromHabits       int `json:"totalXPFromHabits"`
	TotalXPFromAchievements int `json:"totalXPFromAchievements"`
}

// UpdateProfile changes username, email or timezone
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*habit.PublicUser, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	errs := validation.NewValidationErrors()
	if in.Username != nil {
		u.Username = strings.TrimSpace(*in.Username)
		if errs.Required("username", u.Username, "Username is required") {
			errs.MaxLength("username", u.Username, maxUsernameLength)
		}
	}
	if in.Email != nil {
		u.Email = normalizeEmail(*in.Email)
		if errs.Required("email", u.Email, "Email is required") {
			errs.Email("email", u.Email)
		}
	}
	if in.Timezone != nil {
		u.Timezone = strings.TrimSpace(*in.Timezone)
		checkTimezone(errs, u.Timezone)
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	if in.Username != nil {
		if err := s.ensureFree(ctx, "username", u.Username, u.ID); err != nil {
			return nil, err
		}
	}
	if in.Email != nil {
		if err := s.ensureFree(ctx, "email", u.Email, u.ID); err != nil {
			return nil, err
		}
	}

	u.UpdatedAt = s.now()
	if err := s.store.UpdateProfile(ctx, u); err != nil {
		return nil, asConflict(err, takenMessage)
	}
	s.cache.InvalidatePrefix(ctx, cache.LeaderboardPrefix)

	habits, achievements, err := s.userDetails(ctx, u)
	if err != nil {
		return nil, err
	}
	pub := u.Public(habits, achievements)
	return &pub, nil
}

func (s *Service) ensureFree(ctx context.Context, column, value, userID string) error {
	taken, err := s.store.UserTaken(ctx, column, value, userID)
	if err != nil {
		return err
	}
	if taken {
		return &ConflictError{Field: column, Message: takenMessage(column)}
	}
	return nil
}

func takenMessage(field string) string {
	switch field {
	case "username":
		return "Username already taken"
	case "email":
		return "Email already taken"
	default:
		return field + " already taken"
	}
}

// ChangePassword replaces the password after checking the current one
func (s *Service) ChangePassword(ctx context.Context, userID string, in PasswordInput) error {
	errs := validation.NewValidationErrors()
	errs.Required("currentPassword", in.CurrentPassword, "Current password is required")
	checkPassword(errs, "newPassword", in.NewPassword)
	if err := errs.OrNil(); err != nil {
		return err
	}

	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(in.CurrentPassword, u.PasswordHash) {
		return ErrIncorrectPassword
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, u.ID, hash, s.now())
}

// Stats returns the user's progress summary. Results are cached briefly and
// dropped whenever the user's progress changes.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	return cache.Fetch(ctx, s.cache, cache.StatsKey(userID), s.ttl.StatsTTL, func(ctx context.Context) (*Stats, error) {
		return s.loadStats(ctx, userID)
	})
}

func (s *Service) loadStats(ctx context.Context, userID string) (*Stats, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	completions, err := s.store.CountCompletions(ctx, userID)
	if err != nil {
		return nil, err
	}
	earned, err := s.store.EarnedAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		XP:                u.XP,
		Level:             u.Level,
		Streak:            u.Streak,
		LongestStreak:     u.LongestStreak,
		XPForNextLevel:    habit.XPForNextLevel(u.Level),
		TotalHabits:       counts.Total,
		ActiveHabits:      counts.Active,
		TotalAchievements: len(earned),
		TotalCompletions:  completions,
		TotalXPFromHabits: counts.XPFromHabit,
	}
	for _, a := range earned {
		st.TotalXPFromAchievements += a.XPReward
	}
	return st, nil
}
