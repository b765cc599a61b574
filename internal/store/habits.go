package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/habitnation/habitnation/internal/habit"
)

const habitColumns = `id, user_id, name, description, category, frequency, schedule, time_of_day,
	streak, longest_streak, total_completions, last_completed_on, xp_value, is_active, created_at, updated_at`

func scanHabit(row rowScanner) (*habit.Habit, error) {
	var h habit.Habit
	var schedule string
	err := row.Scan(
		&h.ID, &h.UserID, &h.Name, &h.Description, &h.Category, &h.Frequency, &schedule, &h.TimeOfDay,
		&h.Streak, &h.LongestStreak, &h.TotalCompletions, &h.LastCompletedOn, &h.XPValue, &h.IsActive,
		&h.CreatedAt, &h.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan habit: %w", err)
	}
	if err := json.Unmarshal([]byte(schedule), &h.Schedule); err != nil {
		return nil, fmt.Errorf("decode schedule of habit %s: %w", h.ID, err)
	}
	return &h, nil
}

func encodeSchedule(s habit.Schedule) (string, error) {
	if s == nil {
		s = habit.DefaultSchedule()
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode schedule: %w", err)
	}
	return string(b), nil
}

// CreateHabit inserts a habit
func (s *Store) CreateHabit(ctx context.Context, h *habit.Habit) error {
	schedule, err := encodeSchedule(h.Schedule)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.Name, h.Description, h.Category, h.Frequency, schedule, h.TimeOfDay,
		h.Streak, h.LongestStreak, h.TotalCompletions, h.LastCompletedOn, h.XPValue, h.IsActive,
		h.CreatedAt.UTC(), h.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create habit: %w", translate(err))
	}
	return nil
}

// HabitFilter narrows ListHabits
type HabitFilter struct {
	Frequency habit.Frequency
	Active    *bool
}

// ListHabits returns a user's habits, oldest first
func (s *Store) ListHabits(ctx context.Context, userID string, f HabitFilter) ([]*habit.Habit, error) {
	var where strings.Builder
	where.WriteString("user_id = ?")
	args := []interface{}{userID}
	if f.Frequency != "" {
		where.WriteString(" AND frequency = ?")
		args = append(args, f.Frequency)
	}
	if f.Active != nil {
		where.WriteString(" AND is_active = ?")
		args = append(args, *f.Active)
	}

	rows, err := s.query(ctx, `SELECT `+habitColumns+` FROM habits WHERE `+where.String()+` ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	habits := []*habit.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// LockHabit loads a habit owned by userID and, where the database supports
// row locks, holds the row until the transaction ends
func (s *Store) LockHabit(ctx context.Context, userID, habitID string) (*habit.Habit, error) {
	return scanHabit(s.queryRow(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ? AND user_id = ?`+s.db.Dialect.ForUpdate(), habitID, userID))
}

// HabitForUser loads a habit owned by userID. Habits belonging to someone
// else are reported as ErrNotFound.
func (s *Store) HabitForUser(ctx context.Context, userID, habitID string) (*habit.Habit, error) {
	return scanHabit(s.queryRow(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ? AND user_id = ?`, habitID, userID))
}

// UpdateHabit saves the user-editable fields of a habit
func (s *Store) UpdateHabit(ctx context.Context, h *habit.Habit) error {
	schedule, err := encodeSchedule(h.Schedule)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, `
		UPDATE habits SET name = ?, description = ?, category = ?, frequency = ?, schedule = ?,
			time_of_day = ?, xp_value = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		h.Name, h.Description, h.Category, h.Frequency, schedule,
		h.TimeOfDay, h.XPValue, h.IsActive, h.UpdatedAt.UTC(),
		h.ID, h.UserID,
	)
	if err != nil {
		return fmt.Errorf("update habit: %w", err)
	}
	return expectOne(res)
}

// UpdateHabitProgress saves streak bookkeeping after a completion
func (s *Store) UpdateHabitProgress(ctx context.Context, h *habit.Habit) error {
	res, err := s.exec(ctx, `
		UPDATE habits SET streak = ?, longest_streak = ?, total_completions = ?, last_completed_on = ?, updated_at = ?
		WHERE id = ?`,
		h.Streak, h.LongestStreak, h.TotalCompletions, h.LastCompletedOn, h.UpdatedAt.UTC(), h.ID,
	)
	if err != nil {
		return fmt.Errorf("update habit progress: %w", err)
	}
	return expectOne(res)
}

// DeleteHabit removes a habit owned by userID along with its completions
func (s *Store) DeleteHabit(ctx context.Context, userID, habitID string) error {
	res, err := s.exec(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, habitID, userID)
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return expectOne(res)
}

// HabitsWithStreaks returns every habit with a positive streak whose last
// completion is before the given day
func (s *Store) HabitsWithStreaks(ctx context.Context, before habit.Date) ([]*habit.Habit, error) {
	rows, err := s.query(ctx, `SELECT `+habitColumns+` FROM habits
		WHERE streak > 0 AND (last_completed_on IS NULL OR last_completed_on < ?)`, before)
	if err != nil {
		return nil, fmt.Errorf("habits with streaks: %w", err)
	}
	defer rows.Close()

	var habits []*habit.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// ResetHabitStreak zeroes the streak of h provided the row still holds the
// last completion h was judged on. It reports false when a completion landed
// in between and the row was left alone.
func (s *Store) ResetHabitStreak(ctx context.Context, h *habit.Habit, now time.Time) (bool, error) {
	query, args := `UPDATE habits SET streak = 0, updated_at = ? WHERE id = ? AND streak > 0`, []interface{}{now.UTC(), h.ID}
	query, args = sameDate(query, args, "last_completed_on", h.LastCompletedOn)
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("reset habit streak: %w", err)
	}
	return affected(res)
}

// HabitCounts is the per-user habit aggregate used by stats
type HabitCounts struct {
	Total       int
	Active      int
	XPFromHabit int
}

// CountHabits aggregates a user's habits
func (s *Store) CountHabits(ctx context.Context, userID string) (HabitCounts, error) {
	var c HabitCounts
	err := s.queryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(xp_value), 0)
		FROM habits WHERE user_id = ?`, userID).Scan(&c.Total, &c.Active, &c.XPFromHabit)
	if err != nil {
		return c, fmt.Errorf("count habits: %w", err)
	}
	return c, nil
}

// sameDate appends a guard that column still equals d, or is still null
func sameDate(query string, args []interface{}, column string, d *habit.Date) (string, []interface{}) {
	if d == nil {
		return query + ` AND ` + column + ` IS NULL`, args
	}
	return query + ` AND ` + column + ` = ?`, append(args, *d)
}
