package store

import (
	"context"
	"fmt"

	"github.com/habitnation/habitnation/internal/habit"
)

// InsertCompletion appends an entry to a habit's completion log. A second
// entry for the same habit and day is a ConflictError on "date".
func (s *Store) InsertCompletion(ctx context.Context, c *habit.Completion, xpAwarded int) error {
	_, err := s.exec(ctx, `
		INSERT INTO habit_completions (id, habit_id, user_id, completed_on, note, xp_awarded, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.HabitID, c.UserID, c.On, c.Note, xpAwarded, c.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert completion: %w", translate(err))
	}
	return nil
}

// ListCompletions returns the most recent completions of a habit
func (s *Store) ListCompletions(ctx context.Context, habitID string, limit int) ([]*habit.Completion, error) {
	rows, err := s.query(ctx, `
		SELECT id, habit_id, user_id, completed_on, note, completed_at
		FROM habit_completions WHERE habit_id = ?
		ORDER BY completed_on DESC
		LIMIT ?`, habitID, limit)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	completions := []*habit.Completion{}
	for rows.Next() {
		var c habit.Completion
		if err := rows.Scan(&c.ID, &c.HabitID, &c.UserID, &c.On, &c.Note, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, &c)
	}
	return completions, rows.Err()
}

// CountCompletions returns how many completions a user has logged
func (s *Store) CountCompletions(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM habit_completions WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return n, nil
}

// EachCompletion calls fn for every completion a user has logged, oldest
// first, without loading the whole history. fn must not use the store.
func (s *Store) EachCompletion(ctx context.Context, userID string, fn func(*habit.Completion) error) error {
	rows, err := s.query(ctx, `
		SELECT id, habit_id, user_id, completed_on, note, completed_at
		FROM habit_completions WHERE user_id = ?
		ORDER BY completed_on ASC, completed_at ASC`, userID)
	if err != nil {
		return fmt.Errorf("each completion: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c habit.Completion
		if err := rows.Scan(&c.ID, &c.HabitID, &c.UserID, &c.On, &c.Note, &c.CompletedAt); err != nil {
			return fmt.Errorf("scan completion: %w", err)
		}
		if err := fn(&c); err != nil {
			return err
		}
	}
	return rows.Err()
}
