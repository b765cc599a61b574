package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/habitnation/habitnation/internal/habit"
)

const userColumns = `id, username, email, password_hash, xp, level, streak, longest_streak,
	last_active_on, is_admin, timezone, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*habit.User, error) {
	var u habit.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.XP, &u.Level, &u.Streak, &u.LongestStreak,
		&u.LastActiveOn, &u.IsAdmin, &u.Timezone, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a new user
func (s *Store) CreateUser(ctx context.Context, u *habit.User) error {
	_, err := s.exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.XP, u.Level, u.Streak, u.LongestStreak,
		u.LastActiveOn, u.IsAdmin, u.Timezone, u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

// UserByID loads a user
func (s *Store) UserByID(ctx context.Context, id string) (*habit.User, error) {
	return scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// LockUser loads a user by id and, where the database supports row locks,
// holds the row until the transaction ends. Progress writes go through a
// locked read so concurrent awards never overwrite each other.
func (s *Store) LockUser(ctx context.Context, id string) (*habit.User, error) {
	return scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`+s.db.Dialect.ForUpdate(), id))
}

// UserByEmail loads a user by (lower-cased) email
func (s *Store) UserByEmail(ctx context.Context, email string) (*habit.User, error) {
	return scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// UserByUsername loads a user by username
func (s *Store) UserByUsername(ctx context.Context, username string) (*habit.User, error) {
	return scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

// UserTaken reports whether a user other than exceptID already has the
// value in column. column must be "email" or "username".
func (s *Store) UserTaken(ctx context.Context, column, value, exceptID string) (bool, error) {
	if column != "email" && column != "username" {
		return false, fmt.Errorf("user taken: unsupported column %q", column)
	}
	var count int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+column+` = ? AND id <> ?`, value, exceptID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("user taken: %w", err)
	}
	return count > 0, nil
}

// UpdateProfile saves username, email and timezone
func (s *Store) UpdateProfile(ctx context.Context, u *habit.User) error {
	res, err := s.exec(ctx, `
		UPDATE users SET username = ?, email = ?, timezone = ?, updated_at = ?
		WHERE id = ?`,
		u.Username, u.Email, u.Timezone, u.UpdatedAt.UTC(), u.ID,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", translate(err))
	}
	return expectOne(res)
}

// UpdatePassword replaces the password hash
func (s *Store) UpdatePassword(ctx context.Context, id, hash string, now time.Time) error {
	res, err := s.exec(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectOne(res)
}

// UpdateProgress saves xp, level and the activity streak
func (s *Store) UpdateProgress(ctx context.Context, u *habit.User) error {
	res, err := s.exec(ctx, `
		UPDATE users SET xp = ?, level = ?, streak = ?, longest_streak = ?, last_active_on = ?, updated_at = ?
		WHERE id = ?`,
		u.XP, u.Level, u.Streak, u.LongestStreak, u.LastActiveOn, u.UpdatedAt.UTC(), u.ID,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return expectOne(res)
}

// SetAdmin grants or revokes admin rights by email
func (s *Store) SetAdmin(ctx context.Context, email string, admin bool) error {
	res, err := s.exec(ctx, `UPDATE users SET is_admin = ?, updated_at = ? WHERE email = ?`, admin, time.Now().UTC(), email)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return expectOne(res)
}

// LeaderboardEntry is one row of the XP leaderboard
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"id"`
	Username string `json:"username"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
	Streak   int    `json:"streak"`
}

// Leaderboard returns the top users by XP, then level
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.query(ctx, `
		SELECT id, username, xp, level, streak FROM users
		ORDER BY xp DESC, level DESC, created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	for rows.Next() {
		e := LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&e.UserID, &e.Username, &e.XP, &e.Level, &e.Streak); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UsersWithStaleStreaks returns users whose activity streak is positive and
// whose last activity is before the given day
func (s *Store) UsersWithStaleStreaks(ctx context.Context, before habit.Date) ([]*habit.User, error) {
	rows, err := s.query(ctx, `SELECT `+userColumns+` FROM users
		WHERE streak > 0 AND (last_active_on IS NULL OR last_active_on < ?)`, before)
	if err != nil {
		return nil, fmt.Errorf("stale user streaks: %w", err)
	}
	defer rows.Close()

	var users []*habit.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ResetUserStreak zeroes the activity streak of u provided the row still
// holds the last active day u was judged on
func (s *Store) ResetUserStreak(ctx context.Context, u *habit.User, now time.Time) (bool, error) {
	query, args := `UPDATE users SET streak = 0, updated_at = ? WHERE id = ? AND streak > 0`, []interface{}{now.UTC(), u.ID}
	query, args = sameDate(query, args, "last_active_on", u.LastActiveOn)
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("reset user streak: %w", err)
	}
	return affected(res)
}

// UserIDs returns the id of every user, oldest account first
func (s *Store) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.query(ctx, `SELECT id FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
