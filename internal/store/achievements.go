package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/habitnation/habitnation/internal/habit"
)

const achievementColumns = `a.id, a.name, a.description, a.xp_reward, a.icon, a.category, a.requirements, a.rule, a.created_at`

func scanAchievement(row rowScanner, extra ...interface{}) (*habit.Achievement, error) {
	var a habit.Achievement
	var requirements string
	dest := append([]interface{}{
		&a.ID, &a.Name, &a.Description, &a.XPReward, &a.Icon, &a.Category, &requirements, &a.Rule, &a.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan achievement: %w", err)
	}
	a.Requirements = map[string]int{}
	if err := json.Unmarshal([]byte(requirements), &a.Requirements); err != nil {
		return nil, fmt.Errorf("decode requirements of achievement %s: %w", a.ID, err)
	}
	return &a, nil
}

// CreateAchievement inserts an achievement definition
func (s *Store) CreateAchievement(ctx context.Context, a *habit.Achievement) error {
	requirements, err := json.Marshal(a.Requirements)
	if err != nil {
		return fmt.Errorf("encode requirements: %w", err)
	}
	_, err = s.exec(ctx, `
		INSERT INTO achievements (id, name, description, xp_reward, icon, category, requirements, rule, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Description, a.XPReward, a.Icon, a.Category, string(requirements), a.Rule, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create achievement: %w", translate(err))
	}
	return nil
}

// ListAchievements returns every achievement definition
func (s *Store) ListAchievements(ctx context.Context) ([]habit.Achievement, error) {
	rows, err := s.query(ctx, `SELECT `+achievementColumns+` FROM achievements a ORDER BY a.category, a.xp_reward, a.name`)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	achievements := []habit.Achievement{}
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, err
		}
		achievements = append(achievements, *a)
	}
	return achievements, rows.Err()
}

// EarnedAchievements returns the achievements a user has unlocked, most recent first
func (s *Store) EarnedAchievements(ctx context.Context, userID string) ([]habit.Achievement, error) {
	rows, err := s.query(ctx, `
		SELECT `+achievementColumns+`, ua.earned_at
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = ?
		ORDER BY ua.earned_at DESC, a.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("earned achievements: %w", err)
	}
	defer rows.Close()

	achievements := []habit.Achievement{}
	for rows.Next() {
		var earnedAt time.Time
		a, err := scanAchievement(rows, &earnedAt)
		if err != nil {
			return nil, err
		}
		a.EarnedAt = &earnedAt
		achievements = append(achievements, *a)
	}
	return achievements, rows.Err()
}

// AwardAchievement records that a user unlocked an achievement. It reports
// false when the user already held it. The insert never fails on the
// duplicate, so the surrounding transaction stays usable on PostgreSQL.
func (s *Store) AwardAchievement(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	res, err := s.exec(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id, earned_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`,
		userID, achievementID, at.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("award achievement: %w", translate(err))
	}
	return affected(res)
}
