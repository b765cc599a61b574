package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitnation/habitnation/internal/habit"
)

func TestAchievements(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "sam")

	a, err := habit.NewAchievement(habit.AchievementInput{
		Name:         "Getting Started",
		Description:  "Create your first habit",
		Icon:         "🌱",
		Category:     habit.HabitAchievement,
		Requirements: map[string]int{"habits": 1},
	}, testNow)
	require.NoError(t, err)
	require.NoError(t, s.CreateAchievement(ctx, a))

	var conflict *ConflictError
	dup := *a
	dup.ID = "other"
	require.True(t, errors.As(s.CreateAchievement(ctx, &dup), &conflict))
	assert.Equal(t, "name", conflict.Field)

	all, err := s.ListAchievements(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, map[string]int{"habits": 1}, all[0].Requirements)

	earned, err := s.EarnedAchievements(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, earned)

	awarded, err := s.AwardAchievement(ctx, u.ID, a.ID, testNow)
	require.NoError(t, err)
	assert.True(t, awarded)

	// a repeat award is a no-op and leaves the transaction usable
	require.NoError(t, s.InTx(ctx, func(tx *Store) error {
		awarded, err := tx.AwardAchievement(ctx, u.ID, a.ID, testNow.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, awarded)
		_, err = tx.EarnedAchievements(ctx, u.ID)
		return err
	}))

	earned, err = s.EarnedAchievements(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	require.NotNil(t, earned[0].EarnedAt)
	assert.True(t, earned[0].EarnedAt.Equal(testNow))
}
