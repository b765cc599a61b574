package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitnation/habitnation/internal/habit"
)

func TestCreateAndLoadUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "sam")

	byID, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "sam", byID.Username)
	assert.Equal(t, 1, byID.Level)
	assert.Nil(t, byID.LastActiveOn)
	assert.True(t, byID.CreatedAt.Equal(testNow))

	byEmail, err := s.UserByEmail(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.UserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createUser(t, s, "sam")

	dup := &habit.User{ID: "other", Username: "sam", Email: "new@example.com", PasswordHash: "x", Level: 1, CreatedAt: testNow, UpdatedAt: testNow}
	err := s.CreateUser(ctx, dup)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "username", conflict.Field)

	dup.Username = "new"
	dup.Email = "sam@example.com"
	err = s.CreateUser(ctx, dup)
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "email", conflict.Field)
}

func TestUserTaken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sam := createUser(t, s, "sam")
	alex := createUser(t, s, "alex")

	taken, err := s.UserTaken(ctx, "username", "sam", alex.ID)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = s.UserTaken(ctx, "username", "sam", sam.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = s.UserTaken(ctx, "password_hash", "x", sam.ID)
	assert.Error(t, err)
}

func TestUpdateProgressAndLeaderboard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sam := createUser(t, s, "sam")
	alex := createUser(t, s, "alex")
	createUser(t, s, "kim")

	day := habit.Date{Year: 2024, Month: 3, Day: 13}
	sam.XP, sam.Level, sam.Streak, sam.LongestStreak, sam.LastActiveOn = 2500, 3, 4, 9, &day
	require.NoError(t, s.UpdateProgress(ctx, sam))
	alex.XP = 300
	require.NoError(t, s.UpdateProgress(ctx, alex))

	loaded, err := s.UserByID(ctx, sam.ID)
	require.NoError(t, err)
	assert.Equal(t, 2500, loaded.XP)
	assert.Equal(t, &day, loaded.LastActiveOn)

	board, err := s.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "sam", board[0].Username)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "alex", board[1].Username)
	assert.Equal(t, 2, board[1].Rank)
}

func TestSetAdmin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "sam")

	require.NoError(t, s.SetAdmin(ctx, u.Email, true))
	loaded, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsAdmin)

	assert.ErrorIs(t, s.SetAdmin(ctx, "nobody@example.com", true), ErrNotFound)
}

func TestStaleUserStreaks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "sam")

	old := habit.Date{Year: 2024, Month: 3, Day: 1}
	u.Streak, u.LastActiveOn = 3, &old
	require.NoError(t, s.UpdateProgress(ctx, u))

	stale, err := s.UsersWithStaleStreaks(ctx, habit.Date{Year: 2024, Month: 3, Day: 12})
	require.NoError(t, err)
	require.Len(t, stale, 1)

	reset, err := s.ResetUserStreak(ctx, stale[0], testNow)
	require.NoError(t, err)
	assert.True(t, reset)
	stale, err = s.UsersWithStaleStreaks(ctx, habit.Date{Year: 2024, Month: 3, Day: 12})
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestUserIDs(t *testing.T) {
	s := newTestStore(t)
	createUser(t, s, "sam")
	createUser(t, s, "alex")

	ids, err := s.UserIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alex-id", "sam-id"}, ids)
}

func TestResetUserStreakKeepsNewerActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "sam")

	old := habit.Date{Year: 2024, Month: 3, Day: 1}
	u.Streak, u.LastActiveOn = 3, &old
	require.NoError(t, s.UpdateProgress(ctx, u))
	stale, err := s.UsersWithStaleStreaks(ctx, habit.Date{Year: 2024, Month: 3, Day: 13})
	require.NoError(t, err)
	require.Len(t, stale, 1)

	u.RecordActivity(habit.Date{Year: 2024, Month: 3, Day: 13})
	require.NoError(t, s.UpdateProgress(ctx, u))

	reset, err := s.ResetUserStreak(ctx, stale[0], testNow)
	require.NoError(t, err)
	assert.False(t, reset)

	loaded, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Streak)
}
