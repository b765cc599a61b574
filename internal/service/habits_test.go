package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/habitnation/habitnation/internal/habit"
	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/web/websocket"
)

const day = 24 * time.Hour

func habitInput() habit.Input {
	return habit.Input{}
}

func pausedInput() habit.Input {
	return habit.Input{IsActive: boolPtr(false)}
}

func TestHabitCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "sam")
	other := f.register(t, "alex")

	h := f.habit(t, u.ID, "Read", habitInput())
	assert.Equal(t, habit.Daily, h.Frequency)
	assert.Equal(t, habit.DefaultXPValue, h.XPValue)

	got, err := f.svc.GetHabit(ctx, u.ID, h.ID)
	require.NoError(t, err)
	assert.False(t, got.CompletedToday)

	_, err = f.svc.GetHabit(ctx, other.ID, h.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	updated, err := f.svc.UpdateHabit(ctx, u.ID, h.ID, habit.Input{XPValue: intPtr(25)})
	require.NoError(t, err)
	assert.Equal(t, 25, updated.XPValue)
	assert.Equal(t, "Read", updated.Name)

	_, err = f.svc.UpdateHabit(ctx, u.ID, h.ID, habit.Input{XPValue: intPtr(0)})
	assert.Error(t, err)
	_, err = f.svc.UpdateHabit(ctx, other.ID, h.ID, habit.Input{XPValue: intPtr(30)})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, f.svc.DeleteHabit(ctx, other.ID, h.ID), store.ErrNotFound)
	require.NoError(t, f.svc.DeleteHabit(ctx, u.ID, h.ID))
	_, err = f.svc.GetHabit(ctx, u.ID, h.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListHabitsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "sam")

	// startTime is a Wednesday
	f.habit(t, u.ID, "Weekdays", habit.Input{Schedule: habit.Schedule{"wednesday": true}})
	f.habit(t, u.ID, "Weekend", habit.Input{Schedule: habit.Schedule{"saturday": true, "sunday": true}})
	weekly := habit.Weekly
	f.habit(t, u.ID, "Laundry", habit.Input{Frequency: &weekly})
	f.habit(t, u.ID, "Paused", pausedInput())

	all, err := f.svc.ListHabits(ctx, u.ID, HabitFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	due, err := f.svc.ListHabits(ctx, u.ID, HabitFilter{ScheduledToday: true})
	require.NoError(t, err)
	var names []string
	for _, h := range due {
		names = append(names, h.Name)
	}
	assert.ElementsMatch(t, []string{"Weekdays", "Laundry", "Paused"}, names)

	active, err := f.svc.ListHabits(ctx, u.ID, HabitFilter{Active: boolPtr(true), Frequency: habit.Daily})
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestCompleteHabitStreaks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "sam")
	h := f.habit(t, u.ID, "Read", habitInput())

	out, err := f.svc.CompleteHabit(ctx, u.ID, h.ID, "chapter 1")
	require.NoError(t, err)
	assert.False(t, out.AlreadyCompleted)
	assert.Equal(t, 1, out.Habit.Streak)
	assert.Equal(t, 10, out.XPAwarded)
	assert.Equal(t, Progress{XP: 10, Level: 1, Streak: 1, XPForNextLevel: 1000}, out.User)
	assert.True(t, out.Habit.CompletedToday)

	// Same day again holds
	out, err = f.svc.CompleteHabit(ctx, u.ID, h.ID, "")
	require.NoError(t, err)
	assert.True(t, out.AlreadyCompleted)
	assert.Equal(t, 0, out.XPAwarded)
	assert.Equal(t, 10, out.User.XP)
	assert.Equal(t, 1, out.Habit.TotalCompletions)

	f.clock.Advance(day)
	out, err = f.svc.CompleteHabit(ctx, u.ID, h.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Habit.Streak)
	assert.Equal(t, 2, out.User.Streak)
	assert.Equal(t, 20, out.User.XP)

	// Missing a day resets to one
	f.clock.Advance(2 * day)
	out, err = f.svc.CompleteHabit(ctx, u.ID, h.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Habit.Streak)
	assert.Equal(t, 2, out.Habit.LongestStreak)
	assert.Equal(t, 3, out.Habit.TotalCompletions)
	assert.Equal(t, 1, out.User.Streak)

	completions, err := f.svc.ListCompletions(ctx, u.ID, h.ID, 10)
	require.NoError(t, err)
	require.Len(t, completions, 3)
	assert.Equal(t, "chapter 1", completions[2].Note)

	assert.Equal(t, []string{
		websocket.EventHabitCompleted,
		websocket.EventHabitCompleted,
		websocket.EventHabitCompleted,
	}, f.events.kinds())
}

func TestCompleteHabitLevelsUp(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "sam")
	h := f.habit(t, u.ID, "Marathon", habit.Input{XPValue: intPtr(1000)})

	out, err := f.svc.CompleteHabit(context.Background(), u.ID, h.ID, "")
	require.NoError(t, err)
	assert.True(t, out.LeveledUp)
	assert.Equal(t, 2, out.User.Level)
	assert.Equal(t, 2000, out.User.XPForNextLevel)
	assert.Contains(t, f.events.kinds(), websocket.EventLevelUp)
}

func TestCompleteHabitInUserTimezone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "sam")
	_, err := f.svc.UpdateProfile(ctx, u.ID, ProfileInput{Timezone: strPtr("Pacific/Kiritimati")})
	require.NoError(t, err)
	h := f.habit(t, u.ID, "Read", habitInput())

	// 10:00 UTC is already the next day at UTC+14
	out, err := f.svc.CompleteHabit(ctx, u.ID, h.ID, "")
	require.NoError(t, err)
	assert.Equal(t, habit.Date{Year: 2024, Month: time.March, Day: 14}, *out.Habit.LastCompletedOn)
}

func TestCompleteHabitRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "sam")
	other := f.register(t, "alex")
	paused := f.habit(t, u.ID, "Paused", pausedInput())
	h := f.habit(t, u.ID, "Read", habitInput())

	_, err := f.svc.CompleteHabit(ctx, u.ID, paused.ID, "")
	assert.ErrorIs(t, err, ErrHabitInactive)

	_, err = f.svc.CompleteHabit(ctx, other.ID, h.ID, "")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	me, err := f.svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, me.XP)
}

func TestConcurrentCompletionsKeepEveryAward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "sam")
	read := f.habit(t, u.ID, "Read", habitInput())
	walk := f.habit(t, u.ID, "Walk", habit.Input{XPValue: intPtr(25)})

	// both habits twice, so each habit also races its own duplicate
	ids := []string{read.ID, walk.ID, read.ID, walk.ID}
	outcomes := make([]*CompletionOutcome, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			out, err := f.svc.CompleteHabit(ctx, u.ID, id, "")
			outcomes[i] = out
			return err
		})
	}
	require.NoError(t, g.Wait())

	awarded, duplicates := 0, 0
	for _, out := range outcomes {
		awarded += out.XPAwarded
		if out.AlreadyCompleted {
			duplicates++
		}
	}
	assert.Equal(t, 35, awarded)
	assert.Equal(t, 2, duplicates)

	me, err := f.svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 35, me.XP)
	assert.Equal(t, 1, me.Streak)
}

func TestCompleteHabitAfterConcurrentInsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "sam")
	h := f.habit(t, u.ID, "Read", habitInput())

	// another request stored today's completion but has not updated the habit row yet
	today := habit.DateOf(startTime)
	require.NoError(t, f.store.InsertCompletion(ctx, habit.NewCompletion(h, today, "", startTime), h.XPValue))

	out, err := f.svc.CompleteHabit(ctx, u.ID, h.ID, "")
	require.NoError(t, err)
	assert.True(t, out.AlreadyCompleted)
	assert.Zero(t, out.XPAwarded)
	assert.True(t, out.Habit.CompletedToday)
	assert.Equal(t, []habit.Achievement{}, out.NewAchievements)
	assert.Zero(t, out.User.XP)
	assert.Empty(t, f.events.kinds())
}

func TestSweepSparesCompletionAfterCandidateRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "sam")
	h := f.habit(t, u.ID, "Read", habitInput())

	_, err := f.svc.CompleteHabit(ctx, u.ID, h.ID, "")
	require.NoError(t, err)

	// Friday: the sweep reads its candidates, then a completion commits
	f.clock.Advance(2 * day)
	friday := startTime.Add(2 * day)
	habits, err := f.store.HabitsWithStreaks(ctx, habit.DateOf(friday))
	require.NoError(t, err)
	require.Len(t, habits, 1)
	users, err := f.store.UsersWithStaleStreaks(ctx, habit.DateOf(friday))
	require.NoError(t, err)
	require.Len(t, users, 1)

	out, err := f.svc.CompleteHabit(ctx, u.ID, h.ID, "")
	require.NoError(t, err)
	require.Equal(t, 1, out.Habit.Streak)

	reset, err := f.store.ResetHabitStreak(ctx, habits[0], friday)
	require.NoError(t, err)
	assert.False(t, reset)
	reset, err = f.store.ResetUserStreak(ctx, users[0], friday)
	require.NoError(t, err)
	assert.False(t, reset)

	res, err := f.svc.SweepStreaks(ctx, friday)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)

	got, err := f.svc.GetHabit(ctx, u.ID, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Streak)
	assert.True(t, got.CompletedToday)
	me, err := f.svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, me.Streak)
}

func TestSweepStreaks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "sam")
	daily := f.habit(t, u.ID, "Read", habitInput())
	weekly := habit.Weekly
	laundry := f.habit(t, u.ID, "Laundry", habit.Input{Frequency: &weekly})

	_, err := f.svc.CompleteHabit(ctx, u.ID, daily.ID, "")
	require.NoError(t, err)
	_, err = f.svc.CompleteHabit(ctx, u.ID, laundry.ID, "")
	require.NoError(t, err)

	// Next day nothing has lapsed yet
	res, err := f.svc.SweepStreaks(ctx, startTime.Add(day))
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)

	// Friday: the daily habit missed Thursday, the weekly one is still in its week
	res, err = f.svc.SweepStreaks(ctx, startTime.Add(2*day))
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Habits: 1, Users: 1}, res)

	got, err := f.svc.GetHabit(ctx, u.ID, daily.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Streak)
	assert.Equal(t, 1, got.LongestStreak)
	got, err = f.svc.GetHabit(ctx, u.ID, laundry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Streak)

	st, err := f.svc.Stats(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Streak)

	// Two weeks later the weekly habit lapses too
	res, err = f.svc.SweepStreaks(ctx, startTime.Add(14*day))
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Habits: 1}, res)
}
