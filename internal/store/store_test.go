package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitnation/habitnation/internal/config"
	"github.com/habitnation/habitnation/internal/habit"
	"github.com/habitnation/habitnation/internal/store/dialect"
)

var testNow = time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return openTestStore(t, "sqlite3")
}

func openTestStore(t *testing.T, driver string) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, config.DatabaseConfig{Driver: driver, URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Migrator(nil).MigrateUp(ctx, Migrations(db.Dialect))
	require.NoError(t, err)
	return New(db)
}

func createUser(t *testing.T, s *Store, username string) *habit.User {
	t.Helper()
	u := &habit.User{
		ID:           username + "-id",
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Level:        1,
		Timezone:     "UTC",
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func createHabit(t *testing.T, s *Store, userID, name string) *habit.Habit {
	t.Helper()
	h, err := habit.New(userID, habit.Input{Name: &name}, testNow)
	require.NoError(t, err)
	require.NoError(t, s.CreateHabit(context.Background(), h))
	return h
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestPostgresQueriesAreRebound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	s := New(&DB{DB: sqlDB, Dialect: dialect.Postgres})

	mock.ExpectExec(`UPDATE users SET password_hash = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs("new-hash", sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdatePassword(context.Background(), "user-1", "new-hash", testNow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestZeroRowsIsNotFound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	s := New(&DB{DB: sqlDB, Dialect: dialect.Postgres})
	mock.ExpectExec(`DELETE FROM habits`).WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.DeleteHabit(context.Background(), "user-1", "habit-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresLockedReads(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	s := New(&DB{DB: sqlDB, Dialect: dialect.Postgres})
	mock.ExpectQuery(`FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`FROM habits WHERE id = \$1 AND user_id = \$2 FOR UPDATE`).
		WithArgs("habit-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = s.LockUser(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.LockHabit(context.Background(), "user-1", "habit-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteLockedReadsHaveNoLockClause(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "sam")
	h := createHabit(t, s, u.ID, "Walk")

	require.NoError(t, s.InTx(ctx, func(tx *Store) error {
		locked, err := tx.LockUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.ID, locked.ID)
		lockedHabit, err := tx.LockHabit(ctx, u.ID, h.ID)
		require.NoError(t, err)
		assert.Equal(t, h.ID, lockedHabit.ID)
		return nil
	}))
}

func TestInTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx *Store) error {
		createUser(t, tx, "ghost")
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = s.UserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPureGoSQLiteDriver(t *testing.T) {
	s := openTestStore(t, "sqlite")
	ctx := context.Background()
	assert.Equal(t, dialect.SQLite, s.DB().Dialect)

	u := createUser(t, s, "sam")
	dup := *u
	dup.ID = "other"
	dup.Email = "new@example.com"
	var conflict *ConflictError
	require.ErrorAs(t, s.CreateUser(ctx, &dup), &conflict)
	assert.Equal(t, "username", conflict.Field)

	h := createHabit(t, s, u.ID, "Read")
	day := habit.Date{Year: 2024, Month: 3, Day: 13}
	h.Complete(day, testNow)
	require.NoError(t, s.UpdateHabitProgress(ctx, h))
	require.NoError(t, s.InsertCompletion(ctx, habit.NewCompletion(h, day, "", testNow), h.XPValue))
	require.ErrorAs(t, s.InsertCompletion(ctx, habit.NewCompletion(h, day, "", testNow), h.XPValue), &conflict)
	assert.Equal(t, "date", conflict.Field)

	loaded, err := s.HabitForUser(ctx, u.ID, h.ID)
	require.NoError(t, err)
	assert.Equal(t, &day, loaded.LastCompletedOn)
	assert.Equal(t, 1, loaded.Streak)
}
