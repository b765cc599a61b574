package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/store/dialect"
)

var fixedNow = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

func setupMockQueue(t *testing.T) (sqlmock.Sqlmock, *Queue) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	queue := NewQueue(&store.DB{DB: db, Dialect: dialect.Postgres})
	queue.now = func() time.Time { return fixedNow }
	return mock, queue
}

func jobRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "queue", "type", "payload", "status", "priority", "attempts", "max_attempts",
		"error", "created_at", "run_at", "started_at", "completed_at", "locked_by", "locked_at",
	})
}

func TestNewJob(t *testing.T) {
	job, err := NewJob("maintenance", "streaks.sweep", map[string]string{"scope": "all"})
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, PriorityNormal, job.Priority)
	assert.Equal(t, 3, job.MaxAttempts)
	assert.JSONEq(t, `{"scope":"all"}`, string(job.Payload))

	var payload struct{ Scope string }
	require.NoError(t, job.Decode(&payload))
	assert.Equal(t, "all", payload.Scope)

	empty, err := NewJob("q", "t", nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(empty.Payload))

	_, err = NewJob("q", "t", make(chan int))
	assert.Error(t, err)
}

func TestEnqueue(t *testing.T) {
	mock, queue := setupMockQueue(t)
	job, err := NewJob("default", "achievements.recheck", nil)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO jobs .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10\)`).
		WithArgs(job.ID, "default", "achievements.recheck", "{}", JobStatusPending, PriorityNormal,
			0, 3, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, queue.Enqueue(context.Background(), job))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDequeueSkipsLockedRows(t *testing.T) {
	mock, queue := setupMockQueue(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM jobs .* FOR UPDATE SKIP LOCKED`).
		WithArgs(JobStatusPending, "default", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("job-1"))
	mock.ExpectExec(`UPDATE jobs\s+SET status = \$1, locked_by = \$2`).
		WithArgs(JobStatusRunning, "worker-1", fixedNow, fixedNow, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, queue, type`).
		WithArgs("job-1").
		WillReturnRows(jobRows().AddRow(
			"job-1", "default", "streaks.sweep", `{}`, JobStatusRunning, PriorityNormal, 1, 3,
			nil, fixedNow, fixedNow, fixedNow, nil, "worker-1", fixedNow,
		))
	mock.ExpectCommit()

	job, err := queue.Dequeue(context.Background(), "worker-1", "default")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, "streaks.sweep", job.Type)
	assert.Equal(t, 1, job.Attempts)
	require.NotNil(t, job.LockedBy)
	assert.Equal(t, "worker-1", *job.LockedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDequeueNoJobs(t *testing.T) {
	mock, queue := setupMockQueue(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM jobs`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := queue.Dequeue(context.Background(), "worker-1", "default")
	assert.ErrorIs(t, err, ErrNoJobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteJobNotFound(t *testing.T) {
	mock, queue := setupMockQueue(t)
	mock.ExpectExec(`UPDATE jobs`).
		WithArgs(JobStatusCompleted, nil, fixedNow, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := queue.Complete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		delay    time.Duration
	}{
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{20, 1024 * time.Minute},
	}
	for _, tt := range tests {
		mock, queue := setupMockQueue(t)
		mock.ExpectExec(`UPDATE jobs\s+SET status = \$1, run_at = \$2, error = \$3`).
			WithArgs(JobStatusPending, fixedNow.Add(tt.delay), "boom", "job-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		runAt, err := queue.Retry(context.Background(), &Job{ID: "job-1", Attempts: tt.attempts}, "boom")
		require.NoError(t, err)
		assert.Equal(t, fixedNow.Add(tt.delay), runAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}
