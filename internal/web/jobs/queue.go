package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/store/transaction"
)

// ErrNoJobs is returned by Dequeue when nothing is ready to run
var ErrNoJobs = errors.New("no jobs available")

// ErrJobNotFound is returned when a job id matches no row in the expected state
var ErrJobNotFound = errors.New("job not found")

const jobColumns = `id, queue, type, payload, status, priority, attempts, max_attempts,
	error, created_at, run_at, started_at, completed_at, locked_by, locked_at`

// Queue provides job queue operations on the jobs table
type Queue struct {
	db *store.DB
	tx *transaction.Manager
	// BaseBackoff is the delay before the first retry; it doubles per attempt
	BaseBackoff time.Duration
	now         func() time.Time
}

// NewQueue creates a new job queue
func NewQueue(db *store.DB) *Queue {
	return &Queue{
		db:          db,
		tx:          transaction.NewManager(db.DB),
		BaseBackoff: time.Minute,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (q *Queue) rebind(query string) string {
	return q.db.Dialect.Rebind(query)
}

// Enqueue adds a new job to the queue
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	_, err := q.db.ExecContext(ctx, q.rebind(`
		INSERT INTO jobs (id, queue, type, payload, status, priority,
			attempts, max_attempts, created_at, run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		job.ID, job.Queue, job.Type, string(job.Payload), job.Status, job.Priority,
		job.Attempts, job.MaxAttempts, job.CreatedAt.UTC(), job.RunAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Schedule adds a job to be executed at a specific time
func (q *Queue) Schedule(ctx context.Context, job *Job, runAt time.Time) error {
	job.RunAt = runAt.UTC()
	return q.Enqueue(ctx, job)
}

// Dequeue claims the next ready job of queueName for workerID. On postgres
// concurrent workers skip rows already locked by another transaction.
func (q *Queue) Dequeue(ctx context.Context, workerID, queueName string) (*Job, error) {
	lock := ""
	if q.db.Dialect.SupportsSkipLocked() {
		lock = "FOR UPDATE SKIP LOCKED"
	}
	pick := fmt.Sprintf(`
		SELECT id FROM jobs
		WHERE status = ? AND queue = ? AND run_at <= ?
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
		%s`, lock)

	var job *Job
	now := q.now()
	err := q.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		var id string
		if err := tx.QueryRowContext(ctx, q.rebind(pick), JobStatusPending, queueName, now).Scan(&id); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, q.rebind(`
			UPDATE jobs
			SET status = ?, locked_by = ?, locked_at = ?, started_at = ?, attempts = attempts + 1
			WHERE id = ?`),
			JobStatusRunning, workerID, now, now, id,
		)
		if err != nil {
			return err
		}

		job, err = scanJob(tx.QueryRowContext(ctx, q.rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`), id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoJobs
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	return job, nil
}

// Complete marks a job as successfully completed
func (q *Queue) Complete(ctx context.Context, jobID string) error {
	return q.finish(ctx, jobID, JobStatusCompleted, nil)
}

// Fail marks a job as failed with an error message
func (q *Queue) Fail(ctx context.Context, jobID, errMsg string) error {
	return q.finish(ctx, jobID, JobStatusFailed, &errMsg)
}

func (q *Queue) finish(ctx context.Context, jobID string, status JobStatus, errMsg *string) error {
	res, err := q.db.ExecContext(ctx, q.rebind(`
		UPDATE jobs
		SET status = ?, error = ?, completed_at = ?, locked_by = NULL, locked_at = NULL
		WHERE id = ?`),
		status, errMsg, q.now(), jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job %s: %w", status, err)
	}
	return expectRow(res, jobID)
}

// Retry reschedules a running job with exponential backoff, keeping errMsg.
// It returns ErrJobNotFound once the job has used all its attempts.
func (q *Queue) Retry(ctx context.Context, job *Job, errMsg string) (time.Time, error) {
	shift := job.Attempts - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 10 {
		shift = 10
	}
	runAt := q.now().Add(q.BaseBackoff * time.Duration(1<<shift))

	res, err := q.db.ExecContext(ctx, q.rebind(`
		UPDATE jobs
		SET status = ?, run_at = ?, error = ?, locked_by = NULL, locked_at = NULL
		WHERE id = ? AND attempts < max_attempts`),
		JobStatusPending, runAt, errMsg, job.ID,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to retry job: %w", err)
	}
	return runAt, expectRow(res, job.ID)
}

// Cancel marks a pending job as cancelled
func (q *Queue) Cancel(ctx context.Context, jobID string) error {
	res, err := q.db.ExecContext(ctx, q.rebind(`
		UPDATE jobs SET status = ?, completed_at = ?
		WHERE id = ? AND status = ?`),
		JobStatusCancelled, q.now(), jobID, JobStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	return expectRow(res, jobID)
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	job, err := scanJob(q.db.QueryRowContext(ctx,
		q.rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`), jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// PendingOfType reports whether a job of jobType is waiting in queueName
func (q *Queue) PendingOfType(ctx context.Context, queueName, jobType string) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx, q.rebind(`
		SELECT COUNT(*) FROM jobs WHERE queue = ? AND type = ? AND status = ?`),
		queueName, jobType, JobStatusPending,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to count jobs: %w", err)
	}
	return n > 0, nil
}

// PurgeFinished removes completed and cancelled jobs older than olderThan
func (q *Queue) PurgeFinished(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(`
		DELETE FROM jobs WHERE status IN (?, ?) AND completed_at < ?`),
		JobStatusCompleted, JobStatusCancelled, q.now().Add(-olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}
	return res.RowsAffected()
}

// QueueStats holds statistics for a job queue
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Running   int    `json:"running"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Cancelled int    `json:"cancelled"`
}

// Stats returns job counts per status for a queue
func (q *Queue) Stats(ctx context.Context, queueName string) (*QueueStats, error) {
	rows, err := q.db.QueryContext(ctx, q.rebind(`
		SELECT status, COUNT(*) FROM jobs WHERE queue = ? GROUP BY status`), queueName)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}
	defer rows.Close()

	stats := &QueueStats{Queue: queueName}
	for rows.Next() {
		var status JobStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan queue stats: %w", err)
		}
		switch status {
		case JobStatusPending:
			stats.Pending = n
		case JobStatusRunning:
			stats.Running = n
		case JobStatusCompleted:
			stats.Completed = n
		case JobStatusFailed:
			stats.Failed = n
		case JobStatusCancelled:
			stats.Cancelled = n
		}
	}
	return stats, rows.Err()
}

func scanJob(row interface{ Scan(...interface{}) error }) (*Job, error) {
	var job Job
	var payload string
	err := row.Scan(
		&job.ID, &job.Queue, &job.Type, &payload, &job.Status, &job.Priority,
		&job.Attempts, &job.MaxAttempts, &job.Error, &job.CreatedAt, &job.RunAt,
		&job.StartedAt, &job.CompletedAt, &job.LockedBy, &job.LockedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Payload = []byte(payload)
	return &job, nil
}

func expectRow(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return nil
}
