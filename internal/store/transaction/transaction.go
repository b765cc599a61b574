// Package transaction runs units of work inside database transactions
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/habitnation/habitnation/internal/store/dialect"
)

// ErrRetriesExhausted wraps the last contention error once the policy
// gives up
var ErrRetriesExhausted = errors.New("transaction retries exhausted")

// Policy bounds how often a contended transaction is attempted. The wait
// before attempt n+1 is Backoff << n.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultPolicy suits the short completion transactions: three attempts
// spread over roughly 150ms.
var DefaultPolicy = Policy{Attempts: 3, Backoff: 50 * time.Millisecond}

// Manager begins, commits and rolls back transactions on one pool
type Manager struct {
	db     *sql.DB
	policy Policy
}

func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db, policy: DefaultPolicy}
}

// WithPolicy returns a copy of m that retries according to p
func (m *Manager) WithPolicy(p Policy) *Manager {
	p.Attempts = max(p.Attempts, 1)
	return &Manager{db: m.db, policy: p}
}

// WithTransaction commits when fn returns nil and rolls back otherwise,
// including when fn panics.
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbErr := tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// WithRetry is WithTransaction that starts over when the database reports
// a deadlock, a serialization failure or a busy sqlite file. Any other
// error is returned straight away.
func (m *Manager) WithRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var last error
	for attempt := range m.policy.Attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry transaction: %w", ctx.Err())
			case <-time.After(m.policy.Backoff << (attempt - 1)):
			}
		}
		last = m.WithTransaction(ctx, fn)
		if !dialect.Retryable(last) {
			return last
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, m.policy.Attempts, last)
}
