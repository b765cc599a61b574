package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/store/dialect"
	"github.com/habitnation/habitnation/internal/store/transaction"
)

// ErrNothingToRollback is returned by MigrateDown when no migration is applied
var ErrNothingToRollback = errors.New("no migrations to rollback")

// Runner executes migrations with transaction support
type Runner struct {
	tx      *transaction.Manager
	history *history
	logger  *zap.Logger
}

// NewRunner creates a new migration runner
func NewRunner(db *sql.DB, d dialect.Dialect, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		tx:      transaction.NewManager(db),
		history: &history{db: db, dialect: d},
		logger:  logger,
	}
}

// MigrateUp applies all pending migrations in version order and returns
// how many were applied
func (r *Runner) MigrateUp(ctx context.Context, migrations []*Migration) (int, error) {
	if err := r.history.ensure(ctx); err != nil {
		return 0, err
	}

	pending, err := r.history.pending(ctx, sorted(migrations))
	if err != nil {
		return 0, fmt.Errorf("failed to get pending migrations: %w", err)
	}

	if len(pending) == 0 {
		r.logger.Debug("no pending migrations")
		return 0, nil
	}

	for _, migration := range pending {
		if err := r.applyMigration(ctx, migration); err != nil {
			return 0, fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}
	}

	r.logger.Info("applied migrations", zap.Int("count", len(pending)))
	return len(pending), nil
}

// MigrateDown rolls back the last applied migration
func (r *Runner) MigrateDown(ctx context.Context) (*Migration, error) {
	if err := r.history.ensure(ctx); err != nil {
		return nil, err
	}

	last, err := r.history.latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get last migration: %w", err)
	}
	if last == nil {
		return nil, ErrNothingToRollback
	}
	if last.Down == "" {
		return nil, fmt.Errorf("migration %s has no down migration", last.Name)
	}

	if err := r.rollbackMigration(ctx, last); err != nil {
		return nil, fmt.Errorf("rollback failed: %w", err)
	}
	return last, nil
}

// applyMigration applies a single migration in a transaction
func (r *Runner) applyMigration(ctx context.Context, migration *Migration) error {
	start := time.Now()

	if migration.Up == "" {
		return fmt.Errorf("migration has no up SQL")
	}

	err := r.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}
		return r.history.record(ctx, tx, migration)
	})
	if err != nil {
		return err
	}

	r.logger.Info("applied migration",
		zap.Int64("version", migration.Version),
		zap.String("name", migration.Name),
		zap.Duration("took", time.Since(start)))
	return nil
}

// rollbackMigration rolls back a single migration in a transaction
func (r *Runner) rollbackMigration(ctx context.Context, migration *Migration) error {
	start := time.Now()

	err := r.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migration.Down); err != nil {
			return fmt.Errorf("failed to execute rollback SQL: %w", err)
		}
		return r.history.remove(ctx, tx, migration.Version)
	})
	if err != nil {
		return err
	}

	r.logger.Info("rolled back migration",
		zap.Int64("version", migration.Version),
		zap.String("name", migration.Name),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Status returns the current migration status
func (r *Runner) Status(ctx context.Context, allMigrations []*Migration) (*MigrationStatus, error) {
	if err := r.history.ensure(ctx); err != nil {
		return nil, err
	}

	applied, err := r.history.applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	pending, err := r.history.pending(ctx, sorted(allMigrations))
	if err != nil {
		return nil, fmt.Errorf("failed to get pending migrations: %w", err)
	}

	var lastApplied *Migration
	if len(applied) > 0 {
		lastApplied = applied[len(applied)-1]
	}

	return &MigrationStatus{
		Total:       len(allMigrations),
		Applied:     applied,
		Pending:     pending,
		LastApplied: lastApplied,
	}, nil
}

// MigrationStatus represents the current state of migrations
type MigrationStatus struct {
	Total       int
	Applied     []*Migration
	Pending     []*Migration
	LastApplied *Migration
}

// Summary returns a human-readable summary
func (s *MigrationStatus) Summary() string {
	return fmt.Sprintf("Total: %d migrations (%d applied, %d pending)",
		s.Total,
		len(s.Applied),
		len(s.Pending))
}

func sorted(migrations []*Migration) []*Migration {
	out := make([]*Migration, len(migrations))
	copy(out, migrations)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}
