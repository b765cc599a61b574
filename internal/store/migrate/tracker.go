// Package migrate applies and rolls back versioned schema migrations
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/habitnation/habitnation/internal/store/dialect"
)

// Migration is one versioned schema change. Applied and AppliedAt are only
// populated on values read back from the history table.
type Migration struct {
	Version   int64
	Name      string
	Up        string
	Down      string
	Applied   bool
	AppliedAt time.Time
}

// history reads and writes the schema_migrations table. The down SQL is
// stored with each row so a rollback works even after the embedded
// migration set has moved on.
type history struct {
	db      *sql.DB
	dialect dialect.Dialect
}

const historyColumns = "version, name, applied_at, down_sql"

func (h *history) ensure(ctx context.Context) error {
	ddl := "CREATE TABLE IF NOT EXISTS schema_migrations (" +
		"version BIGINT PRIMARY KEY, " +
		"name VARCHAR(255) NOT NULL, " +
		"applied_at " + h.dialect.Timestamp() + " NOT NULL, " +
		"down_sql TEXT)"
	if _, err := h.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(row rowScanner) (*Migration, error) {
	var (
		m    = Migration{Applied: true}
		down sql.NullString
	)
	if err := row.Scan(&m.Version, &m.Name, &m.AppliedAt, &down); err != nil {
		return nil, err
	}
	m.Down = down.String
	return &m, nil
}

// applied lists the recorded migrations, oldest first
func (h *history) applied(ctx context.Context) ([]*Migration, error) {
	rows, err := h.db.QueryContext(ctx,
		"SELECT "+historyColumns+" FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	var out []*Migration
	for rows.Next() {
		m, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// latest returns the newest recorded migration or nil on an empty history
func (h *history) latest(ctx context.Context) (*Migration, error) {
	row := h.db.QueryRowContext(ctx,
		"SELECT "+historyColumns+" FROM schema_migrations ORDER BY version DESC LIMIT 1")
	m, err := scanHistory(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read latest migration: %w", err)
	}
	return m, nil
}

func (h *history) record(ctx context.Context, tx *sql.Tx, m *Migration) error {
	_, err := tx.ExecContext(ctx,
		h.dialect.Rebind("INSERT INTO schema_migrations ("+historyColumns+") VALUES (?, ?, ?, ?)"),
		m.Version, m.Name, time.Now().UTC(), m.Down)
	if err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	return nil
}

func (h *history) remove(ctx context.Context, tx *sql.Tx, version int64) error {
	res, err := tx.ExecContext(ctx,
		h.dialect.Rebind("DELETE FROM schema_migrations WHERE version = ?"), version)
	if err != nil {
		return fmt.Errorf("remove migration %d: %w", version, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("migration %d is not recorded", version)
	}
	return nil
}

// pending filters all down to the migrations missing from the history,
// preserving the order of all
func (h *history) pending(ctx context.Context, all []*Migration) ([]*Migration, error) {
	done, err := h.applied(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(done))
	for _, m := range done {
		seen[m.Version] = struct{}{}
	}
	var out []*Migration
	for _, m := range all {
		if _, ok := seen[m.Version]; !ok {
			out = append(out, m)
		}
	}
	return out, nil
}
