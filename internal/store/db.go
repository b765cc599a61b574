// Package store persists users, habits, completions and achievements in a
// SQL database (PostgreSQL in production, SQLite for local runs and tests).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the cgo-free "sqlite" driver

	"github.com/habitnation/habitnation/internal/config"
	"github.com/habitnation/habitnation/internal/store/dialect"
	"github.com/habitnation/habitnation/internal/store/migrate"
	"github.com/habitnation/habitnation/internal/store/transaction"
)

// DB is a connection pool together with the SQL dialect it speaks
type DB struct {
	*sql.DB
	Dialect dialect.Dialect
}

// Open connects to the configured database and verifies the connection
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	d, err := dialect.FromDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if d == dialect.SQLite {
		// One connection keeps in-memory databases alive and avoids
		// SQLITE_BUSY between concurrent writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if d == dialect.SQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	return &DB{DB: db, Dialect: d}, nil
}

// Migrator returns a migration runner for this database
func (db *DB) Migrator(logger *zap.Logger) *migrate.Runner {
	return migrate.NewRunner(db.DB, db.Dialect, logger)
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store provides the repository operations. A Store returned by InTx runs
// every operation inside that transaction.
type Store struct {
	db *DB
	q  querier
	tx *transaction.Manager

	inTx bool
}

// New creates a store on db
func New(db *DB) *Store {
	return &Store{
		db: db,
		q:  db.DB,
		tx: transaction.NewManager(db.DB),
	}
}

// DB returns the underlying database
func (s *Store) DB() *DB {
	return s.db
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx runs fn with a store bound to a transaction, retrying on contention.
// Calls nested inside an existing transaction reuse it.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.tx.WithRetry(ctx, func(tx *sql.Tx) error {
		return fn(&Store{db: s.db, q: tx, tx: s.tx, inTx: true})
	})
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.db.Dialect.Rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.db.Dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.q.QueryRowContext(ctx, s.db.Dialect.Rebind(query), args...)
}

// expectOne turns a zero-row update or delete into ErrNotFound
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// affected reports whether a conditional update or insert touched a row
func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
