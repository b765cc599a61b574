package dialect

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	moderncsqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// UniqueViolation reports whether err is a unique constraint violation and
// returns whatever the driver says about the offending constraint: the
// constraint name for postgres, "table.column" for sqlite.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return pqErr.Constraint, true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return strings.TrimPrefix(liteErr.Error(), "UNIQUE constraint failed: "), true
		}
	}

	// The pure Go driver only reports the extended code and the message
	var pureErr *moderncsqlite.Error
	if errors.As(err, &pureErr) {
		switch pureErr.Code() {
		case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return pureErr.Error(), true
		}
	}

	return "", false
}

// Retryable reports whether a transaction failed because of contention and
// can safely be run again: postgres deadlocks and serialization failures,
// and a busy or locked sqlite database.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDeadlockDetected || pgErr.Code == pgSerializationFailure
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgDeadlockDetected || string(pqErr.Code) == pgSerializationFailure
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}

	var pureErr *moderncsqlite.Error
	if errors.As(err, &pureErr) {
		primary := pureErr.Code() & 0xff
		return primary == sqlitelib.SQLITE_BUSY || primary == sqlitelib.SQLITE_LOCKED
	}

	// Drivers that flatten errors into strings
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{pgDeadlockDetected, pgSerializationFailure, "deadlock detected", "could not serialize access"} {
		if strings.Contains(msg, strings.ToLower(fragment)) {
			return true
		}
	}
	return false
}
