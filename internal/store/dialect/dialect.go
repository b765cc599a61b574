// Package dialect papers over the differences between the SQL databases
// HabitNation runs on: placeholder syntax, column types and driver errors.
package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies a SQL flavour
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// FromDriver maps a database/sql driver name to its dialect
func FromDriver(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return Postgres, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Rebind rewrites ? placeholders into the dialect's native form. Question
// marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Timestamp is the column type used for instants
func (d Dialect) Timestamp() string {
	if d == Postgres {
		return "TIMESTAMPTZ"
	}
	return "TIMESTAMP"
}

// ForUpdate is the row-lock suffix for a SELECT inside a transaction. SQLite
// serializes writers on its single connection and has no row locks.
func (d Dialect) ForUpdate() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// SupportsSkipLocked reports whether SELECT ... FOR UPDATE SKIP LOCKED is available
func (d Dialect) SupportsSkipLocked() bool {
	return d == Postgres
}
