package store

import (
	"fmt"
	"strings"
)

// SQLiteDialect implements Dialect for SQLite databases.
type SQLiteDialect struct{}

// DriverName returns "sqlite" for the modernc.org/sqlite driver.
func (d *SQLiteDialect) DriverName() string {
	return "sqlite"
}

// Placeholder returns "?" (SQLite ignores position).
func (d *SQLiteDialect) Placeholder(position int) string {
	return "?"
}

// InitStatements returns the PRAGMA statements run at open time.
func (d *SQLiteDialect) InitStatements() []string {
	return []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
}

// UpsertClause returns the ON CONFLICT clause for SQLite upserts.
func (d *SQLiteDialect) UpsertClause(keyColumn string, updateColumns ...string) string {
	sets := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		sets[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}
	return fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET %s", keyColumn, strings.Join(sets, ", "))
}
