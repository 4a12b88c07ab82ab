package store

import (
	"fmt"
	"strings"
)

// PostgresDialect implements Dialect for PostgreSQL databases.
type PostgresDialect struct{}

// DriverName returns "postgres" for the lib/pq driver.
func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

// Placeholder returns "$N" (PostgreSQL uses numbered placeholders).
func (d *PostgresDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

// InitStatements returns nothing; PostgreSQL needs no per-connection setup.
func (d *PostgresDialect) InitStatements() []string {
	return nil
}

// UpsertClause returns the ON CONFLICT clause for PostgreSQL upserts.
func (d *PostgresDialect) UpsertClause(keyColumn string, updateColumns ...string) string {
	sets := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		sets[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", keyColumn, strings.Join(sets, ", "))
}
