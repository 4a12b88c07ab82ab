package store

import "strings"

// Dialect abstracts SQL syntax differences between SQLite and PostgreSQL.
type Dialect interface {
	// DriverName returns the driver name for sql.Open().
	DriverName() string

	// Placeholder returns the parameter placeholder for the given position
	// (1-indexed). SQLite: "?", PostgreSQL: "$1", "$2", ...
	Placeholder(position int) string

	// InitStatements returns database-specific statements run at open time.
	InitStatements() []string

	// UpsertClause returns the ON CONFLICT clause updating the given columns
	// when the key column collides.
	UpsertClause(keyColumn string, updateColumns ...string) string
}

// DialectType identifies the database dialect.
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

// NewDialect creates a Dialect for the given type.
func NewDialect(dialectType DialectType) Dialect {
	switch dialectType {
	case DialectPostgres:
		return &PostgresDialect{}
	default:
		return &SQLiteDialect{}
	}
}

// rebind converts a query written with ? placeholders into the dialect's
// placeholder style. SQLite queries pass through unchanged.
func rebind(d Dialect, query string) string {
	if _, ok := d.(*SQLiteDialect); ok {
		return query
	}

	var result strings.Builder
	position := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result.WriteString(d.Placeholder(position))
			position++
		} else {
			result.WriteByte(query[i])
		}
	}
	return result.String()
}
