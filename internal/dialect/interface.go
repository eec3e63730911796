package dialect

import (
	"context"
	"database/sql"
)

// Dialect abstracts database-specific SQL.
type Dialect interface {
	// Metadata queries, each takes the schema name as its only bind argument.
	GetTablesQuery(schema string) string
	GetColumnsQuery(schema string) string
	GetForeignKeysQuery(schema string) string

	// Session hooks around a bulk clean.
	BeforePump(ctx context.Context, tx *sql.Tx) error
	AfterPump(ctx context.Context, tx *sql.Tx) error

	// Table hooks inside a migration transaction; identityInsert is set when
	// explicit values are written into an identity column.
	BeforeTable(ctx context.Context, tx *sql.Tx, tableName string, identityInsert bool) error
	AfterTable(ctx context.Context, tx *sql.Tx, tableName string, identityInsert bool) error

	// Query generation. where lists columns compared for equality, bound in order.
	SelectQuery(table string, cols []string, where []string) string
	CountQuery(table string, where []string) string
	BulkInsertQuery(table string, cols []string, rows int) string
	TruncateQuery(table string) string
	MaxQuery(table, column string) string
	SequenceResetQueries(table, column string, max int64) []string
	Placeholder(index int) string // ?, $1, @p1, :1
	MaxRowsPerInsert(cols int) int

	NormalizeType(sqlType string) string
	GetSchemaName(input string) string
	GetLimitRowQuery(query string, limit int) string
}
