package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type PostgresDialect struct{}

func (d *PostgresDialect) GetTablesQuery(schema string) string {
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = $1 AND TABLE_TYPE = 'BASE TABLE'`
}

// GetColumnsQuery reports column_default in the EXTRA slot so serial columns
// ("nextval(...)") are detected as auto-increment.
func (d *PostgresDialect) GetColumnsQuery(schema string) string {
	return `SELECT 
    c.table_name, 
    c.column_name, 
    c.udt_name, 
    c.data_type, 
    c.character_maximum_length, 
    c.is_nullable, 
    (SELECT 'PRI' FROM information_schema.table_constraints tc 
     JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name 
     WHERE tc.constraint_type = 'PRIMARY KEY' 
     AND kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name LIMIT 1) AS COLUMN_KEY,
    CASE WHEN c.is_identity = 'YES' THEN 'identity' ELSE c.column_default END, 
    (SELECT 'UNIQUE' FROM information_schema.table_constraints tc 
     JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name 
     WHERE tc.constraint_type = 'UNIQUE' 
     AND kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name LIMIT 1) AS IS_UNIQUE,
    NULL AS COMMENT
FROM information_schema.columns c
WHERE c.table_schema = $1 
ORDER BY c.table_name, c.ordinal_position`
}

func (d *PostgresDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT kcu.table_name, kcu.constraint_name, kcu.column_name, ccu.table_name AS referenced_table_name, ccu.column_name AS referenced_column_name FROM information_schema.key_column_usage kcu JOIN information_schema.constraint_column_usage ccu ON kcu.constraint_name = ccu.constraint_name JOIN information_schema.table_constraints tc ON kcu.constraint_name = tc.constraint_name WHERE kcu.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY'`
}

func (d *PostgresDialect) BeforePump(ctx context.Context, tx *sql.Tx) error {
	// only effective for DEFERRABLE foreign keys
	_, err := tx.ExecContext(ctx, "SET CONSTRAINTS ALL DEFERRED")
	return err
}

func (d *PostgresDialect) AfterPump(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "SET CONSTRAINTS ALL IMMEDIATE")
	return err
}

func (d *PostgresDialect) BeforeTable(ctx context.Context, tx *sql.Tx, tableName string, identityInsert bool) error {
	return nil
}

func (d *PostgresDialect) AfterTable(ctx context.Context, tx *sql.Tx, tableName string, identityInsert bool) error {
	return nil
}

func (d *PostgresDialect) SelectQuery(table string, cols []string, where []string) string {
	return selectQuery(table, cols, where, d.Placeholder)
}

func (d *PostgresDialect) CountQuery(table string, where []string) string {
	return countQuery(table, where, d.Placeholder)
}

func (d *PostgresDialect) BulkInsertQuery(table string, cols []string, rows int) string {
	return valuesInsert("INSERT INTO", table, cols, rows, " ON CONFLICT DO NOTHING", d.Placeholder)
}

func (d *PostgresDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)
}

func (d *PostgresDialect) MaxQuery(table, column string) string {
	return maxQuery(table, column)
}

// SequenceResetQueries mirrors the setval form Django emits for sequence resets.
func (d *PostgresDialect) SequenceResetQueries(table, column string, max int64) []string {
	next, called := max, true
	if max < 1 {
		next, called = 1, false
	}
	return []string{fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', '%s'), %d, %t)", table, column, next, called)}
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) MaxRowsPerInsert(cols int) int {
	return rowsFor(cols, 65535, 0)
}

func (d *PostgresDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(sqlType)
	switch t {
	case "int4", "int2":
		return "int"
	case "int8":
		return "bigint"
	case "float4":
		return "float"
	case "float8":
		return "double"
	case "bpchar":
		return "char"
	default:
		return t
	}
}

func (d *PostgresDialect) GetSchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}

func (d *PostgresDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}
