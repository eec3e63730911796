package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLiteDialect reads metadata through the pragma table-valued functions.
type SQLiteDialect struct{}

func (d *SQLiteDialect) GetTablesQuery(schema string) string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND ? IS NOT NULL ORDER BY name`
}

// GetColumnsQuery treats INTEGER PRIMARY KEY (the rowid alias) as auto-increment.
func (d *SQLiteDialect) GetColumnsQuery(schema string) string {
	return `SELECT m.name, p.name, p.type, p.type, NULL,
    CASE WHEN p."notnull" = 0 THEN 'YES' ELSE 'NO' END,
    CASE WHEN p.pk > 0 THEN 'PRI' ELSE '' END,
    CASE WHEN p.pk = 1 AND lower(p.type) = 'integer' THEN 'auto_increment' ELSE '' END,
    NULL, NULL
FROM sqlite_master m, pragma_table_info(m.name) p
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%' AND ? IS NOT NULL
ORDER BY m.name, p.cid`
}

func (d *SQLiteDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT m.name, '', f."from", f."table", f."to"
FROM sqlite_master m, pragma_foreign_key_list(m.name) f
WHERE m.type = 'table' AND ? IS NOT NULL`
}

func (d *SQLiteDialect) BeforePump(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON")
	return err
}

func (d *SQLiteDialect) AfterPump(ctx context.Context, tx *sql.Tx) error {
	return nil
}

func (d *SQLiteDialect) BeforeTable(ctx context.Context, tx *sql.Tx, tableName string, identityInsert bool) error {
	return nil
}

func (d *SQLiteDialect) AfterTable(ctx context.Context, tx *sql.Tx, tableName string, identityInsert bool) error {
	return nil
}

func (d *SQLiteDialect) SelectQuery(table string, cols []string, where []string) string {
	return selectQuery(table, cols, where, d.Placeholder)
}

func (d *SQLiteDialect) CountQuery(table string, where []string) string {
	return countQuery(table, where, d.Placeholder)
}

func (d *SQLiteDialect) BulkInsertQuery(table string, cols []string, rows int) string {
	return valuesInsert("INSERT OR IGNORE INTO", table, cols, rows, "", d.Placeholder)
}

func (d *SQLiteDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", table)
}

func (d *SQLiteDialect) MaxQuery(table, column string) string {
	return maxQuery(table, column)
}

// SequenceResetQueries only affects AUTOINCREMENT tables; rowid tables
// always continue from the current maximum.
func (d *SQLiteDialect) SequenceResetQueries(table, column string, max int64) []string {
	return []string{fmt.Sprintf("UPDATE sqlite_sequence SET seq = %d WHERE name = '%s'", max, table)}
}

func (d *SQLiteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SQLiteDialect) MaxRowsPerInsert(cols int) int {
	return rowsFor(cols, 999, 0)
}

func (d *SQLiteDialect) NormalizeType(sqlType string) string {
	return strings.ToLower(sqlType)
}

func (d *SQLiteDialect) GetSchemaName(input string) string {
	if input == "" {
		return "main"
	}
	return input
}

func (d *SQLiteDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}
