package dialect

import (
	"context"
	"database/sql"
	"fmt"
)

type MysqlDialect struct{}

func (d *MysqlDialect) GetTablesQuery(schema string) string {
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *MysqlDialect) GetColumnsQuery(schema string) string {
	return `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, CHARACTER_MAXIMUM_LENGTH, IS_NULLABLE, COLUMN_KEY, EXTRA, IF(COLUMN_KEY='UNI', 'UNIQUE', NULL) AS IS_UNIQUE, COLUMN_COMMENT FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? ORDER BY TABLE_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT TABLE_NAME, CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME IS NOT NULL`
}

func (d *MysqlDialect) BeforePump(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0")
	return err
}

func (d *MysqlDialect) AfterPump(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")
	return err
}

func (d *MysqlDialect) BeforeTable(ctx context.Context, tx *sql.Tx, tableName string, identityInsert bool) error {
	return nil
}

func (d *MysqlDialect) AfterTable(ctx context.Context, tx *sql.Tx, tableName string, identityInsert bool) error {
	return nil
}

func (d *MysqlDialect) SelectQuery(table string, cols []string, where []string) string {
	return selectQuery(table, cols, where, d.Placeholder)
}

func (d *MysqlDialect) CountQuery(table string, where []string) string {
	return countQuery(table, where, d.Placeholder)
}

// BulkInsertQuery skips rows rejected by unique constraints through a no-op
// update, which affects 0 rows. Conversion and NOT NULL errors still fail,
// unlike INSERT IGNORE.
func (d *MysqlDialect) BulkInsertQuery(table string, cols []string, rows int) string {
	suffix := fmt.Sprintf(" ON DUPLICATE KEY UPDATE %s = %s", cols[0], cols[0])
	return valuesInsert("INSERT INTO", table, cols, rows, suffix, d.Placeholder)
}

func (d *MysqlDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", table)
}

func (d *MysqlDialect) MaxQuery(table, column string) string {
	return maxQuery(table, column)
}

func (d *MysqlDialect) SequenceResetQueries(table, column string, max int64) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %d", table, max+1)}
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) MaxRowsPerInsert(cols int) int {
	return rowsFor(cols, 65535, 0)
}

func (d *MysqlDialect) NormalizeType(sqlType string) string {
	return DefaultNormalizeType(sqlType)
}

func (d *MysqlDialect) GetSchemaName(input string) string {
	return DefaultGetSchemaName(input)
}

func (d *MysqlDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}
