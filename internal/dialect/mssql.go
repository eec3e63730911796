package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type MSSQLDialect struct{}

// go-mssqldb binds @p1, @p2 ... reliably for both Exec and Query.

func (d *MSSQLDialect) GetTablesQuery(schema string) string {
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *MSSQLDialect) GetColumnsQuery(schema string) string {
	return `
		SELECT 
			c.TABLE_NAME, 
			c.COLUMN_NAME, 
			c.DATA_TYPE, 
			c.DATA_TYPE, 
			c.CHARACTER_MAXIMUM_LENGTH, 
			c.IS_NULLABLE, 
			CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 'PRIMARY' ELSE '' END AS COLUMN_KEY,
			CASE 
				WHEN COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity') = 1 THEN 'identity'
				ELSE c.COLUMN_DEFAULT 
			END AS COLUMN_DEFAULT,
			CASE WHEN uq.COLUMN_NAME IS NOT NULL THEN 'UNIQUE' ELSE '' END AS IS_UNIQUE,
			CAST(ep.value AS NVARCHAR(MAX)) AS COMMENT
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_SCHEMA = @p1
		) pk ON c.TABLE_NAME = pk.TABLE_NAME AND c.COLUMN_NAME = pk.COLUMN_NAME
		LEFT JOIN (
			SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			WHERE tc.CONSTRAINT_TYPE = 'UNIQUE' AND tc.TABLE_SCHEMA = @p1
		) uq ON c.TABLE_NAME = uq.TABLE_NAME AND c.COLUMN_NAME = uq.COLUMN_NAME
		LEFT JOIN sys.extended_properties ep 
			ON ep.major_id = OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME) 
			AND ep.minor_id = c.ORDINAL_POSITION 
			AND ep.name = 'MS_Description'
		WHERE c.TABLE_SCHEMA = @p1 
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION
	`
}

func (d *MSSQLDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT KCU1.TABLE_NAME, KCU1.CONSTRAINT_NAME, KCU1.COLUMN_NAME, KCU2.TABLE_NAME AS REF_TABLE, KCU2.COLUMN_NAME AS REF_COLUMN FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS RC JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU1 ON RC.CONSTRAINT_NAME = KCU1.CONSTRAINT_NAME JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU2 ON RC.UNIQUE_CONSTRAINT_NAME = KCU2.CONSTRAINT_NAME WHERE KCU1.TABLE_SCHEMA = @p1`
}

func (d *MSSQLDialect) baseTables(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = 'dbo'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (d *MSSQLDialect) BeforePump(ctx context.Context, tx *sql.Tx) error {
	tables, err := d.baseTables(ctx, tx)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s NOCHECK CONSTRAINT all", t)); err != nil {
			return fmt.Errorf("failed to disable constraints on %s: %w", t, err)
		}
	}
	return nil
}

func (d *MSSQLDialect) AfterPump(ctx context.Context, tx *sql.Tx) error {
	tables, err := d.baseTables(ctx, tx)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s WITH CHECK CHECK CONSTRAINT all", t)); err != nil {
			return fmt.Errorf("failed to enable constraints on %s: %w", t, err)
		}
	}
	return nil
}

// BeforeTable allows explicit values in the identity column for this session.
func (d *MSSQLDialect) BeforeTable(ctx context.Context, tx *sql.Tx, tableName string, identityInsert bool) error {
	if !identityInsert {
		return nil
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s ON", tableName))
	return err
}

func (d *MSSQLDialect) AfterTable(ctx context.Context, tx *sql.Tx, tableName string, identityInsert bool) error {
	if !identityInsert {
		return nil
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s OFF", tableName))
	return err
}

func (d *MSSQLDialect) SelectQuery(table string, cols []string, where []string) string {
	return selectQuery(table, cols, where, d.Placeholder)
}

func (d *MSSQLDialect) CountQuery(table string, where []string) string {
	return countQuery(table, where, d.Placeholder)
}

func (d *MSSQLDialect) BulkInsertQuery(table string, cols []string, rows int) string {
	return valuesInsert("INSERT INTO", table, cols, rows, "", d.Placeholder)
}

func (d *MSSQLDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", table)
}

func (d *MSSQLDialect) MaxQuery(table, column string) string {
	return maxQuery(table, column)
}

func (d *MSSQLDialect) SequenceResetQueries(table, column string, max int64) []string {
	return []string{fmt.Sprintf("DBCC CHECKIDENT ('%s', RESEED, %d)", table, max)}
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

// MaxRowsPerInsert respects the 2100 parameter and 1000 row constructor limits.
func (d *MSSQLDialect) MaxRowsPerInsert(cols int) int {
	return rowsFor(cols, 2000, 1000)
}

func (d *MSSQLDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(sqlType)
	switch t {
	case "nvarchar", "nchar", "text", "ntext":
		return "varchar"
	case "bit":
		return "boolean"
	case "decimal", "numeric", "money", "smallmoney":
		return "decimal"
	case "float", "real":
		return "float"
	case "datetime", "datetime2", "smalldatetime", "date":
		return "datetime"
	case "image", "binary", "varbinary":
		return "blob"
	default:
		return t
	}
}

func (d *MSSQLDialect) GetSchemaName(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}

func (d *MSSQLDialect) GetLimitRowQuery(query string, limit int) string {
	trimmed := strings.TrimSpace(query)
	if strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return strings.Replace(query, "SELECT", fmt.Sprintf("SELECT TOP %d", limit), 1)
	}
	return query
}
