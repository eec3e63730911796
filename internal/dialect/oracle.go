package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type OracleDialect struct{}

// Oracle metadata comes from the current user's dictionary views; the schema
// bind argument is consumed by a dummy predicate.

func (d *OracleDialect) GetTablesQuery(schema string) string {
	return `SELECT TABLE_NAME FROM USER_TABLES WHERE :1 IS NOT NULL`
}

func (d *OracleDialect) GetColumnsQuery(schema string) string {
	return `
SELECT
    t.TABLE_NAME,
    t.COLUMN_NAME,
    CASE
        WHEN t.DATA_TYPE = 'NUMBER' AND COALESCE(t.DATA_SCALE, 0) > 0 THEN 'DECIMAL'
        WHEN t.DATA_TYPE = 'NUMBER' THEN 'INTEGER'
        ELSE t.DATA_TYPE
    END,
    t.DATA_TYPE,
    COALESCE(t.DATA_PRECISION, t.DATA_LENGTH),
    t.NULLABLE,
    CASE WHEN p.CONSTRAINT_NAME IS NOT NULL THEN 'PRI' ELSE '' END,
    CASE WHEN t.IDENTITY_COLUMN = 'YES' THEN 'identity' ELSE '' END,
    CASE WHEN u.CONSTRAINT_NAME IS NOT NULL THEN 'UNIQUE' ELSE '' END,
    c.COMMENTS
FROM USER_TAB_COLUMNS t
LEFT JOIN (
    SELECT cc.TABLE_NAME, cc.COLUMN_NAME, cc.CONSTRAINT_NAME
    FROM USER_CONS_COLUMNS cc
    JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
    WHERE uc.CONSTRAINT_TYPE = 'P'
) p ON t.TABLE_NAME = p.TABLE_NAME AND t.COLUMN_NAME = p.COLUMN_NAME
LEFT JOIN (
    SELECT cc.TABLE_NAME, cc.COLUMN_NAME, cc.CONSTRAINT_NAME
    FROM USER_CONS_COLUMNS cc
    JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
    WHERE uc.CONSTRAINT_TYPE = 'U'
) u ON t.TABLE_NAME = u.TABLE_NAME AND t.COLUMN_NAME = u.COLUMN_NAME
LEFT JOIN USER_COL_COMMENTS c ON t.TABLE_NAME = c.TABLE_NAME AND t.COLUMN_NAME = c.COLUMN_NAME
WHERE :1 IS NOT NULL
ORDER BY t.TABLE_NAME, t.COLUMN_ID`
}

func (d *OracleDialect) GetForeignKeysQuery(schema string) string {
	return `
SELECT c.TABLE_NAME, c.CONSTRAINT_NAME, cc.COLUMN_NAME, r.TABLE_NAME, rcc.COLUMN_NAME
FROM USER_CONSTRAINTS c
JOIN USER_CONS_COLUMNS cc ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME AND c.OWNER = cc.OWNER
JOIN USER_CONSTRAINTS r ON c.R_CONSTRAINT_NAME = r.CONSTRAINT_NAME AND c.R_OWNER = r.OWNER
JOIN USER_CONS_COLUMNS rcc ON r.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME AND r.OWNER = rcc.OWNER AND cc.POSITION = rcc.POSITION
WHERE c.CONSTRAINT_TYPE = 'R' AND :1 IS NOT NULL`
}

type oracleConstraint struct{ table, name string }

func (d *OracleDialect) foreignKeys(ctx context.Context, tx *sql.Tx, status string) ([]oracleConstraint, error) {
	rows, err := tx.QueryContext(ctx, "SELECT TABLE_NAME, CONSTRAINT_NAME FROM USER_CONSTRAINTS WHERE CONSTRAINT_TYPE = 'R' AND STATUS = :1", status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []oracleConstraint
	for rows.Next() {
		var c oracleConstraint
		if err := rows.Scan(&c.table, &c.name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// BeforePump disables foreign keys. DDL commits implicitly in Oracle.
func (d *OracleDialect) BeforePump(ctx context.Context, tx *sql.Tx) error {
	constraints, err := d.foreignKeys(ctx, tx, "ENABLED")
	if err != nil {
		return err
	}
	for _, c := range constraints {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s DISABLE CONSTRAINT %s", c.table, c.name)); err != nil {
			return fmt.Errorf("failed to disable constraint %s on %s: %w", c.name, c.table, err)
		}
	}
	return nil
}

func (d *OracleDialect) AfterPump(ctx context.Context, tx *sql.Tx) error {
	constraints, err := d.foreignKeys(ctx, tx, "DISABLED")
	if err != nil {
		return err
	}
	for _, c := range constraints {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ENABLE CONSTRAINT %s", c.table, c.name)); err != nil {
			return fmt.Errorf("failed to enable constraint %s on %s: %w", c.name, c.table, err)
		}
	}
	return nil
}

func (d *OracleDialect) BeforeTable(ctx context.Context, tx *sql.Tx, tableName string, identityInsert bool) error {
	return nil
}

func (d *OracleDialect) AfterTable(ctx context.Context, tx *sql.Tx, tableName string, identityInsert bool) error {
	return nil
}

func (d *OracleDialect) SelectQuery(table string, cols []string, where []string) string {
	return selectQuery(table, cols, where, d.Placeholder)
}

func (d *OracleDialect) CountQuery(table string, where []string) string {
	return countQuery(table, where, d.Placeholder)
}

// BulkInsertQuery uses INSERT ALL, Oracle has no multi-row VALUES.
func (d *OracleDialect) BulkInsertQuery(table string, cols []string, rows int) string {
	var sb strings.Builder
	sb.WriteString("INSERT ALL")
	colList := strings.Join(cols, ", ")
	for r := 0; r < rows; r++ {
		fmt.Fprintf(&sb, " INTO %s (%s) VALUES (%s)", table, colList, GeneratePlaceholders(r*len(cols), len(cols), d.Placeholder))
	}
	sb.WriteString(" SELECT 1 FROM DUAL")
	return sb.String()
}

func (d *OracleDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", table)
}

func (d *OracleDialect) MaxQuery(table, column string) string {
	return maxQuery(table, column)
}

// SequenceResetQueries restarts the identity after the current maximum
// (START WITH LIMIT VALUE). MODIFY restates the generation type, so the
// block reads it back first to keep ALWAYS, BY DEFAULT and ON NULL intact.
func (d *OracleDialect) SequenceResetQueries(table, column string, max int64) []string {
	return []string{fmt.Sprintf(oracleIdentityReset, table, column, table, column)}
}

const oracleIdentityReset = `BEGIN
  FOR c IN (SELECT i.GENERATION_TYPE, t.DEFAULT_ON_NULL FROM USER_TAB_IDENTITY_COLUMNS i
            JOIN USER_TAB_COLUMNS t ON t.TABLE_NAME = i.TABLE_NAME AND t.COLUMN_NAME = i.COLUMN_NAME
            WHERE i.TABLE_NAME = UPPER('%s') AND i.COLUMN_NAME = UPPER('%s')) LOOP
    EXECUTE IMMEDIATE 'ALTER TABLE %s MODIFY %s GENERATED ' || c.GENERATION_TYPE ||
      CASE WHEN c.DEFAULT_ON_NULL = 'YES' THEN ' ON NULL' END || ' AS IDENTITY (START WITH LIMIT VALUE)';
  END LOOP;
END;`

func (d *OracleDialect) Placeholder(index int) string {
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) MaxRowsPerInsert(cols int) int {
	return rowsFor(cols, 65535, 500)
}

func (d *OracleDialect) NormalizeType(sqlType string) string {
	s := strings.ToLower(sqlType)
	if strings.Contains(s, "char") || strings.Contains(s, "clob") {
		return "string"
	}
	if strings.Contains(s, "int") || strings.Contains(s, "number") || strings.Contains(s, "float") {
		return "integer"
	}
	if strings.Contains(s, "date") || strings.Contains(s, "time") {
		return "datetime"
	}
	return s
}

// GetSchemaName never returns "", which Oracle would bind as NULL.
func (d *OracleDialect) GetSchemaName(input string) string {
	if input == "" {
		return "USER"
	}
	return input
}

func (d *OracleDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("SELECT * FROM (%s) WHERE ROWNUM <= %d", query, limit)
}
