package dialect

import (
	"fmt"
	"strings"
)

// GeneratePlaceholders returns count placeholders starting at bind index start,
// comma-separated.
func GeneratePlaceholders(start, count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(start + i)
	}
	return strings.Join(placeholders, ", ")
}

// WhereClause renders " WHERE a = ? AND b = ?" for the given columns, or "".
func WhereClause(cols []string, placeholderFunc func(int) string) string {
	if len(cols) == 0 {
		return ""
	}
	conds := make([]string, len(cols))
	for i, c := range cols {
		conds[i] = fmt.Sprintf("%s = %s", c, placeholderFunc(i))
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func selectQuery(table string, cols, where []string, ph func(int) string) string {
	return fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(cols, ", "), table, WhereClause(where, ph))
}

func countQuery(table string, where []string, ph func(int) string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, WhereClause(where, ph))
}

func maxQuery(table, column string) string {
	return fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s", column, table)
}

// valuesInsert renders INSERT <verb> t (cols) VALUES (..), (..)<suffix>.
func valuesInsert(verb, table string, cols []string, rows int, suffix string, ph func(int) string) string {
	tuples := make([]string, rows)
	for r := 0; r < rows; r++ {
		tuples[r] = "(" + GeneratePlaceholders(r*len(cols), len(cols), ph) + ")"
	}
	return fmt.Sprintf("%s %s (%s) VALUES %s%s", verb, table, strings.Join(cols, ", "), strings.Join(tuples, ", "), suffix)
}

// rowsFor caps rows per statement by a bind parameter limit.
func rowsFor(cols, maxParams, maxRows int) int {
	if cols <= 0 {
		return maxRows
	}
	n := maxParams / cols
	if n < 1 {
		n = 1
	}
	if maxRows > 0 && n > maxRows {
		n = maxRows
	}
	return n
}

// DefaultNormalizeType lowercases the type name.
func DefaultNormalizeType(sqlType string) string {
	return strings.ToLower(sqlType)
}

// DefaultGetSchemaName returns input unchanged.
func DefaultGetSchemaName(input string) string {
	return input
}
