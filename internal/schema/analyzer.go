package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"db-tube/internal/dialect"

	"github.com/sirupsen/logrus"
)

// Catalog is the analyzed metadata of one database schema.
type Catalog struct {
	Tables []*Table // dependency order
	byName map[string]*Table
}

// Table looks a table up by name, case-insensitively.
func (c *Catalog) Table(name string) (*Table, error) {
	if t, ok := c.byName[strings.ToUpper(name)]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("table %q not found in schema", name)
}

// NewCatalog indexes already-analyzed tables.
func NewCatalog(tables []*Table) *Catalog {
	c := &Catalog{Tables: SortTablesByFKCount(tables), byName: make(map[string]*Table)}
	for _, t := range tables {
		c.byName[strings.ToUpper(t.Name)] = t
	}
	return c
}

// Analyze reads tables, columns and foreign keys of schemaName through the
// dialect's metadata queries.
func Analyze(ctx context.Context, db *sql.DB, d dialect.Dialect, schemaName string) (*Catalog, error) {
	target := d.GetSchemaName(schemaName)

	// normalized (UPPERCASE) keys so Oracle's upper-case metadata still matches
	tableMap := make(map[string]*Table)
	var tables []*Table

	rows, err := db.QueryContext(ctx, d.GetTablesQuery(target), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		t := &Table{Name: name, Dependencies: []string{}}
		tableMap[strings.ToUpper(name)] = t
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	if err := scanColumns(ctx, db, d, target, tableMap); err != nil {
		return nil, err
	}
	if err := scanForeignKeys(ctx, db, d, target, tableMap); err != nil {
		return nil, err
	}

	return NewCatalog(tables), nil
}

func scanColumns(ctx context.Context, db *sql.DB, d dialect.Dialect, target string, tableMap map[string]*Table) error {
	colRows, err := db.QueryContext(ctx, d.GetColumnsQuery(target), target)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer colRows.Close()

	for colRows.Next() {
		var tName, cName, dType, cType, isNull, cKey, extra, isUnique, comment sql.NullString
		var cLen sql.NullString

		if err := colRows.Scan(&tName, &cName, &dType, &cType, &cLen, &isNull, &cKey, &extra, &isUnique, &comment); err != nil {
			return fmt.Errorf("failed to scan column (table: %s): %w", tName.String, err)
		}
		if !tName.Valid || !cName.Valid {
			continue
		}

		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok {
			continue
		}

		isAutoInc := false
		if extra.Valid {
			extraLower := strings.ToLower(extra.String)
			isAutoInc = strings.Contains(extraLower, "auto_increment") ||
				strings.Contains(extraLower, "identity") ||
				strings.Contains(extraLower, "nextval")
		}

		col := &Column{
			Name:       cName.String,
			DataType:   d.NormalizeType(dType.String),
			IsNullable: isNull.String == "YES" || isNull.String == "Y",
			IsPK:       strings.Contains(cKey.String, "PRI"),
			IsAutoInc:  isAutoInc,
			IsUnique:   isUnique.Valid && strings.Contains(isUnique.String, "UNIQUE"),
			Comment:    comment.String,
			Meaning:    AnalyzeMeaning(cName.String, comment.String),
		}

		if cLen.Valid && cLen.String != "" {
			var fLength float64
			if _, err := fmt.Sscanf(cLen.String, "%g", &fLength); err == nil {
				col.Length = int(fLength)
			}
		}
		t.Columns = append(t.Columns, col)
	}
	if err := colRows.Err(); err != nil {
		return fmt.Errorf("error iterating columns: %w", err)
	}
	return nil
}

func scanForeignKeys(ctx context.Context, db *sql.DB, d dialect.Dialect, target string, tableMap map[string]*Table) error {
	fkRows, err := db.QueryContext(ctx, d.GetForeignKeysQuery(target), target)
	if err != nil {
		return fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var tName, cConst, cName, rTable, rCol sql.NullString
		if err := fkRows.Scan(&tName, &cConst, &cName, &rTable, &rCol); err != nil {
			return fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if !tName.Valid || !rTable.Valid {
			continue
		}

		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok {
			continue
		}
		ref, ok := tableMap[strings.ToUpper(rTable.String)]
		if !ok {
			// references outside the analyzed schema
			continue
		}
		t.ForeignKeys = append(t.ForeignKeys, &ForeignKey{
			Column:    cName.String,
			RefTable:  ref.Name,
			RefColumn: rCol.String,
		})
		if ref.Name != t.Name {
			t.Dependencies = append(t.Dependencies, ref.Name)
		}
	}
	if err := fkRows.Err(); err != nil {
		return fmt.Errorf("error iterating foreign keys: %w", err)
	}
	return nil
}

// SortTablesByFKCount sorts tables by dependency order.
// Circular dependencies are broken with a scoring heuristic.
func SortTablesByFKCount(tables []*Table) []*Table {
	var sorted []*Table
	processed := make(map[string]bool)
	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	for len(sorted) < len(tables) {
		added := false

		// Pass 1: tables whose dependencies are satisfied
		for _, t := range tables {
			if processed[t.Name] || !dependenciesMet(t, processed) {
				continue
			}
			sorted = append(sorted, t)
			processed[t.Name] = true
			added = true
		}
		if added {
			continue
		}

		// Pass 2: cycle. Fewer unprocessed deps win, cycle members get a boost.
		var best *Table
		bestScore := -999999
		for _, t := range tables {
			if processed[t.Name] {
				continue
			}
			score := 0
			for _, dep := range t.Dependencies {
				if processed[dep] {
					continue
				}
				score -= 100
				if cand, ok := byName[dep]; ok && dependsOn(cand, t.Name) {
					score += 500
				}
			}
			if score > bestScore || (score == bestScore && (best == nil || t.Name > best.Name)) {
				bestScore = score
				best = t
			}
		}

		if best == nil {
			logrus.WithField("component", "schema").Error("remaining tables cannot be sorted")
			break
		}
		sorted = append(sorted, best)
		processed[best.Name] = true
		logrus.WithFields(logrus.Fields{
			"component": "schema",
			"table":     best.Name,
			"score":     bestScore,
		}).Debug("breaking circular dependency")
	}

	return sorted
}

func dependenciesMet(t *Table, processed map[string]bool) bool {
	for _, dep := range t.Dependencies {
		if !processed[dep] {
			return false
		}
	}
	return true
}

func dependsOn(t *Table, name string) bool {
	for _, dep := range t.Dependencies {
		if dep == name {
			return true
		}
	}
	return false
}

// OrderViolations lists pairs "child -> parent" where child comes before a
// table it references in the given order.
func OrderViolations(order []*Table) []string {
	pos := make(map[string]int, len(order))
	for i, t := range order {
		pos[t.Name] = i
	}
	var out []string
	for i, t := range order {
		for _, dep := range t.Dependencies {
			if j, ok := pos[dep]; ok && j > i {
				out = append(out, t.Name+" -> "+dep)
			}
		}
	}
	return out
}
