package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"db-tube/internal/engine"
	"db-tube/internal/schema"

	"github.com/sirupsen/logrus"
)

// Target writes engine records into one table.
type Target struct {
	store *Store
	table *schema.Table
}

func (t *Target) Table() string { return t.table.Name }

// Begin starts the transaction that spans one job run.
func (t *Target) Begin(ctx context.Context) (engine.Tx, error) {
	tx, err := t.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, target: t, log: t.store.log.WithField("table", t.table.Name)}, nil
}

// Tx is a transaction of a Target.
type Tx struct {
	tx     *sql.Tx
	target *Target
	log    *logrus.Entry
}

// BulkWrite inserts records with multi-row statements. Records are grouped
// by the set of fields they assign, so never-assigned columns keep their
// database default. Rows the database ignores as conflicts are not counted.
func (x *Tx) BulkWrite(ctx context.Context, records []*engine.Record, batchSize int) (int, error) {
	var order []string
	groups := make(map[string][]*engine.Record)
	for _, r := range records {
		key := strings.Join(r.Assigned(), ",")
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	written := 0
	for _, key := range order {
		group := groups[key]
		n, err := x.insert(ctx, group[0].Assigned(), group, batchSize)
		written += n
		if err != nil {
			return written, &engine.PersistenceError{Op: "bulk write", Table: x.target.table.Name, Err: err}
		}
	}
	return written, nil
}

func (x *Tx) insert(ctx context.Context, cols []string, records []*engine.Record, batchSize int) (int, error) {
	if len(cols) == 0 {
		return 0, fmt.Errorf("record assigns no fields")
	}
	d := x.target.store.Dialect
	table := x.target.table.Name

	identity := false
	if id := x.target.table.IdentityColumn(); id != nil {
		for _, c := range cols {
			if strings.EqualFold(c, id.Name) {
				identity = true
				break
			}
		}
	}
	if err := d.BeforeTable(ctx, x.tx, table, identity); err != nil {
		return 0, fmt.Errorf("prepare %s: %w", table, err)
	}

	chunk := d.MaxRowsPerInsert(len(cols))
	if chunk <= 0 || chunk > batchSize {
		chunk = batchSize
	}

	written := 0
	for start := 0; start < len(records); start += chunk {
		end := start + chunk
		if end > len(records) {
			end = len(records)
		}
		part := records[start:end]

		args := make([]any, 0, len(part)*len(cols))
		for _, r := range part {
			for _, c := range cols {
				v, _ := r.Get(c)
				args = append(args, v)
			}
		}
		res, err := x.tx.ExecContext(ctx, d.BulkInsertQuery(table, cols, len(part)), args...)
		if err != nil {
			return written, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			// driver cannot tell; assume all rows went in
			n = int64(len(part))
		}
		written += int(n)
	}

	if err := d.AfterTable(ctx, x.tx, table, identity); err != nil {
		return written, fmt.Errorf("finish %s: %w", table, err)
	}
	x.log.WithFields(logrus.Fields{"rows": len(records), "written": written, "columns": len(cols)}).Debug("inserted")
	return written, nil
}

func (x *Tx) Commit() error   { return x.tx.Commit() }
func (x *Tx) Rollback() error { return x.tx.Rollback() }
