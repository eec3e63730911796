package store

import (
	"context"
	"database/sql"
	"fmt"

	"db-tube/internal/engine"
	"db-tube/internal/schema"
)

// Source reads rows of one table as engine records.
type Source struct {
	store  *Store
	table  *schema.Table
	layout *engine.Layout
}

func (s *Source) Table() string          { return s.table.Name }
func (s *Source) Layout() *engine.Layout { return s.layout }

func (s *Source) Count(ctx context.Context, filter engine.Filter) (int, error) {
	var n int
	q := s.store.Dialect.CountQuery(s.table.Name, filter.Fields())
	if err := s.store.DB.QueryRowContext(ctx, q, filter.Values()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table.Name, err)
	}
	return n, nil
}

// Records streams the matching rows. The cursor stays open until the
// iterator is closed.
func (s *Source) Records(ctx context.Context, filter engine.Filter) (engine.Iterator, error) {
	q := s.store.Dialect.SelectQuery(s.table.Name, s.layout.Fields(), filter.Fields())
	rows, err := s.store.DB.QueryContext(ctx, q, filter.Values()...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", s.table.Name, err)
	}
	return &rowIterator{rows: rows, source: s}, nil
}

// Sample returns up to n rows, for plan previews.
func (s *Source) Sample(ctx context.Context, n int) ([]*engine.Record, error) {
	q := s.store.Dialect.GetLimitRowQuery(s.store.Dialect.SelectQuery(s.table.Name, s.layout.Fields(), nil), n)
	rows, err := s.store.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", s.table.Name, err)
	}
	it := &rowIterator{rows: rows, source: s}
	defer it.Close()

	var out []*engine.Record
	for it.Next() {
		out = append(out, it.Record())
	}
	return out, it.Err()
}

func (s *Source) scan(rows *sql.Rows) (*engine.Record, error) {
	values := make([]any, len(s.layout.Fields()))
	ptrs := make([]any, len(values))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok && textual(s.table.Columns[i].DataType) {
			values[i] = string(b)
		}
	}
	return s.layout.Wrap(values), nil
}

type rowIterator struct {
	rows   *sql.Rows
	source *Source
	cur    *engine.Record
	err    error
}

func (it *rowIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	rec, err := it.source.scan(it.rows)
	if err != nil {
		it.err = fmt.Errorf("scan %s: %w", it.source.table.Name, err)
		return false
	}
	it.cur = rec
	return true
}

func (it *rowIterator) Record() *engine.Record { return it.cur }

func (it *rowIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *rowIterator) Close() error { return it.rows.Close() }
