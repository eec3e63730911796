package engine

import (
	"context"
	"errors"

	"db-tube/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	legacyFields = schema.FieldSet{Fields: []string{"id", "email", "age", "usr_nm", "is_admin"}}
	userFields   = schema.FieldSet{Fields: []string{"id", "email", "age", "user_name", "is_admin", "role"}}
)

// sliceSource serves rows of legacyFields from memory.
type sliceSource struct {
	table    string
	layout   *Layout
	rows     [][]any
	countErr error
	readErr  error // returned by the iterator after all rows
	opened   int
	closed   int
}

func newLegacySource(rows [][]any) *sliceSource {
	return &sliceSource{table: "legacy_user", layout: NewLayout("legacy_user", legacyFields.Fields), rows: rows}
}

// fakeLegacyRows generates n valid rows; ids run from 1.
func fakeLegacyRows(n int) [][]any {
	f := gofakeit.New(42)
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{int64(i + 1), f.Email(), int64(f.Number(18, 90)), f.Username(), f.Bool()}
	}
	return rows
}

func (s *sliceSource) Table() string { return s.table }

func (s *sliceSource) Count(_ context.Context, filter Filter) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return len(s.match(filter)), nil
}

func (s *sliceSource) Records(_ context.Context, filter Filter) (Iterator, error) {
	s.opened++
	return &sliceIterator{src: s, rows: s.match(filter), pos: -1}, nil
}

func (s *sliceSource) match(filter Filter) []*Record {
	var out []*Record
	for _, row := range s.rows {
		rec := s.layout.Wrap(append([]any(nil), row...))
		ok := true
		for _, c := range filter {
			if v, _ := rec.Get(c.Field); v != c.Value {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out
}

type sliceIterator struct {
	src  *sliceSource
	rows []*Record
	pos  int
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.rows)
}

func (it *sliceIterator) Record() *Record { return it.rows[it.pos] }
func (it *sliceIterator) Err() error      { return it.src.readErr }

func (it *sliceIterator) Close() error {
	it.src.closed++
	return nil
}

var errEmptyName = errors.New("empty user name")

// userNameRule fails for rows whose usr_nm is empty.
func userNameRule() Rule {
	return Transform("usr_nm required", func(_ context.Context, src *Record) (any, error) {
		v, _ := src.Get("usr_nm")
		if s, _ := v.(string); s == "" {
			return nil, errEmptyName
		}
		return v, nil
	})
}

// batchLog records every batch a writer receives.
type batchLog struct {
	sizes []int
	ids   []any
}

func (b *batchLog) write(_ context.Context, records []*Record, _ int) (int, error) {
	b.sizes = append(b.sizes, len(records))
	for _, r := range records {
		id, _ := r.Get("id")
		b.ids = append(b.ids, id)
	}
	return len(records), nil
}
