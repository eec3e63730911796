package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bluele/gcache"
)

// Lookup reads single column values by key, remembering recent answers.
// It serves reference traversal such as "the email of the user whose id
// is the row's create_user_id".
type Lookup struct {
	store *Store
	cache gcache.Cache
}

// NewLookup keeps up to size answers in an LRU cache.
func NewLookup(s *Store, size int) *Lookup {
	if size <= 0 {
		size = 1024
	}
	return &Lookup{store: s, cache: gcache.New(size).LRU().Build()}
}

// Get returns column of the row in table whose key equals value. A nil
// value looks nothing up and returns nil.
func (l *Lookup) Get(ctx context.Context, table, key, column string, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	ck := fmt.Sprintf("%s.%s[%s=%v]", table, column, key, value)
	if v, err := l.cache.Get(ck); err == nil {
		return v, nil
	}

	d := l.store.Dialect
	var v any
	err := l.store.DB.QueryRowContext(ctx, d.SelectQuery(table, []string{column}, []string{key}), value).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no %s row with %s = %v", table, key, value)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s.%s: %w", table, column, err)
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if err := l.cache.Set(ck, v); err != nil {
		return nil, err
	}
	return v, nil
}
