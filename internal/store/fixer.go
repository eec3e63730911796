package store

import (
	"context"
	"errors"
	"fmt"

	"db-tube/internal/engine"

	"github.com/sirupsen/logrus"
)

// Fixer realigns identity sequences with the data a migration wrote.
type Fixer struct {
	store *Store
}

func (s *Store) Fixer() *Fixer { return &Fixer{store: s} }

// ResetSequences moves the identifier generator of every table past the
// highest stored key. Tables without a generated key are left alone. All
// tables are attempted; the failures are returned together.
func (f *Fixer) ResetSequences(ctx context.Context, tables []string) error {
	var errs []error
	for _, name := range tables {
		if err := f.reset(ctx, name); err != nil {
			errs = append(errs, &engine.PersistenceError{Op: "fixup", Table: name, Err: err})
		}
	}
	return errors.Join(errs...)
}

func (f *Fixer) reset(ctx context.Context, name string) error {
	t, err := f.store.Table(ctx, name)
	if err != nil {
		return err
	}
	col := t.IdentityColumn()
	if col == nil {
		f.store.log.WithField("table", t.Name).Debug("no identity column, nothing to reset")
		return nil
	}

	d := f.store.Dialect
	var max int64
	if err := f.store.DB.QueryRowContext(ctx, d.MaxQuery(t.Name, col.Name)).Scan(&max); err != nil {
		return fmt.Errorf("read max %s: %w", col.Name, err)
	}
	for _, q := range d.SequenceResetQueries(t.Name, col.Name, max) {
		if _, err := f.store.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("reset %s.%s: %w", t.Name, col.Name, err)
		}
	}
	f.store.log.WithFields(logrus.Fields{"table": t.Name, "column": col.Name, "max": max}).Info("sequence reset")
	return nil
}
