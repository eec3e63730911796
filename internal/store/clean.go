package store

import (
	"context"
	"fmt"

	"db-tube/internal/dialect"

	"github.com/sirupsen/logrus"
)

// Clean empties tables in reverse order inside one transaction, with
// foreign key checks suspended by the dialect. Tables that cannot be
// cleaned are logged and skipped.
func (s *Store) Clean(ctx context.Context, tables []string) error {
	log := s.log.WithField("op", "clean")

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	log.Info("disabling foreign key checks")
	if err := s.Dialect.BeforePump(ctx, tx); err != nil {
		log.WithError(err).Warn("failed to disable foreign key checks, continuing")
		if _, ok := s.Dialect.(*dialect.PostgresDialect); ok {
			// the failed statement poisoned the transaction
			tx.Rollback()
			if tx, err = s.DB.BeginTx(ctx, nil); err != nil {
				return err
			}
		}
	}

	total := len(tables)
	for i := total - 1; i >= 0; i-- {
		table := tables[i]
		query := s.Dialect.TruncateQuery(table)
		if isMSSQL(s.Dialect) {
			// TRUNCATE fails on referenced tables even with constraints off
			query = fmt.Sprintf("DELETE FROM %s", table)
		}
		if _, err := tx.ExecContext(ctx, query); err != nil {
			log.WithError(err).WithField("table", table).Warn("failed to clean table, continuing")
			continue
		}
		if isMSSQL(s.Dialect) {
			for _, q := range s.Dialect.SequenceResetQueries(table, "", 0) {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					log.WithError(err).WithField("table", table).Debug("no identity to reseed")
				}
			}
		}
		if done := total - i; done%5 == 0 || done == total {
			log.WithFields(logrus.Fields{"done": done, "total": total}).Info("cleaned tables")
		}
	}

	log.Info("enabling foreign key checks")
	if err := s.Dialect.AfterPump(ctx, tx); err != nil {
		log.WithError(err).Warn("failed to enable foreign key checks")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cleaning transaction: %w", err)
	}
	tx = nil
	return nil
}
