package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"db-tube/internal/dialect"
	"db-tube/internal/engine"
	"db-tube/internal/schema"

	"github.com/sirupsen/logrus"
)

// Store is one named database handle with its dialect and analyzed schema.
type Store struct {
	Name    string
	Driver  string
	DB      *sql.DB
	Dialect dialect.Dialect
	Schema  string

	mu      sync.Mutex
	catalog *schema.Catalog
	log     *logrus.Entry
}

// Open connects to dsn and resolves the schema name when none is configured.
func Open(ctx context.Context, name, driver, dsn, schemaName string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", name, err)
	}
	s, err := New(ctx, name, driver, db, schemaName)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open connection pool.
func New(ctx context.Context, name, driver string, db *sql.DB, schemaName string) (*Store, error) {
	s := &Store{
		Name:    name,
		Driver:  driver,
		DB:      db,
		Dialect: dialect.GetDialect(driver),
		log:     logrus.WithFields(logrus.Fields{"component": "store", "db": name}),
	}
	if schemaName == "" {
		var err error
		if schemaName, err = defaultSchema(ctx, db, driver); err != nil {
			return nil, err
		}
	}
	s.Schema = schemaName
	s.log.WithFields(logrus.Fields{"driver": driver, "schema": s.Schema}).Debug("store ready")
	return s, nil
}

func defaultSchema(ctx context.Context, db *sql.DB, driver string) (string, error) {
	switch driver {
	case "mysql":
		var name sql.NullString
		if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&name); err != nil {
			return "", fmt.Errorf("failed to get database name: %w", err)
		}
		if name.String == "" {
			return "", fmt.Errorf("no database selected in DSN")
		}
		return name.String, nil
	case "sqlserver", "mssql":
		return "dbo", nil
	case "postgres":
		return "public", nil
	}
	// oracle and sqlite resolve the empty name in the dialect
	return "", nil
}

func (s *Store) Close() error { return s.DB.Close() }

// Catalog analyzes the schema once and caches the result.
func (s *Store) Catalog(ctx context.Context) (*schema.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalog != nil {
		return s.catalog, nil
	}
	s.log.Info("analyzing schema")
	cat, err := schema.Analyze(ctx, s.DB, s.Dialect, s.Schema)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", s.Name, err)
	}
	s.catalog = cat
	return cat, nil
}

// Table returns the analyzed metadata of one table.
func (s *Store) Table(ctx context.Context, name string) (*schema.Table, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	t, err := cat.Table(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return t, nil
}

// FieldSet introspects the fields of a table. Foreign key columns are
// reference fields addressed by their physical name.
func (s *Store) FieldSet(ctx context.Context, table string) (schema.FieldSet, error) {
	t, err := s.Table(ctx, table)
	if err != nil {
		return schema.FieldSet{}, err
	}
	return t.FieldSet(), nil
}

// Source opens table for reading.
func (s *Store) Source(ctx context.Context, table string) (*Source, error) {
	t, err := s.Table(ctx, table)
	if err != nil {
		return nil, err
	}
	return &Source{store: s, table: t, layout: engine.NewLayout(t.Name, t.FieldSet().Identifiers())}, nil
}

// Target opens table for writing.
func (s *Store) Target(ctx context.Context, table string) (*Target, error) {
	t, err := s.Table(ctx, table)
	if err != nil {
		return nil, err
	}
	return &Target{store: s, table: t}, nil
}

func isMSSQL(d dialect.Dialect) bool {
	_, ok := d.(*dialect.MSSQLDialect)
	return ok
}

// textual reports whether values of a column type are text when the driver
// hands them out as bytes.
func textual(dataType string) bool {
	t := strings.ToLower(dataType)
	for _, bin := range []string{"blob", "binary", "bytea", "raw", "image"} {
		if strings.Contains(t, bin) {
			return false
		}
	}
	return true
}
