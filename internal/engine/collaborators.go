package engine

import "context"

//go:generate mockgen -destination=mock_collaborators_test.go -package=engine db-tube/internal/engine Tx,Target,Fixer,Reporter

// Condition is one equality predicate of a source filter.
type Condition struct {
	Field string
	Value any
}

// Filter selects source records whose fields equal the given values.
// Conditions keep their declaration order so bind arguments are stable.
type Filter []Condition

func (f Filter) Fields() []string {
	out := make([]string, len(f))
	for i, c := range f {
		out[i] = c.Field
	}
	return out
}

func (f Filter) Values() []any {
	out := make([]any, len(f))
	for i, c := range f {
		out[i] = c.Value
	}
	return out
}

// Iterator is a forward-only, single-pass sequence of records. When Next
// returns false, Err distinguishes exhaustion from failure.
type Iterator interface {
	Next() bool
	Record() *Record
	Err() error
	Close() error
}

// SourceProvider reads one record type from one data source handle. Count and
// Records are independent passes; Records is restartable per call.
type SourceProvider interface {
	Table() string
	Count(ctx context.Context, filter Filter) (int, error)
	Records(ctx context.Context, filter Filter) (Iterator, error)
}

// Writer persists records and returns how many were actually written,
// which may be fewer than given.
type Writer interface {
	BulkWrite(ctx context.Context, records []*Record, batchSize int) (int, error)
}

// Tx is an all-or-nothing scope spanning one job run.
type Tx interface {
	Writer
	Commit() error
	Rollback() error
}

// Target is the destination record type.
type Target interface {
	Table() string
	Begin(ctx context.Context) (Tx, error)
}

// Fixer realigns generated identifiers of the given tables with stored data.
type Fixer interface {
	ResetSequences(ctx context.Context, tables []string) error
}

// Reporter renders progress.
type Reporter interface {
	Report(current, total int, status string)
}

// Observer receives run events, e.g. for metrics.
type Observer interface {
	RecordSkipped(job string, err error)
	BatchFlushed(job string, written int)
	JobFinished(stats Stats)
}
