package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

// ErrorPolicy decides what a MappingError does to a run. There is no
// implicit default: the zero value is rejected.
type ErrorPolicy int

const (
	PolicyUnset ErrorPolicy = iota
	// StopRun aborts the run on the first MappingError.
	StopRun
	// SkipRecord logs the error and drops the record.
	SkipRecord
)

// ParseErrorPolicy accepts "stop" and "skip".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "stop":
		return StopRun, nil
	case "skip":
		return SkipRecord, nil
	}
	return PolicyUnset, &ConfigurationError{Reason: fmt.Sprintf("unknown error policy %q (want stop or skip)", s)}
}

func (p ErrorPolicy) String() string {
	switch p {
	case StopRun:
		return "stop"
	case SkipRecord:
		return "skip"
	}
	return "unset"
}

// Options are shared by every job of a run.
type Options struct {
	BatchSize int
	DryRun    bool
	OnError   ErrorPolicy
	Debug     bool // dump failing source records

	Reporter Reporter
	Observer Observer
}

// Validate rejects options that cannot drive a run.
func (o Options) Validate() error {
	if o.BatchSize < 1 {
		return &ConfigurationError{Reason: fmt.Sprintf("batch size must be positive, got %d", o.BatchSize)}
	}
	if o.OnError != StopRun && o.OnError != SkipRecord {
		return &ConfigurationError{Reason: "error policy must be set explicitly to stop or skip"}
	}
	return nil
}

// Stats describes one job run. When Aborted is set, Succeeded counts the
// batches flushed before the abort; the transaction discards them.
type Stats struct {
	Job       string
	Source    string
	Dest      string
	Total     int
	Succeeded int
	Skipped   int
	Batches   int
	Elapsed   time.Duration
	DryRun    bool
	Aborted   bool
}

// Failed is Total minus Succeeded. It includes skipped records and rows the
// writer declined.
func (s Stats) Failed() int { return s.Total - s.Succeeded }

func (s Stats) String() string {
	return fmt.Sprintf("%d of %d succeed", s.Succeeded, s.Total)
}

// BatchRunner streams records through a Builder into a Writer, batchSize
// records at a time.
type BatchRunner struct {
	Job     string
	Builder *Builder
	Writer  Writer // unused in dry-run
	Status  string // progress label
	Logger  *logrus.Entry
}

// Run consumes it until exhaustion. total is the upfront count used for
// progress and the final stats.
func (r *BatchRunner) Run(ctx context.Context, it Iterator, total int, opts Options) (Stats, error) {
	start := time.Now()
	log := r.Logger
	if log == nil {
		log = logrus.WithField("component", "runner")
	}
	stats := Stats{Job: r.Job, Total: total, DryRun: opts.DryRun}

	buffer := make([]*Record, 0, opts.BatchSize)
	flush := func() error {
		batch := buffer
		buffer = make([]*Record, 0, opts.BatchSize)

		written := len(batch)
		if !opts.DryRun {
			n, err := r.Writer.BulkWrite(ctx, batch, opts.BatchSize)
			if err != nil {
				var pe *PersistenceError
				if !errors.As(err, &pe) {
					err = &PersistenceError{Op: "bulk write", Err: err}
				}
				return err
			}
			written = n
		}
		stats.Succeeded += written
		stats.Batches++
		if opts.Observer != nil {
			opts.Observer.BatchFlushed(r.Job, written)
		}
		log.WithFields(logrus.Fields{"batch": stats.Batches, "written": written, "given": len(batch)}).Debug("batch flushed")
		return nil
	}
	abort := func(err error) (Stats, error) {
		stats.Aborted = true
		stats.Elapsed = time.Since(start)
		return stats, err
	}

	for it.Next() {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		src := it.Record()
		rec, err := r.Builder.Build(ctx, src)
		if err != nil {
			if opts.OnError != SkipRecord {
				return abort(err)
			}
			stats.Skipped++
			entry := log.WithError(err)
			if opts.Debug {
				entry = entry.WithField("record", spew.Sdump(src.Map()))
			}
			entry.Warn("skip record")
			if opts.Observer != nil {
				opts.Observer.RecordSkipped(r.Job, err)
			}
			continue
		}

		buffer = append(buffer, rec)
		if len(buffer) >= opts.BatchSize {
			if err := flush(); err != nil {
				return abort(err)
			}
			r.report(opts.Reporter, stats)
		}
	}
	if err := it.Err(); err != nil {
		return abort(&PersistenceError{Op: "read", Err: err})
	}

	if len(buffer) > 0 {
		if err := flush(); err != nil {
			return abort(err)
		}
	}
	r.report(opts.Reporter, stats)

	stats.Elapsed = time.Since(start)
	return stats, nil
}

func (r *BatchRunner) report(rep Reporter, s Stats) {
	if rep == nil {
		return
	}
	rep.Report(s.Succeeded, s.Total, fmt.Sprintf("%s(%d/%d)", r.Status, s.Succeeded, s.Total))
}
