package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Set runs jobs one after another, then realigns the identifier sequences of
// every destination table it wrote to.
type Set struct {
	jobs  []*Job
	fixer Fixer
	out   io.Writer
}

// SetResult collects the outcome of Set.Run.
type SetResult struct {
	RunID    string
	Jobs     []Stats
	Fixed    []string // tables passed to the fixer
	FixupErr error
}

// NewSet creates an empty set. fixer may be nil to skip the fixup pass; out
// receives the human-readable summary and defaults to stdout.
func NewSet(fixer Fixer, out io.Writer) *Set {
	if out == nil {
		out = os.Stdout
	}
	return &Set{fixer: fixer, out: out}
}

// Add appends jobs; they run in the order added.
func (s *Set) Add(jobs ...*Job) {
	s.jobs = append(s.jobs, jobs...)
}

func (s *Set) Jobs() []*Job { return s.jobs }

// Tables returns the distinct destination tables in first-appearance order.
func (s *Set) Tables() []string {
	seen := make(map[string]bool)
	var out []string
	for _, j := range s.jobs {
		if !seen[j.Dest()] {
			seen[j.Dest()] = true
			out = append(out, j.Dest())
		}
	}
	return out
}

// Run executes every job strictly in order. The first failing job stops the
// set and its error is returned as is. A fixup failure is logged and recorded in
// the result but does not fail the run.
func (s *Set) Run(ctx context.Context, opts Options) (*SetResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	result := &SetResult{RunID: uuid.NewString()}
	log := logrus.WithFields(logrus.Fields{"component": "set", "run_id": result.RunID})

	if opts.DryRun {
		banner := strings.Repeat("*", 90)
		fmt.Fprintf(s.out, "%s\n\nWARNING: running in dry-run mode, no data will be written to the destination database.\n\n%s\n", banner, banner)
		log.Warn("dry-run mode")
	}

	for _, job := range s.jobs {
		stats, err := job.Run(ctx, opts)
		result.Jobs = append(result.Jobs, stats)
		if err != nil {
			fmt.Fprintf(s.out, "\n\nmigrate %s to %s aborted: %v\n", job.Source(), job.Dest(), err)
			log.WithError(err).WithField("job", job.Name()).Error("job failed")
			return result, err
		}
		fmt.Fprintf(s.out, "\n\nmigrate %s to %s finished: %s.\n", job.Source(), job.Dest(), stats)
		log.WithField("job", job.Name()).Infof("%s", stats)
	}

	if opts.DryRun {
		log.Info("dry-run, sequence reset skipped")
	} else if s.fixer != nil {
		tables := s.Tables()
		fmt.Fprintln(s.out, "reset sequence start.")
		if err := s.fixer.ResetSequences(ctx, tables); err != nil {
			result.FixupErr = err
			fmt.Fprintf(s.out, "reset sequence failed: %v\n", err)
			log.WithError(err).Warn("sequence reset failed, migrated data is kept")
		} else {
			result.Fixed = tables
			fmt.Fprintf(s.out, "reset sequence finished for %v\n", tables)
		}
	}

	fmt.Fprintf(s.out, "%d tables migrated.\n", len(s.jobs))
	log.Infof("%d tables migrated", len(s.jobs))
	return result, nil
}
