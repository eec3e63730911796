package engine

import (
	"context"
	"fmt"
	"time"

	"db-tube/internal/schema"

	"github.com/sirupsen/logrus"
)

// JobConfig describes one table-to-table migration.
type JobConfig struct {
	Name         string // defaults to "<source> -> <dest>"
	Source       SourceProvider
	SourceFields schema.FieldSet
	Target       Target
	DestFields   schema.FieldSet
	Mapping      Mapping // overrides on top of the shared fields
	Defaults     map[string]any
	Filter       Filter
	Fill         FillPolicy
}

// Job is an immutable migration of one source table into one destination
// table. It can run any number of times; every run starts from fresh stats.
type Job struct {
	name    string
	source  SourceProvider
	target  Target
	filter  Filter
	mapping Mapping
	builder *Builder
	log     *logrus.Entry
}

// NewJob resolves the mapping and validates the configuration.
func NewJob(cfg JobConfig) (*Job, error) {
	if cfg.Source == nil || cfg.Target == nil {
		return nil, &ConfigurationError{Job: cfg.Name, Reason: "source and destination are required"}
	}
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("%s -> %s", cfg.Source.Table(), cfg.Target.Table())
	}
	if len(cfg.DestFields.Fields) == 0 {
		return nil, &ConfigurationError{Job: name, Reason: fmt.Sprintf("destination %s has no fields", cfg.Target.Table())}
	}
	for _, c := range cfg.Filter {
		if !cfg.SourceFields.Has(c.Field) {
			return nil, &ConfigurationError{Job: name, Reason: fmt.Sprintf("filter field %q is not a field of %s", c.Field, cfg.Source.Table())}
		}
	}
	for f := range cfg.Defaults {
		if !cfg.DestFields.Has(f) {
			return nil, &ConfigurationError{Job: name, Reason: fmt.Sprintf("default for %q which is not a field of %s", f, cfg.Target.Table())}
		}
	}
	for f, rule := range cfg.Mapping {
		if rule.Kind == TransformRule && rule.Fn == nil {
			return nil, &ConfigurationError{Job: name, Reason: fmt.Sprintf("transform for %q has no function", f)}
		}
		if rule.Kind != TransformRule && rule.Kind != AliasRule {
			return nil, &ConfigurationError{Job: name, Reason: fmt.Sprintf("rule for %q has no kind", f)}
		}
	}

	mapping := Resolve(cfg.SourceFields, cfg.DestFields, cfg.Mapping)
	dest := NewLayout(cfg.Target.Table(), cfg.DestFields.Identifiers())

	return &Job{
		name:    name,
		source:  cfg.Source,
		target:  cfg.Target,
		filter:  cfg.Filter,
		mapping: mapping,
		builder: NewBuilder(dest, mapping, cfg.Defaults, cfg.Fill),
		log: logrus.WithFields(logrus.Fields{
			"component": "job",
			"job":       name,
			"source":    cfg.Source.Table(),
			"dest":      cfg.Target.Table(),
		}),
	}, nil
}

func (j *Job) Name() string             { return j.name }
func (j *Job) Source() string           { return j.source.Table() }
func (j *Job) Dest() string             { return j.target.Table() }
func (j *Job) Mapping() Mapping         { return j.mapping }
func (j *Job) Builder() *Builder        { return j.builder }
func (j *Job) Filter() Filter           { return j.filter }
func (j *Job) Provider() SourceProvider { return j.source }

// Run migrates all matching source records. Outside dry-run the whole run
// happens in one transaction that is rolled back on every error.
func (j *Job) Run(ctx context.Context, opts Options) (Stats, error) {
	stats := Stats{Job: j.name, Source: j.Source(), Dest: j.Dest(), DryRun: opts.DryRun}
	if err := opts.Validate(); err != nil {
		return stats, err
	}
	start := time.Now()
	defer func() {
		if opts.Observer != nil {
			opts.Observer.JobFinished(stats)
		}
	}()

	total, err := j.source.Count(ctx, j.filter)
	if err != nil {
		stats.Aborted = true
		return stats, &PersistenceError{Op: "count", Table: j.Source(), Err: err}
	}
	stats.Total = total
	if total == 0 {
		j.log.Info("source is empty")
		return stats, nil
	}

	it, err := j.source.Records(ctx, j.filter)
	if err != nil {
		stats.Aborted = true
		return stats, &PersistenceError{Op: "read", Table: j.Source(), Err: err}
	}
	defer func() {
		if cerr := it.Close(); cerr != nil {
			j.log.WithError(cerr).Warn("failed to close source cursor")
		}
	}()

	runner := &BatchRunner{
		Job:     j.name,
		Builder: j.builder,
		Status:  fmt.Sprintf("migrating from %s to %s", j.Source(), j.Dest()),
		Logger:  j.log,
	}

	if opts.DryRun {
		stats, err = j.finish(runner.Run(ctx, it, total, opts))
		stats.Elapsed = time.Since(start)
		return stats, err
	}

	tx, err := j.target.Begin(ctx)
	if err != nil {
		stats.Aborted = true
		return stats, &PersistenceError{Op: "begin", Table: j.Dest(), Err: err}
	}
	done := false
	defer func() {
		if done {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			j.log.WithError(rbErr).Error("rollback failed")
			return
		}
		j.log.Warn("run rolled back")
	}()

	runner.Writer = tx
	stats, err = j.finish(runner.Run(ctx, it, total, opts))
	if err != nil {
		stats.Elapsed = time.Since(start)
		return stats, err
	}

	done = true
	if err := tx.Commit(); err != nil {
		stats.Aborted = true
		stats.Elapsed = time.Since(start)
		return stats, &PersistenceError{Op: "commit", Table: j.Dest(), Err: err}
	}
	stats.Elapsed = time.Since(start)
	j.log.WithFields(logrus.Fields{
		"succeeded": stats.Succeeded,
		"total":     stats.Total,
		"skipped":   stats.Skipped,
		"elapsed":   stats.Elapsed,
	}).Info("job finished")
	return stats, nil
}

func (j *Job) finish(s Stats, err error) (Stats, error) {
	s.Job = j.name
	s.Source = j.Source()
	s.Dest = j.Dest()
	return s, err
}
