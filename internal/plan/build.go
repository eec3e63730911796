package plan

import (
	"context"
	"fmt"
	"sort"

	"db-tube/internal/engine"
	"db-tube/internal/schema"
	"db-tube/internal/store"
	"db-tube/internal/transform"
)

// Handles are the open databases a plan can refer to by name.
type Handles struct {
	Stores        map[string]*store.Store
	Dest          *store.Store
	DefaultSource string // used when neither the plan nor the job names one
	Fill          engine.FillPolicy
	LookupCache   int

	lookups map[string]*store.Lookup
}

func (h *Handles) source(p *Plan, j JobSpec) (*store.Store, error) {
	name := j.SourceDB
	if name == "" {
		name = p.SourceDB
	}
	if name == "" {
		name = h.DefaultSource
	}
	if name == "" {
		return nil, fmt.Errorf("job %s: no source database (set source_db)", j.Name)
	}
	s, ok := h.Stores[name]
	if !ok {
		return nil, fmt.Errorf("job %s: unknown source database %q", j.Name, name)
	}
	return s, nil
}

func (h *Handles) lookup(s *store.Store) *store.Lookup {
	if h.lookups == nil {
		h.lookups = make(map[string]*store.Lookup)
	}
	l, ok := h.lookups[s.Name]
	if !ok {
		l = store.NewLookup(s, h.LookupCache)
		h.lookups[s.Name] = l
	}
	return l
}

// Build introspects both sides of every job and constructs the engine jobs
// in order.
func Build(ctx context.Context, p *Plan, specs []JobSpec, h *Handles) ([]*engine.Job, error) {
	if h.Dest == nil {
		return nil, fmt.Errorf("no destination database")
	}
	jobs := make([]*engine.Job, 0, len(specs))
	for _, spec := range specs {
		job, err := h.buildJob(ctx, p, spec)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (h *Handles) buildJob(ctx context.Context, p *Plan, spec JobSpec) (*engine.Job, error) {
	srcStore, err := h.source(p, spec)
	if err != nil {
		return nil, err
	}
	src, err := srcStore.Source(ctx, spec.Source)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", spec.Name, err)
	}
	srcFields, err := srcStore.FieldSet(ctx, spec.Source)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", spec.Name, err)
	}
	target, err := h.Dest.Target(ctx, spec.Dest)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", spec.Name, err)
	}
	destFields, err := h.Dest.FieldSet(ctx, spec.Dest)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", spec.Name, err)
	}

	mapping := make(engine.Mapping, len(spec.Mapping))
	for field, rs := range spec.Mapping {
		if rs.Computed == nil {
			mapping[field] = engine.Alias(rs.Alias)
			continue
		}
		var resolver transform.Resolver
		if rs.Computed.Lookup != nil {
			resolver = h.lookup(srcStore)
		}
		rule, err := transform.Compile(*rs.Computed, resolver)
		if err != nil {
			return nil, fmt.Errorf("job %s: field %s: %w", spec.Name, field, err)
		}
		mapping[field] = rule
	}

	fill := h.Fill
	if spec.Fill != "" {
		if fill, err = engine.ParseFillPolicy(spec.Fill); err != nil {
			return nil, fmt.Errorf("job %s: %w", spec.Name, err)
		}
	}

	filter := make(engine.Filter, len(spec.Filter))
	for i, c := range spec.Filter {
		filter[i] = engine.Condition{Field: c.Field, Value: c.Value}
	}

	return engine.NewJob(engine.JobConfig{
		Name:         spec.Name,
		Source:       src,
		SourceFields: srcFields,
		Target:       target,
		DestFields:   destFields,
		Mapping:      mapping,
		Defaults:     spec.Defaults,
		Filter:       filter,
		Fill:         fill,
	})
}

// JobReport is the resolved view of one job printed by "db-tube plan".
type JobReport struct {
	Name        string            `yaml:"name"`
	Source      string            `yaml:"source"`
	Dest        string            `yaml:"dest"`
	Mapping     map[string]string `yaml:"mapping"`
	Defaults    map[string]any    `yaml:"defaults,omitempty"`
	Unmapped    []string          `yaml:"unmapped,omitempty"`
	Suggestions []string          `yaml:"suggestions,omitempty"`
}

// Report describes resolved jobs and, when the plan writes a table before
// the tables it references, a dependency-respecting order.
type Report struct {
	Jobs       []JobReport `yaml:"jobs"`
	Violations []string    `yaml:"order_violations,omitempty"`
	Suggested  []string    `yaml:"suggested_order,omitempty"`
}

// Describe resolves the jobs without running them.
func Describe(ctx context.Context, p *Plan, specs []JobSpec, h *Handles) (*Report, error) {
	jobs, err := Build(ctx, p, specs, h)
	if err != nil {
		return nil, err
	}
	r := &Report{}
	for i, job := range jobs {
		srcStore, err := h.source(p, specs[i])
		if err != nil {
			return nil, err
		}
		srcFields, err := srcStore.FieldSet(ctx, job.Source())
		if err != nil {
			return nil, err
		}
		destFields, err := h.Dest.FieldSet(ctx, job.Dest())
		if err != nil {
			return nil, err
		}

		jr := JobReport{
			Name:     job.Name(),
			Source:   job.Source(),
			Dest:     job.Dest(),
			Mapping:  make(map[string]string),
			Defaults: specs[i].Defaults,
		}
		m := job.Mapping()
		for f, rule := range m {
			jr.Mapping[f] = rule.String()
		}
		for _, f := range destFields.Identifiers() {
			if _, ok := m[f]; !ok {
				if _, ok := specs[i].Defaults[f]; !ok {
					jr.Unmapped = append(jr.Unmapped, f)
				}
			}
		}
		for _, s := range engine.Suggest(srcFields, destFields, m) {
			jr.Suggestions = append(jr.Suggestions, fmt.Sprintf("%s: %s  # %s", s.Dest, s.Source, s.Meaning))
		}
		r.Jobs = append(r.Jobs, jr)
	}

	violations, suggested, err := OrderHint(ctx, h.Dest, DestTables(specs))
	if err != nil {
		return nil, err
	}
	r.Violations, r.Suggested = violations, suggested
	return r, nil
}

// OrderHint checks that tables are written after the tables they reference.
// When they are not, it returns the offending pairs and a sorted order.
func OrderHint(ctx context.Context, dest *store.Store, tables []string) (violations, suggested []string, err error) {
	order := make([]*schema.Table, 0, len(tables))
	for _, name := range tables {
		t, err := dest.Table(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		order = append(order, t)
	}
	violations = schema.OrderViolations(order)
	if len(violations) == 0 {
		return nil, nil, nil
	}
	sort.Strings(violations)
	for _, t := range schema.SortTablesByFKCount(order) {
		suggested = append(suggested, t.Name)
	}
	return violations, suggested, nil
}
