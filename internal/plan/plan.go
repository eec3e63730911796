// Package plan reads migration plans and turns them into engine jobs.
package plan

import (
	"bytes"
	"fmt"
	"os"

	"db-tube/internal/transform"

	"gopkg.in/yaml.v3"
)

const CurrentVersion = 1

// Plan is the migration plan file.
type Plan struct {
	Version  int       `yaml:"version"`
	SourceDB string    `yaml:"source_db,omitempty"` // default source handle
	Jobs     []JobSpec `yaml:"jobs"`
}

// JobSpec is one table-to-table migration.
type JobSpec struct {
	Name     string              `yaml:"name,omitempty"`
	Source   string              `yaml:"source"`
	Dest     string              `yaml:"dest"`
	SourceDB string              `yaml:"source_db,omitempty"`
	Filter   Conditions          `yaml:"filter,omitempty"`
	Mapping  map[string]RuleSpec `yaml:"mapping,omitempty"`
	Defaults map[string]any      `yaml:"defaults,omitempty"`
	Fill     string              `yaml:"fill,omitempty"`
}

// RuleSpec is either a plain source field name (alias) or a computed field.
type RuleSpec struct {
	Alias    string
	Computed *transform.Spec
}

func (r *RuleSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&r.Alias)
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: mapping rule must be a field name or an object", node.Line)
	}
	var spec transform.Spec
	if err := node.Decode(&spec); err != nil {
		return err
	}
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == "value" {
			spec.MarkValue()
		}
	}
	r.Computed = &spec
	return nil
}

func (r RuleSpec) MarshalYAML() (any, error) {
	if r.Computed != nil {
		return r.Computed, nil
	}
	return r.Alias, nil
}

// Condition is one equality filter.
type Condition struct {
	Field string
	Value any
}

// Conditions keep the order they are written in.
type Conditions []Condition

func (c *Conditions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: filter must be a mapping of field: value", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		var v any
		if err := node.Content[i+1].Decode(&v); err != nil {
			return err
		}
		*c = append(*c, Condition{Field: node.Content[i].Value, Value: v})
	}
	return nil
}

func (c Conditions) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, cond := range c {
		var v yaml.Node
		if err := v.Encode(cond.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: cond.Field}, &v)
	}
	return node, nil
}

// LoadFile reads and validates a plan file.
func LoadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a plan, rejecting unknown keys, and fills in defaults.
func Parse(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if err := p.applyDefaults(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Plan) applyDefaults() error {
	if p.Version == 0 {
		p.Version = CurrentVersion
	}
	if p.Version != CurrentVersion {
		return fmt.Errorf("unsupported plan version %d", p.Version)
	}
	if len(p.Jobs) == 0 {
		return fmt.Errorf("plan has no jobs")
	}
	seen := make(map[string]bool)
	for i := range p.Jobs {
		j := &p.Jobs[i]
		if j.Source == "" || j.Dest == "" {
			return fmt.Errorf("job %d: source and dest are required", i+1)
		}
		if j.Name == "" {
			j.Name = j.Source + " -> " + j.Dest
		}
		if seen[j.Name] {
			return fmt.Errorf("duplicate job name %q", j.Name)
		}
		seen[j.Name] = true
	}
	return nil
}

// Select returns the named jobs in plan order, or all jobs when names is empty.
func (p *Plan) Select(names []string) ([]JobSpec, error) {
	if len(names) == 0 {
		return p.Jobs, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []JobSpec
	for _, j := range p.Jobs {
		if want[j.Name] {
			out = append(out, j)
			delete(want, j.Name)
		}
	}
	for n := range want {
		return nil, fmt.Errorf("no job named %q in plan", n)
	}
	return out, nil
}

// DestTables lists the distinct destination tables in plan order.
func DestTables(jobs []JobSpec) []string {
	seen := make(map[string]bool)
	var out []string
	for _, j := range jobs {
		if !seen[j.Dest] {
			seen[j.Dest] = true
			out = append(out, j.Dest)
		}
	}
	return out
}
