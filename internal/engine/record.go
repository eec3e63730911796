package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Layout is the field accessor table of one record type: field name to
// position. It is built once per job and shared by all records of the type.
type Layout struct {
	name   string
	fields []string
	index  map[string]int
}

// NewLayout indexes fields in the given order.
func NewLayout(name string, fields []string) *Layout {
	l := &Layout{name: name, fields: append([]string(nil), fields...), index: make(map[string]int, len(fields))}
	for i, f := range l.fields {
		l.index[f] = i
	}
	return l
}

func (l *Layout) Name() string     { return l.name }
func (l *Layout) Fields() []string { return l.fields }

// Index returns the position of field.
func (l *Layout) Index(field string) (int, bool) {
	i, ok := l.index[field]
	return i, ok
}

// Empty returns a record with no field assigned.
func (l *Layout) Empty() *Record {
	return &Record{layout: l, values: make([]any, len(l.fields)), assigned: make([]bool, len(l.fields))}
}

// Wrap adopts values as a fully assigned record. values must follow the
// layout's field order.
func (l *Layout) Wrap(values []any) *Record {
	assigned := make([]bool, len(values))
	for i := range assigned {
		assigned[i] = true
	}
	return &Record{layout: l, values: values, assigned: assigned}
}

// Record is a row addressed through its Layout.
type Record struct {
	layout   *Layout
	values   []any
	assigned []bool
}

func (r *Record) Layout() *Layout { return r.layout }

// Get reads field. ok is false when the layout has no such field.
func (r *Record) Get(field string) (v any, ok bool) {
	i, ok := r.layout.index[field]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Set assigns field.
func (r *Record) Set(field string, v any) error {
	i, ok := r.layout.index[field]
	if !ok {
		return fmt.Errorf("%s has no field %q", r.layout.name, field)
	}
	r.values[i] = v
	r.assigned[i] = true
	return nil
}

// IsAssigned reports whether field was set since the record was created.
func (r *Record) IsAssigned(field string) bool {
	i, ok := r.layout.index[field]
	return ok && r.assigned[i]
}

// Assigned returns the assigned field names in layout order.
func (r *Record) Assigned() []string {
	var out []string
	for i, f := range r.layout.fields {
		if r.assigned[i] {
			out = append(out, f)
		}
	}
	return out
}

// Values returns the values in layout order.
func (r *Record) Values() []any { return r.values }

// Map copies the assigned fields into a map.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for i, f := range r.layout.fields {
		if r.assigned[i] {
			m[f] = r.values[i]
		}
	}
	return m
}

func (r *Record) String() string {
	if r == nil {
		return "<nil>"
	}
	m := r.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		v := m[k]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		parts[i] = fmt.Sprintf("%s=%v", k, v)
	}
	return r.layout.name + "{" + strings.Join(parts, ", ") + "}"
}
