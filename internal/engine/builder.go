package engine

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// FillPolicy decides when a default value fills a destination field.
type FillPolicy int

const (
	// FillFalsy fills fields that are unassigned, nil, false, zero, empty
	// or the zero time.
	FillFalsy FillPolicy = iota
	// FillNull fills only unassigned or nil fields, keeping explicit zero values.
	FillNull
)

// ParseFillPolicy accepts "falsy" (or "") and "null".
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch s {
	case "", "falsy":
		return FillFalsy, nil
	case "null":
		return FillNull, nil
	}
	return FillFalsy, &ConfigurationError{Reason: fmt.Sprintf("unknown fill policy %q (want falsy or null)", s)}
}

func (p FillPolicy) String() string {
	if p == FillNull {
		return "null"
	}
	return "falsy"
}

// Builder turns source records into destination records.
type Builder struct {
	dest     *Layout
	mapping  Mapping
	fields   []string // mapping keys, sorted for a stable evaluation order
	defaults map[string]any
	dfields  []string
	fill     FillPolicy
}

func NewBuilder(dest *Layout, mapping Mapping, defaults map[string]any, fill FillPolicy) *Builder {
	b := &Builder{dest: dest, mapping: mapping, fields: mapping.Fields(), defaults: defaults, fill: fill}
	for f := range defaults {
		b.dfields = append(b.dfields, f)
	}
	sort.Strings(b.dfields)
	return b
}

// Build evaluates every rule against src, constructs the destination record
// and fills gaps from the defaults. On error no record is returned.
func (b *Builder) Build(ctx context.Context, src *Record) (*Record, error) {
	values := make([]any, len(b.fields))
	for i, field := range b.fields {
		rule := b.mapping[field]
		switch rule.Kind {
		case TransformRule:
			v, err := rule.Fn(ctx, src)
			if err != nil {
				return nil, &MappingError{Field: field, Record: src, Err: err}
			}
			values[i] = v
		case AliasRule:
			v, ok := src.Get(rule.Source)
			if !ok {
				return nil, &MappingError{Field: field, Record: src, Err: fmt.Errorf("source has no field %q", rule.Source)}
			}
			values[i] = v
		default:
			return nil, &MappingError{Field: field, Record: src, Err: fmt.Errorf("invalid rule kind %d", rule.Kind)}
		}
	}

	rec := b.dest.Empty()
	for i, field := range b.fields {
		if err := rec.Set(field, values[i]); err != nil {
			return nil, &MappingError{Field: field, Record: src, Err: err}
		}
	}

	for _, field := range b.dfields {
		v, _ := rec.Get(field)
		if b.unset(v, rec.IsAssigned(field)) {
			if err := rec.Set(field, b.defaults[field]); err != nil {
				return nil, &MappingError{Field: field, Record: src, Err: err}
			}
		}
	}
	return rec, nil
}

func (b *Builder) unset(v any, assigned bool) bool {
	if !assigned || v == nil {
		return true
	}
	return b.fill == FillFalsy && isFalsy(v)
}

func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case []byte:
		return len(x) == 0
	case int:
		return x == 0
	case int8:
		return x == 0
	case int16:
		return x == 0
	case int32:
		return x == 0
	case int64:
		return x == 0
	case uint:
		return x == 0
	case uint8:
		return x == 0
	case uint16:
		return x == 0
	case uint32:
		return x == 0
	case uint64:
		return x == 0
	case float32:
		return x == 0
	case float64:
		return x == 0
	case time.Time:
		return x.IsZero()
	}
	return false
}
