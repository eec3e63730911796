package engine

import (
	"context"
	"sort"

	"db-tube/internal/schema"
)

// RuleKind tags a Rule.
type RuleKind int

const (
	AliasRule RuleKind = iota + 1
	TransformRule
)

// TransformFunc derives one destination value from a source record.
type TransformFunc func(ctx context.Context, src *Record) (any, error)

// Rule tells how one destination field is derived: either by reading a
// source field (alias) or by calling a transform.
type Rule struct {
	Kind   RuleKind
	Source string        // AliasRule
	Fn     TransformFunc // TransformRule
	Desc   string        // TransformRule, for display
}

// Alias reads field from the source record.
func Alias(field string) Rule {
	return Rule{Kind: AliasRule, Source: field}
}

// Transform computes the value with fn; desc is shown in plans and logs.
func Transform(desc string, fn TransformFunc) Rule {
	return Rule{Kind: TransformRule, Fn: fn, Desc: desc}
}

func (r Rule) String() string {
	switch r.Kind {
	case AliasRule:
		return r.Source
	case TransformRule:
		return "<" + r.Desc + ">"
	default:
		return "<invalid rule>"
	}
}

// Mapping maps destination fields to rules.
type Mapping map[string]Rule

// Fields returns the destination fields, sorted.
func (m Mapping) Fields() []string {
	out := make([]string, 0, len(m))
	for f := range m {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Resolve merges two field sets into a mapping. Every identifier present in
// both sets maps to itself; overrides are then written on top, replacing any
// identity alias for the same key. Keys are not checked against dst here,
// unknown fields fail when records are built.
func Resolve(src, dst schema.FieldSet, overrides Mapping) Mapping {
	result := make(Mapping)
	inSource := make(map[string]bool)
	for _, f := range src.Identifiers() {
		inSource[f] = true
	}
	for _, f := range dst.Identifiers() {
		if inSource[f] {
			result[f] = Alias(f)
		}
	}
	for k, rule := range overrides {
		result[k] = rule
	}
	return result
}

// Suggestion proposes an alias for a destination field nothing maps to.
type Suggestion struct {
	Dest    string
	Source  string
	Meaning string
}

// Suggest pairs unmapped destination fields with source fields whose decoded
// names match ("usr_nm" and "user_name"). Source fields already read by an
// alias are not offered again.
func Suggest(src, dst schema.FieldSet, m Mapping) []Suggestion {
	used := make(map[string]bool)
	for _, rule := range m {
		if rule.Kind == AliasRule {
			used[rule.Source] = true
		}
	}
	byMeaning := make(map[string]string)
	for _, f := range src.Identifiers() {
		if used[f] {
			continue
		}
		meaning := schema.DecodeName(f)
		if _, dup := byMeaning[meaning]; !dup {
			byMeaning[meaning] = f
		}
	}

	var out []Suggestion
	for _, f := range dst.Identifiers() {
		if _, mapped := m[f]; mapped {
			continue
		}
		meaning := schema.DecodeName(f)
		if s, ok := byMeaning[meaning]; ok {
			out = append(out, Suggestion{Dest: f, Source: s, Meaning: meaning})
			delete(byMeaning, meaning)
		}
	}
	return out
}
