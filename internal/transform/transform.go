// Package transform compiles computed field definitions into engine rules.
package transform

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"db-tube/internal/engine"

	"github.com/Masterminds/sprig"
	"github.com/google/uuid"
	"github.com/robertkrimen/otto"
	"github.com/tidwall/gjson"
)

// Spec is one computed field as written in a migration plan. Exactly one
// member must be set.
type Spec struct {
	Value    any         `yaml:"value,omitempty"`
	Template string      `yaml:"template,omitempty"`
	Script   string      `yaml:"script,omitempty"`
	JSON     *JSONSpec   `yaml:"json,omitempty"`
	Lookup   *LookupSpec `yaml:"lookup,omitempty"`
	Mask     *MaskSpec   `yaml:"mask,omitempty"`
	UUID     bool        `yaml:"uuid,omitempty"`

	hasValue bool
}

// JSONSpec extracts Path from the JSON text stored in Field.
type JSONSpec struct {
	Field string `yaml:"field"`
	Path  string `yaml:"path"`
}

// LookupSpec reads Column of the Table row whose Key equals source field From.
type LookupSpec struct {
	Table  string `yaml:"table"`
	Key    string `yaml:"key"`
	From   string `yaml:"from"`
	Column string `yaml:"column"`
}

// Resolver answers lookups; store.Lookup implements it.
type Resolver interface {
	Get(ctx context.Context, table, key, column string, value any) (any, error)
}

// Constant builds a value spec; nil is a valid constant.
func Constant(v any) Spec { return Spec{Value: v, hasValue: true} }

// MarkValue records that the value member was present in the source document.
func (s *Spec) MarkValue() { s.hasValue = true }

func (s Spec) kinds() []string {
	var k []string
	if s.hasValue || s.Value != nil {
		k = append(k, "value")
	}
	if s.Template != "" {
		k = append(k, "template")
	}
	if s.Script != "" {
		k = append(k, "script")
	}
	if s.JSON != nil {
		k = append(k, "json")
	}
	if s.Lookup != nil {
		k = append(k, "lookup")
	}
	if s.Mask != nil {
		k = append(k, "mask")
	}
	if s.UUID {
		k = append(k, "uuid")
	}
	return k
}

// Compile turns spec into a transform rule. lookups may be nil when the
// spec is not a lookup.
func Compile(spec Spec, lookups Resolver) (engine.Rule, error) {
	kinds := spec.kinds()
	if len(kinds) != 1 {
		return engine.Rule{}, fmt.Errorf("computed field needs exactly one of value, template, script, json, lookup, mask, uuid; got %v", kinds)
	}
	switch kinds[0] {
	case "value":
		return Value(spec.Value), nil
	case "template":
		return Template(spec.Template)
	case "script":
		return Script(spec.Script)
	case "json":
		return JSON(spec.JSON.Field, spec.JSON.Path)
	case "lookup":
		if lookups == nil {
			return engine.Rule{}, fmt.Errorf("lookup into %s needs a database handle", spec.Lookup.Table)
		}
		return Lookup(lookups, *spec.Lookup)
	case "mask":
		return Mask(*spec.Mask)
	default:
		return UUID(), nil
	}
}

// Value always yields v.
func Value(v any) engine.Rule {
	return engine.Transform(fmt.Sprintf("value %v", v), func(context.Context, *engine.Record) (any, error) {
		return v, nil
	})
}

// Template renders a text/template with the source row as dot. Sprig
// functions are available.
func Template(text string) (engine.Rule, error) {
	tmpl, err := template.New("field").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return engine.Rule{}, fmt.Errorf("parse template %q: %w", text, err)
	}
	return engine.Transform("template "+text, func(_ context.Context, src *engine.Record) (any, error) {
		var b strings.Builder
		if err := tmpl.Execute(&b, src.Map()); err != nil {
			return nil, err
		}
		return b.String(), nil
	}), nil
}

// Script evaluates a JavaScript expression with the source row bound to
// "row". The interpreter is reused across records.
func Script(code string) (engine.Rule, error) {
	vm := otto.New()
	script, err := vm.Compile("", code)
	if err != nil {
		return engine.Rule{}, fmt.Errorf("compile script %q: %w", code, err)
	}
	return engine.Transform("script "+code, func(_ context.Context, src *engine.Record) (any, error) {
		if err := vm.Set("row", src.Map()); err != nil {
			return nil, err
		}
		v, err := vm.Run(script)
		if err != nil {
			return nil, err
		}
		if v.IsUndefined() || v.IsNull() {
			return nil, nil
		}
		return v.Export()
	}), nil
}

// JSON extracts a gjson path from a JSON text field. A missing path yields nil.
func JSON(field, path string) (engine.Rule, error) {
	if field == "" || path == "" {
		return engine.Rule{}, fmt.Errorf("json transform needs field and path")
	}
	return engine.Transform(fmt.Sprintf("json %s:%s", field, path), func(_ context.Context, src *engine.Record) (any, error) {
		v, ok := src.Get(field)
		if !ok {
			return nil, fmt.Errorf("source has no field %q", field)
		}
		var doc string
		switch x := v.(type) {
		case nil:
			return nil, nil
		case string:
			doc = x
		case []byte:
			doc = string(x)
		default:
			return nil, fmt.Errorf("field %q holds %T, not JSON text", field, v)
		}
		if !gjson.Valid(doc) {
			return nil, fmt.Errorf("field %q is not valid JSON", field)
		}
		res := gjson.Get(doc, path)
		if !res.Exists() {
			return nil, nil
		}
		return res.Value(), nil
	}), nil
}

// Lookup follows a reference: it reads the source field From and returns
// Column of the matching row in Table.
func Lookup(r Resolver, spec LookupSpec) (engine.Rule, error) {
	if spec.Table == "" || spec.Key == "" || spec.From == "" || spec.Column == "" {
		return engine.Rule{}, fmt.Errorf("lookup needs table, key, from and column")
	}
	desc := fmt.Sprintf("lookup %s.%s by %s=%s", spec.Table, spec.Column, spec.Key, spec.From)
	return engine.Transform(desc, func(ctx context.Context, src *engine.Record) (any, error) {
		v, ok := src.Get(spec.From)
		if !ok {
			return nil, fmt.Errorf("source has no field %q", spec.From)
		}
		return r.Get(ctx, spec.Table, spec.Key, spec.Column, v)
	}), nil
}

// UUID yields a new random UUID string for every record.
func UUID() engine.Rule {
	return engine.Transform("uuid", func(context.Context, *engine.Record) (any, error) {
		return uuid.NewString(), nil
	})
}
