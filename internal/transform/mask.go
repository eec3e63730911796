package transform

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"db-tube/internal/engine"
	"db-tube/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
)

// MaskSpec replaces the value of Field with a fake one of kind As. Length
// caps the result in runes when positive.
type MaskSpec struct {
	Field  string `yaml:"field"`
	As     string `yaml:"as"` // name, phone, email, address, zipcode, text or auto
	Length int    `yaml:"length,omitempty"`
}

var maskers = map[string]func(f *gofakeit.Faker) string{
	"name": func(f *gofakeit.Faker) string {
		return pick(f, lastNames) + pick(f, firstNames)
	},
	"phone": func(f *gofakeit.Faker) string {
		return fmt.Sprintf("010-%04d-%04d", f.Number(0, 9999), f.Number(0, 9999))
	},
	"email": func(f *gofakeit.Faker) string { return f.Email() },
	"address": func(f *gofakeit.Faker) string {
		return fmt.Sprintf("%s %s %s %d번길", pick(f, cities), pick(f, districts), pick(f, streets), f.Number(1, 100))
	},
	"zipcode": func(f *gofakeit.Faker) string { return fmt.Sprintf("%05d", f.Number(0, 99999)) },
	"text":    func(f *gofakeit.Faker) string { return f.Sentence(8) },
}

func pick(f *gofakeit.Faker, words []string) string {
	return words[f.Number(0, len(words)-1)]
}

// maskKind maps a decoded column meaning to a masker.
func maskKind(field string) string {
	meaning := schema.AnalyzeMeaning(field, "")
	for _, kind := range []string{"phone", "email", "address", "zipcode", "name"} {
		if strings.Contains(meaning, kind) {
			return kind
		}
	}
	return "text"
}

// Mask anonymizes a source field. Equal inputs give equal outputs, so masked
// values still join across tables. Nil stays nil.
func Mask(spec MaskSpec) (engine.Rule, error) {
	if spec.Field == "" {
		return engine.Rule{}, fmt.Errorf("mask needs a field")
	}
	kind := spec.As
	if kind == "" || kind == "auto" {
		kind = maskKind(spec.Field)
	}
	gen, ok := maskers[kind]
	if !ok {
		return engine.Rule{}, fmt.Errorf("unknown mask kind %q", spec.As)
	}

	return engine.Transform(fmt.Sprintf("mask %s as %s", spec.Field, kind), func(_ context.Context, src *engine.Record) (any, error) {
		v, ok := src.Get(spec.Field)
		if !ok {
			return nil, fmt.Errorf("source has no field %q", spec.Field)
		}
		if v == nil {
			return nil, nil
		}
		h := fnv.New64a()
		fmt.Fprintf(h, "%s:%v", kind, v)
		return truncate(gen(gofakeit.New(int64(h.Sum64()))), spec.Length), nil
	}), nil
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}
