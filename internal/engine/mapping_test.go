package engine

import (
	"context"
	"testing"

	"db-tube/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_SharedFieldsAlias(t *testing.T) {
	m := Resolve(legacyFields, userFields, nil)

	assert.Equal(t, []string{"age", "email", "id", "is_admin"}, m.Fields())
	for _, f := range m.Fields() {
		assert.Equal(t, Alias(f), m[f])
	}
}

func TestResolve_OverridesWin(t *testing.T) {
	custom := Transform("constant", func(context.Context, *Record) (any, error) { return 7, nil })
	m := Resolve(legacyFields, userFields, Mapping{
		"user_name": Alias("usr_nm"),
		"age":       custom,
		"nickname":  Alias("usr_nm"), // not a destination field, kept anyway
	})

	assert.Equal(t, Alias("usr_nm"), m["user_name"])
	assert.Equal(t, TransformRule, m["age"].Kind)
	assert.Equal(t, "<constant>", m["age"].String())
	assert.Contains(t, m, "nickname")
	assert.Equal(t, Alias("email"), m["email"])
}

func TestResolve_ReferenceConvention(t *testing.T) {
	src := schema.FieldSet{Fields: []string{"id", "owner"}, Reference: map[string]bool{"owner": true}, Convention: schema.SuffixID}
	dst := schema.FieldSet{Fields: []string{"id", "owner_id"}}

	m := Resolve(src, dst, nil)
	assert.Equal(t, Mapping{"id": Alias("id"), "owner_id": Alias("owner_id")}, m)
}

func TestResolve_NoSharedFields(t *testing.T) {
	src := schema.FieldSet{Fields: []string{"a"}}
	dst := schema.FieldSet{Fields: []string{"b"}}
	assert.Empty(t, Resolve(src, dst, nil))
}

func TestSuggest(t *testing.T) {
	dst := schema.FieldSet{Fields: []string{"id", "user_name", "created_date"}}
	src := schema.FieldSet{Fields: []string{"id", "usr_nm", "cre_dt", "usr_name"}}
	m := Resolve(src, dst, nil)

	got := Suggest(src, dst, m)
	require.Len(t, got, 2)
	assert.Equal(t, Suggestion{Dest: "user_name", Source: "usr_nm", Meaning: "user name"}, got[0])
	assert.Equal(t, Suggestion{Dest: "created_date", Source: "cre_dt", Meaning: "created date"}, got[1])
}

func TestSuggest_SkipsUsedSources(t *testing.T) {
	dst := schema.FieldSet{Fields: []string{"user_name", "login"}}
	src := schema.FieldSet{Fields: []string{"usr_nm"}}
	m := Mapping{"login": Alias("usr_nm")}

	assert.Empty(t, Suggest(src, dst, m))
}

func TestRecord(t *testing.T) {
	l := NewLayout("user", []string{"id", "name", "bio"})
	r := l.Empty()

	require.NoError(t, r.Set("name", "kim"))
	require.NoError(t, r.Set("bio", []byte("hi")))
	assert.Error(t, r.Set("missing", 1))

	assert.True(t, r.IsAssigned("name"))
	assert.False(t, r.IsAssigned("id"))
	assert.Equal(t, []string{"name", "bio"}, r.Assigned())
	assert.Equal(t, "user{bio=hi, name=kim}", r.String())

	v, ok := r.Get("id")
	assert.True(t, ok)
	assert.Nil(t, v)
	_, ok = r.Get("missing")
	assert.False(t, ok)

	w := l.Wrap([]any{1, "lee", nil})
	assert.Equal(t, []string{"id", "name", "bio"}, w.Assigned())
	assert.Equal(t, map[string]any{"id": 1, "name": "lee", "bio": nil}, w.Map())
}
