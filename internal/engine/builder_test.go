package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserBuilder(overrides Mapping, defaults map[string]any, fill FillPolicy) *Builder {
	m := Resolve(legacyFields, userFields, overrides)
	return NewBuilder(NewLayout("user", userFields.Identifiers()), m, defaults, fill)
}

func legacyRecord(values ...any) *Record {
	return NewLayout("legacy_user", legacyFields.Fields).Wrap(values)
}

func TestBuild_MapsEveryRule(t *testing.T) {
	b := newUserBuilder(Mapping{
		"user_name": Alias("usr_nm"),
		"role": Transform("admin flag", func(_ context.Context, src *Record) (any, error) {
			if v, _ := src.Get("is_admin"); v == true {
				return "admin", nil
			}
			return "member", nil
		}),
	}, nil, FillFalsy)

	for _, row := range fakeLegacyRows(20) {
		src := legacyRecord(row...)
		rec, err := b.Build(context.Background(), src)
		require.NoError(t, err)

		want := map[string]any{
			"id":        row[0],
			"email":     row[1],
			"age":       row[2],
			"user_name": row[3],
			"is_admin":  row[4],
			"role":      "member",
		}
		if row[4] == true {
			want["role"] = "admin"
		}
		assert.Equal(t, want, rec.Map())
	}
}

func TestBuild_MissingSourceField(t *testing.T) {
	b := newUserBuilder(Mapping{"user_name": Alias("login")}, nil, FillFalsy)

	rec, err := b.Build(context.Background(), legacyRecord(int64(1), "a@b.c", int64(3), "kim", false))
	assert.Nil(t, rec)

	var me *MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "user_name", me.Field)
	assert.NotNil(t, me.Record)
}

func TestBuild_TransformError(t *testing.T) {
	b := newUserBuilder(Mapping{"user_name": userNameRule()}, nil, FillFalsy)

	rec, err := b.Build(context.Background(), legacyRecord(int64(1), "a@b.c", int64(3), "", false))
	assert.Nil(t, rec)
	assert.True(t, errors.Is(err, errEmptyName))

	var me *MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "user_name", me.Field)
}

func TestBuild_UnknownDestinationField(t *testing.T) {
	b := newUserBuilder(Mapping{"nickname": Alias("usr_nm")}, nil, FillFalsy)

	rec, err := b.Build(context.Background(), legacyRecord(int64(1), "a@b.c", int64(3), "kim", false))
	assert.Nil(t, rec)

	var me *MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "nickname", me.Field)
}

func TestBuild_DefaultsFillFalsy(t *testing.T) {
	defaults := map[string]any{"role": "member", "age": int64(20), "email": "none", "is_admin": true}
	b := newUserBuilder(nil, defaults, FillFalsy)

	rec, err := b.Build(context.Background(), legacyRecord(int64(1), "", int64(0), "kim", false))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"id":       int64(1),
		"email":    "none",    // empty string replaced
		"age":      int64(20), // zero replaced
		"is_admin": true,      // false replaced
		"role":     "member",  // never assigned
	}, rec.Map())
	assert.False(t, rec.IsAssigned("user_name"))
}

func TestBuild_DefaultsFillNull(t *testing.T) {
	defaults := map[string]any{"role": "member", "age": int64(20), "email": "none"}
	b := newUserBuilder(nil, defaults, FillNull)

	rec, err := b.Build(context.Background(), legacyRecord(int64(1), nil, int64(0), "kim", false))
	require.NoError(t, err)

	m := rec.Map()
	assert.Equal(t, "none", m["email"])
	assert.Equal(t, int64(0), m["age"])
	assert.Equal(t, false, m["is_admin"])
	assert.Equal(t, "member", m["role"])
}

func TestBuild_DefaultsNeverOverrideValues(t *testing.T) {
	defaults := map[string]any{"email": "none", "age": int64(1)}
	for _, fill := range []FillPolicy{FillFalsy, FillNull} {
		b := newUserBuilder(nil, defaults, fill)
		rec, err := b.Build(context.Background(), legacyRecord(int64(1), "kim@x.io", int64(33), "kim", true))
		require.NoError(t, err)

		m := rec.Map()
		assert.Equal(t, "kim@x.io", m["email"], fill.String())
		assert.Equal(t, int64(33), m["age"], fill.String())
	}
}

func TestIsFalsy(t *testing.T) {
	for _, v := range []any{nil, false, "", []byte{}, 0, int64(0), uint8(0), 0.0, time.Time{}} {
		assert.True(t, isFalsy(v), "%#v", v)
	}
	for _, v := range []any{true, "x", []byte("x"), 1, int32(-1), 0.5, time.Now(), struct{}{}} {
		assert.False(t, isFalsy(v), "%#v", v)
	}
}

func TestParseFillPolicy(t *testing.T) {
	p, err := ParseFillPolicy("")
	require.NoError(t, err)
	assert.Equal(t, FillFalsy, p)

	p, err = ParseFillPolicy("null")
	require.NoError(t, err)
	assert.Equal(t, FillNull, p)

	_, err = ParseFillPolicy("zero")
	var ce *ConfigurationError
	assert.ErrorAs(t, err, &ce)
}
