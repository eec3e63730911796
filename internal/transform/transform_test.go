package transform_test

import (
	"context"
	"errors"
	"testing"

	"db-tube/internal/engine"
	"db-tube/internal/transform"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var layout = engine.NewLayout("legacy_user", []string{"id", "first", "last", "age", "profile"})

func row() *engine.Record {
	return layout.Wrap([]any{int64(7), "Ada", "Lovelace", int64(36), `{"tel":{"home":"02-123"},"tags":["a","b"]}`})
}

func eval(t *testing.T, r engine.Rule) any {
	t.Helper()
	require.Equal(t, engine.TransformRule, r.Kind)
	v, err := r.Fn(context.Background(), row())
	require.NoError(t, err)
	return v
}

func TestValue(t *testing.T) {
	assert.Equal(t, "member", eval(t, transform.Value("member")))
	assert.Nil(t, eval(t, transform.Value(nil)))
}

func TestTemplate(t *testing.T) {
	r, err := transform.Template(`{{ .first | lower }}.{{ .last | upper }}#{{ .id }}`)
	require.NoError(t, err)
	assert.Equal(t, "ada.LOVELACE#7", eval(t, r))

	r, err = transform.Template(`{{ .nickname }}`)
	require.NoError(t, err)
	_, err = r.Fn(context.Background(), row())
	assert.Error(t, err)

	_, err = transform.Template(`{{ .first `)
	assert.Error(t, err)
}

func TestScript(t *testing.T) {
	r, err := transform.Script(`row.first + " " + row.last`)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", eval(t, r))

	r, err = transform.Script(`row.age > 30`)
	require.NoError(t, err)
	assert.Equal(t, true, eval(t, r))

	r, err = transform.Script(`row.missing`)
	require.NoError(t, err)
	assert.Nil(t, eval(t, r))

	_, err = transform.Script(`row.first +`)
	assert.Error(t, err)
}

func TestJSON(t *testing.T) {
	r, err := transform.JSON("profile", "tel.home")
	require.NoError(t, err)
	assert.Equal(t, "02-123", eval(t, r))

	r, err = transform.JSON("profile", "tags.#")
	require.NoError(t, err)
	assert.Equal(t, float64(2), eval(t, r))

	r, err = transform.JSON("profile", "tel.work")
	require.NoError(t, err)
	assert.Nil(t, eval(t, r))

	r, err = transform.JSON("first", "x")
	require.NoError(t, err)
	_, err = r.Fn(context.Background(), row())
	assert.Error(t, err, "not JSON")

	_, err = transform.JSON("", "x")
	assert.Error(t, err)
}

type mapResolver map[any]any

func (m mapResolver) Get(_ context.Context, table, key, column string, value any) (any, error) {
	if v, ok := m[value]; ok {
		return v, nil
	}
	return nil, errors.New("not found")
}

func TestLookup(t *testing.T) {
	r, err := transform.Lookup(mapResolver{int64(7): "ada@example.com"}, transform.LookupSpec{
		Table: "user", Key: "id", From: "id", Column: "email",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", eval(t, r))
	assert.Equal(t, "<lookup user.email by id=id>", r.String())

	r, err = transform.Lookup(mapResolver{}, transform.LookupSpec{Table: "user", Key: "id", From: "owner", Column: "email"})
	require.NoError(t, err)
	_, err = r.Fn(context.Background(), row())
	assert.Error(t, err)
}

func TestUUID(t *testing.T) {
	r := transform.UUID()
	a, b := eval(t, r), eval(t, r)
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a.(string))
	assert.NoError(t, err)
}

func TestCompile(t *testing.T) {
	r, err := transform.Compile(transform.Constant(nil), nil)
	require.NoError(t, err)
	assert.Nil(t, eval(t, r))

	r, err = transform.Compile(transform.Spec{Template: "{{ .first }}"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ada", eval(t, r))

	_, err = transform.Compile(transform.Spec{}, nil)
	assert.Error(t, err)

	_, err = transform.Compile(transform.Spec{Template: "x", Script: "y"}, nil)
	assert.Error(t, err)

	_, err = transform.Compile(transform.Spec{Lookup: &transform.LookupSpec{Table: "user"}}, nil)
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	r, err := transform.Mask(transform.MaskSpec{Field: "first", As: "name"})
	require.NoError(t, err)
	a, b := eval(t, r), eval(t, r)
	assert.Equal(t, a, b, "same input, same mask")
	assert.NotEqual(t, "Ada", a)
	assert.Equal(t, "<mask first as name>", r.String())

	r, err = transform.Mask(transform.MaskSpec{Field: "first", As: "email"})
	require.NoError(t, err)
	other, err := r.Fn(context.Background(), layout.Wrap([]any{int64(8), "Grace", "Hopper", int64(40), nil}))
	require.NoError(t, err)
	assert.NotEqual(t, eval(t, r), other)

	r, err = transform.Mask(transform.MaskSpec{Field: "profile", As: "phone"})
	require.NoError(t, err)
	assert.Regexp(t, `^010-\d{4}-\d{4}$`, eval(t, r))

	r, err = transform.Mask(transform.MaskSpec{Field: "last", As: "text", Length: 5})
	require.NoError(t, err)
	assert.Len(t, []rune(eval(t, r).(string)), 5)

	r, err = transform.Mask(transform.MaskSpec{Field: "profile"})
	require.NoError(t, err)
	nilRow := layout.Wrap([]any{int64(1), "a", "b", int64(1), nil})
	v, err := r.Fn(context.Background(), nilRow)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = transform.Mask(transform.MaskSpec{Field: "first", As: "ssn"})
	assert.Error(t, err)
	_, err = transform.Mask(transform.MaskSpec{})
	assert.Error(t, err)
}

func TestMask_AutoKind(t *testing.T) {
	l := engine.NewLayout("legacy", []string{"usr_nm", "tel_no", "email"})
	rec := l.Wrap([]any{"Kim", "02-000-0000", "kim@x.io"})

	r, err := transform.Mask(transform.MaskSpec{Field: "tel_no", As: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "<mask tel_no as phone>", r.String())

	r, err = transform.Mask(transform.MaskSpec{Field: "email"})
	require.NoError(t, err)
	v, err := r.Fn(context.Background(), rec)
	require.NoError(t, err)
	assert.Contains(t, v, "@")

	r, err = transform.Mask(transform.MaskSpec{Field: "usr_nm"})
	require.NoError(t, err)
	assert.Equal(t, "<mask usr_nm as name>", r.String())
}
