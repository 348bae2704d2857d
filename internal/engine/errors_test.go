package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/value"
)

func runtimeError(t *testing.T, err error) *RuntimeError {
	t.Helper()
	require.Error(t, err)
	var re *RuntimeError
	require.True(t, errors.As(err, &re), "not a RuntimeError: %v", err)
	return re
}

func TestRuntimeError_Format(t *testing.T) {
	err := &RuntimeError{Code: ErrCodeTypeMismatch, Message: "bad", Collection: "users", Field: "age"}
	assert.Equal(t, "TYPE_MISMATCH: bad (field=users.age)", err.Error())

	err = &RuntimeError{Code: ErrCodeInvalidConfig, Message: "bad", Collection: "users"}
	assert.Equal(t, "INVALID_CONFIG: bad (collection=users)", err.Error())

	cause := fmt.Errorf("boom")
	err = &RuntimeError{Code: ErrCodeGeneratorFailed, Message: "boom", Err: cause}
	assert.Equal(t, "GENERATOR_FAILED: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestRuntimeError_Predicates(t *testing.T) {
	wrapped := fmt.Errorf("run: %w", &RuntimeError{Code: ErrCodeShadowNotFound})
	assert.True(t, IsReferenceError(wrapped))
	assert.False(t, IsFilteringError(wrapped))
	assert.True(t, IsConfigError(&RuntimeError{Code: ErrCodeUnknownGenerator}))
	assert.True(t, IsCycleError(&RuntimeError{Code: ErrCodeCyclicDependency}))
	assert.True(t, IsTypeError(&RuntimeError{Code: ErrCodeTypeMismatch}))
	assert.False(t, IsTypeError(errors.New("plain")))
}

func TestError_ForwardReference(t *testing.T) {
	src := `
		orders: {count: 2, item: user: {ref: "users[*].id"}}
		users: {count: 2, item: id: {gen: "sequence"}}
	`
	_, err := newEngine(t, src).Run(t.Context())
	re := runtimeError(t, err)
	assert.Equal(t, ErrCodeUnregisteredSource, re.Code)
	assert.Equal(t, "orders", re.Collection)
	assert.Equal(t, "user", re.Field)
	assert.Equal(t, "users[*].id", re.Expr)
	assert.Contains(t, re.Message, "before it is generated")

	// Nothing reads orders, so a lazy run only meets the error on output.
	res, err := newEngine(t, src, WithMemoryOptimization(true)).Run(t.Context())
	require.NoError(t, err)
	_, err = res.Value()
	assert.True(t, IsReferenceError(err))
}

func TestError_TypeMismatch(t *testing.T) {
	src := `
		users: {count: 2, item: name: "ada"}
		orders: item: user: {ref: "users[name>5].name"}
	`
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			res, err := newEngine(t, src, WithMemoryOptimization(mode.lazy)).Run(t.Context())
			if err == nil {
				_, err = res.Value()
			}
			re := runtimeError(t, err)
			assert.Equal(t, ErrCodeTypeMismatch, re.Code)
			assert.Contains(t, re.Message, "numeric comparison '>' on field 'name' requires a numeric value")
			assert.Equal(t, "orders", re.Collection)
		})
	}
}

func TestError_NullFieldNeverMatchesNumeric(t *testing.T) {
	src := `
		users: {count: 2, item: age: null}
		orders: item: user: {ref: "users[age>5].age"}
	`
	res := runSchema(t, src)
	assert.Equal(t, []value.Value{value.Null{}}, column(t, res, "orders", "user"))
}

func TestError_ShadowNotBoundYet(t *testing.T) {
	src := `
		users: {count: 2, item: id: {gen: "sequence"}}
		orders: item: {
			early: {ref: "$later.id"}
			"$later": {ref: "users[*]"}
		}
	`
	_, err := newEngine(t, src).Run(t.Context())
	re := runtimeError(t, err)
	assert.Equal(t, ErrCodeShadowNotFound, re.Code)
	assert.Equal(t, "early", re.Field)
}

func TestError_UnmappedRuntimeOption(t *testing.T) {
	src := `
		u: item: {
			tier: "bronze"
			discount: {gen: "number", max: {ref: "this.tier", map: {gold: 50}}}
		}
	`
	_, err := newEngine(t, src).Run(t.Context())
	re := runtimeError(t, err)
	assert.Equal(t, ErrCodeInvalidConfig, re.Code)
	assert.Equal(t, "No mapping found for value 'bronze' in option 'max'", re.Message)
	assert.Equal(t, "INVALID_CONFIG: No mapping found for value 'bronze' in option 'max' (field=u.discount)", re.Error())
}

func TestError_GeneratorFailure(t *testing.T) {
	_, err := newEngine(t, `u: item: n: {gen: "number", min: 5, max: 1}`).Run(t.Context())
	re := runtimeError(t, err)
	assert.Equal(t, ErrCodeGeneratorFailed, re.Code)
	assert.Equal(t, "n", re.Field)
	assert.Error(t, errors.Unwrap(re))
}

func TestError_UnknownGenerator(t *testing.T) {
	tree := dsl.NewTree(nil, &dsl.Collection{
		Key:   "things",
		Count: 1,
		Item:  dsl.NewTemplate(dsl.Field{Name: "x", Node: &dsl.Generated{Generator: "nope"}}),
	})
	eng, err := New(tree, nil, quiet())
	require.NoError(t, err)
	_, err = eng.Run(t.Context())
	assert.True(t, IsConfigError(err))
	assert.EqualError(t, err, "UNKNOWN_GENERATOR: Unknown generator: nope (field=things.x)")
}

func TestError_SelfPathIntoScalar(t *testing.T) {
	tree := dsl.NewTree(nil, &dsl.Collection{
		Key:   "points",
		Count: 1,
		Item: dsl.NewTemplate(
			dsl.Field{Name: "x", Node: &dsl.Literal{Value: value.Int(1)}},
			dsl.Field{Name: "y", Node: &dsl.Reference{Expr: "this.x.deep"}},
		),
	})
	eng, err := New(tree, nil, quiet())
	require.NoError(t, err)
	_, err = eng.Run(t.Context())
	re := runtimeError(t, err)
	assert.Equal(t, ErrCodeInvalidReference, re.Code)
	assert.Equal(t, "this.x.deep", re.Expr)
	assert.Contains(t, re.Message, "field 'x' is not an object")
}
