package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataforge/internal/value"
)

func collections() *value.Object {
	return value.ObjectOf(
		value.P("users", value.Array{
			value.ObjectOf(value.P("id", value.Int(1)), value.P("address", value.ObjectOf(value.P("city", value.String("Oslo"))))),
			value.ObjectOf(value.P("id", value.Int(2)), value.P("address", value.ObjectOf(value.P("city", value.String("Bergen"))))),
		}),
		value.P("empty", value.Array{}),
	)
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	two, zero := 2, 0
	errs := EvaluateAssertions(collections(), []Assertion{
		{Type: AssertCount, Collection: "users", Count: &two},
		{Type: AssertCount, Collection: "empty", Count: &zero},
		{Type: AssertFieldIn, Collection: "users", Field: "address.city", Values: []any{"Oslo", "Bergen"}},
		{Type: AssertUnique, Collection: "users", Field: "address.city"},
		{Type: AssertNotContains, Collection: "users", Field: "id", Values: []any{0, 3.5}},
		{Type: AssertFieldEquals, Collection: "empty", Field: "id", Value: 7},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_NestedFieldFailure(t *testing.T) {
	errs := EvaluateAssertions(collections(), []Assertion{
		{Type: AssertFieldEquals, Collection: "users", Field: "address.city", Value: "Oslo"},
	})
	require.Len(t, errs, 1)
	assert.Equal(t, "Assertion failed: field_equals on users.address.city (item 1)\n  Expected: \"Oslo\"\n  Actual: \"Bergen\"", errs[0])
}

func TestEvaluateAssertions_MissingFieldIsNull(t *testing.T) {
	errs := EvaluateAssertions(collections(), []Assertion{
		{Type: AssertFieldIn, Collection: "users", Field: "email", Values: []any{"a@b.c"}},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Actual: null")
}

func TestEvaluateAssertions_CollectsEveryFailure(t *testing.T) {
	one := 1
	errs := EvaluateAssertions(collections(), []Assertion{
		{Type: AssertCount, Collection: "users", Count: &one},
		{Type: AssertUnique, Collection: "users", Field: "id"},
		{Type: AssertCount, Collection: "orders", Count: &one},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "count on users")
	assert.Contains(t, errs[1], "collection to exist")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(collections(), []Assertion{{Type: "sorted", Collection: "users"}})
	require.Len(t, errs, 1)
	assert.Equal(t, "unknown assertion type: sorted", errs[0])
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: AssertCount, Collection: "users", Expected: "3 items", Actual: "2 items", Index: -1}
	assert.Equal(t, "Assertion failed: count on users\n  Expected: 3 items\n  Actual: 2 items", err.Error())
}
