package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Float(1.5)
	var _ Value = Bool(true)
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = NewObject(0)
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	obj := ObjectOf(P("zebra", Int(1)), P("apple", Int(2)), P("mango", Int(3)))

	assert.Equal(t, []string{"zebra", "apple", "mango"}, obj.Keys())
}

func TestObjectSetExistingKeyKeepsPosition(t *testing.T) {
	obj := ObjectOf(P("a", Int(1)), P("b", Int(2)))
	obj.Set("a", String("replaced"))

	assert.Equal(t, []string{"a", "b"}, obj.Keys())
	v, ok := obj.Get("a")
	require.True(t, ok)
	assert.Equal(t, String("replaced"), v)
}

func TestObjectDelete(t *testing.T) {
	obj := ObjectOf(P("a", Int(1)), P("b", Int(2)), P("c", Int(3)))
	obj.Delete("b")
	obj.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, obj.Keys())
	assert.False(t, obj.Has("b"))
}

func TestObjectSetNilStoresNull(t *testing.T) {
	obj := NewObject(1)
	obj.Set("x", nil)

	v, ok := obj.Get("x")
	require.True(t, ok)
	assert.Equal(t, Null{}, v)
}

func TestCloneIsDeep(t *testing.T) {
	inner := ObjectOf(P("n", Int(1)))
	outer := ObjectOf(P("inner", inner), P("list", Array{inner}))

	clone := outer.Clone()
	inner.Set("n", Int(99))

	assert.Equal(t, Int(1), Lookup(clone, "inner.n"))
	assert.Equal(t, Int(1), Lookup(clone, "list.0.n"))
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same string", String("a"), String("a"), true},
		{"different string", String("a"), String("b"), false},
		{"int and float numerically equal", Int(5), Float(5.0), true},
		{"string vs number", String("5"), Int(5), false},
		{"nil is null", nil, Null{}, true},
		{"arrays", Array{Int(1), String("x")}, Array{Int(1), String("x")}, true},
		{"array length", Array{Int(1)}, Array{Int(1), Int(2)}, false},
		{"objects ignore order", ObjectOf(P("a", Int(1)), P("b", Int(2))), ObjectOf(P("b", Int(2)), P("a", Int(1))), true},
		{"objects differ", ObjectOf(P("a", Int(1))), ObjectOf(P("a", Int(2))), false},
		{"bool", Bool(true), Bool(true), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestContains(t *testing.T) {
	set := []Value{String("a"), Int(3)}

	assert.True(t, Contains(set, Float(3)))
	assert.True(t, Contains(set, String("a")))
	assert.False(t, Contains(set, String("b")))
	assert.False(t, Contains(nil, Null{}))
}

func TestLookup(t *testing.T) {
	doc := ObjectOf(
		P("user", ObjectOf(P("address", ObjectOf(P("city", String("Lyon")))))),
		P("tags", Array{String("x"), String("y")}),
	)

	assert.Equal(t, String("Lyon"), Lookup(doc, "user.address.city"))
	assert.Equal(t, String("y"), Lookup(doc, "tags.1"))
	assert.Equal(t, Null{}, Lookup(doc, "tags.7"))
	assert.Equal(t, Null{}, Lookup(doc, "user.missing.city"))
	assert.Equal(t, Null{}, Lookup(String("scalar"), "field"))
	assert.Same(t, doc, Lookup(doc, ""))
}

func TestText(t *testing.T) {
	assert.Equal(t, "null", Text(nil))
	assert.Equal(t, "abc", Text(String("abc")))
	assert.Equal(t, "42", Text(Int(42)))
	assert.Equal(t, "12.5", Text(Float(12.5)))
	assert.Equal(t, "true", Text(Bool(true)))
	assert.Equal(t, `{"a":1}`, Text(ObjectOf(P("a", Int(1)))))
}

func TestAsFloat(t *testing.T) {
	f, ok := AsFloat(Int(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = AsFloat(String("3"))
	assert.False(t, ok)
}
