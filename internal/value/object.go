package value

import (
	"iter"
	"slices"
)

// Object is an insertion-ordered map of string keys to values.
//
// Setting an existing key replaces its value in place; the key keeps its
// original position. The zero value is not usable, use NewObject.
type Object struct {
	keys []string
	vals map[string]Value
}

func (*Object) value() {}

// NewObject creates an empty Object with room for n fields.
func NewObject(n int) *Object {
	return &Object{
		keys: make([]string, 0, n),
		vals: make(map[string]Value, n),
	}
}

// Pair is a key-value pair for ordered Object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: ObjectOf(P("id", Int(1)), P("name", String("ada")))
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// ObjectOf builds an Object from pairs in the given order.
func ObjectOf(pairs ...Pair) *Object {
	obj := NewObject(len(pairs))
	for _, p := range pairs {
		obj.Set(p.Key, p.Value)
	}
	return obj
}

// Set stores v under key.
func (o *Object) Set(key string, v Value) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = OrNull(v)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Delete removes key, preserving the order of the remaining keys.
func (o *Object) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
}

// Len returns the number of fields.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns a copy of the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return slices.Clone(o.keys)
}

// All iterates fields in insertion order.
func (o *Object) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if o == nil {
			return
		}
		for _, k := range o.keys {
			if !yield(k, o.vals[k]) {
				return
			}
		}
	}
}

// Merge copies every field of src into o. Later writes win.
func (o *Object) Merge(src *Object) {
	for k, v := range src.All() {
		o.Set(k, v)
	}
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	out := NewObject(len(o.keys))
	for _, k := range o.keys {
		out.Set(k, Clone(o.vals[k]))
	}
	return out
}

// Clone returns a deep copy of v. Scalars are returned as-is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case *Object:
		return val.Clone()
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	default:
		return OrNull(v)
	}
}
