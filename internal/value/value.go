package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Value is a sealed interface representing generated data.
// Only Null, String, Int, Float, Bool, Array and *Object implement this.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a JSON null value.
// Using an explicit type keeps the null sentinel distinguishable from an
// absent field.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a string value.
type String string

func (String) value() {}

// Int represents an integer value.
type Int int64

func (Int) value() {}

// Float represents a floating point value.
// NaN and infinities cannot be encoded and are rejected by Marshal.
type Float float64

func (Float) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Array represents an ordered list of values.
type Array []Value

func (Array) value() {}

// IsNull reports whether v is the null sentinel (or a nil interface).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// OrNull returns v, or Null{} when v is nil.
func OrNull(v Value) Value {
	if v == nil {
		return Null{}
	}
	return v
}

// AsFloat returns the numeric value of v.
// Strings are not coerced; callers that compare numerically must surface
// a type error for them.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	default:
		return 0, false
	}
}

// Equal reports whether a and b are the same value.
// Int and Float compare numerically so that a filter literal 5 excludes a
// generated 5.0.
func Equal(a, b Value) bool {
	a, b = OrNull(a), OrNull(b)
	if fa, ok := AsFloat(a); ok {
		fb, ok := AsFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Object:
		bv, ok := b.(*Object)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			other, found := bv.Get(k)
			if !found || !Equal(av.vals[k], other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Contains reports whether v equals any element of set.
func Contains(set []Value, v Value) bool {
	for _, candidate := range set {
		if Equal(candidate, v) {
			return true
		}
	}
	return false
}

// Text renders a scalar as plain text, the way a condition literal or a
// SQL column would read it. Composite values render as JSON.
func Text(v Value) string {
	switch val := OrNull(v).(type) {
	case Null:
		return "null"
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return formatFloat(float64(val))
	case Bool:
		return strconv.FormatBool(bool(val))
	default:
		data, err := Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

// formatFloat uses the same shortest representation as encoding/json.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	data, err := json.Marshal(f)
	if err != nil {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return string(data)
}
