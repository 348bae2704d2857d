package value

import (
	"slices"
	"unicode/utf16"
)

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings compares UTF-8 bytes, which orders some keys differently.
func (o *Object) SortedKeys() []string {
	keys := o.Keys()
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// Key returns a string usable as a map key for v. Equal scalars of
// different numeric types map to the same key.
func Key(v Value) string {
	if f, ok := AsFloat(v); ok {
		return "n:" + formatFloat(f)
	}
	data, err := MarshalCanonical(v)
	if err != nil {
		return "!" + err.Error()
	}
	return string(data)
}

// KeyOf joins the keys of several values.
func KeyOf(vals []Value) string {
	var out []byte
	for i, v := range vals {
		if i > 0 {
			out = append(out, 0x00)
		}
		out = append(out, Key(v)...)
	}
	return string(out)
}
