package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Marshal encodes v as compact JSON with fields in insertion order.
// Strings are NFC normalized and HTML characters are not escaped, so the
// output matches MarshalCanonical except for key order.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, "", "", false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndent is like Marshal but applies indentation.
func MarshalIndent(v Value, indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, "", indent, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCanonical produces RFC 8785 canonical JSON.
//
// Object keys are sorted by UTF-16 code units, strings are NFC normalized
// and there is no insignificant whitespace. Two runs are identical exactly
// when their canonical encodings are byte-identical.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, "", "", true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler so Objects embed in ordinary
// encoding/json payloads (CLI responses, scenario reports).
func (o *Object) MarshalJSON() ([]byte, error) {
	return Marshal(o)
}

func encode(buf *bytes.Buffer, v Value, prefix, indent string, canonical bool) error {
	switch val := OrNull(v).(type) {
	case Null:
		buf.WriteString("null")
	case String:
		return encodeString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("unsupported float value: %v", f)
		}
		buf.WriteString(formatFloat(f))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Array:
		return encodeArray(buf, val, prefix, indent, canonical)
	case *Object:
		return encodeObject(buf, val, prefix, indent, canonical)
	default:
		return fmt.Errorf("unknown value type: %T", v)
	}
	return nil
}

func encodeArray(buf *bytes.Buffer, arr Array, prefix, indent string, canonical bool) error {
	if len(arr) == 0 {
		buf.WriteString("[]")
		return nil
	}
	inner := prefix + indent
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		newline(buf, inner, indent)
		if err := encode(buf, elem, inner, indent, canonical); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	newline(buf, prefix, indent)
	buf.WriteByte(']')
	return nil
}

func encodeObject(buf *bytes.Buffer, obj *Object, prefix, indent string, canonical bool) error {
	if obj.Len() == 0 {
		buf.WriteString("{}")
		return nil
	}
	keys := obj.keys
	if canonical {
		keys = obj.SortedKeys()
	}
	inner := prefix + indent
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		newline(buf, inner, indent)
		if err := encodeString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if indent != "" {
			buf.WriteByte(' ')
		}
		if err := encode(buf, obj.vals[k], inner, indent, canonical); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	newline(buf, prefix, indent)
	buf.WriteByte('}')
	return nil
}

func newline(buf *bytes.Buffer, prefix, indent string) {
	if indent == "" {
		return
	}
	buf.WriteByte('\n')
	buf.WriteString(prefix)
}

// encodeString writes s NFC normalized without HTML escaping.
func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false) // <, >, & must NOT be escaped
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// json.Encoder adds a trailing newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}
