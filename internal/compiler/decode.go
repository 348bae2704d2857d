package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/dataforge/internal/value"
)

// decode converts a concrete CUE value into a value.Value. Struct field
// order follows the CUE source.
func decode(v cue.Value) (value.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return value.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return value.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, err
		}
		return value.Int(n), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return value.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		arr := value.Array{}
		for iter.Next() {
			elem, err := decode(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		return decodeObject(v)
	default:
		return nil, fmt.Errorf("value is not concrete (kind %v)", v.IncompleteKind())
	}
}

func decodeObject(v cue.Value) (*value.Object, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, err
	}
	obj := value.NewObject(0)
	for iter.Next() {
		elem, err := decode(iter.Value())
		if err != nil {
			return nil, err
		}
		obj.Set(iter.Selector().Unquoted(), elem)
	}
	return obj, nil
}

// Decode converts a concrete CUE value into a value.Value.
func Decode(v cue.Value) (value.Value, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return decode(v)
}
