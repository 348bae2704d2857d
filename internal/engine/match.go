package engine

import (
	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/value"
)

// bindPredicate replaces shadow operands with their bound values.
func (v *visitor) bindPredicate(s *itemScope, p dsl.Predicate) (dsl.Predicate, error) {
	switch pred := p.(type) {
	case dsl.Compare:
		if !pred.Operand.IsBinding() {
			return pred, nil
		}
		bound, ok, err := s.binding(pred.Operand.Binding)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, runtimeErr(ErrCodeShadowNotFound,
				"Shadow binding '%s' used in condition '%s' is not bound before this field",
				pred.Operand.Binding, pred)
		}
		lit := value.Lookup(bound, pred.Operand.BindingPath)
		return dsl.Compare{Field: pred.Field, Op: pred.Op, Operand: dsl.Operand{Literal: lit}}, nil
	case dsl.And:
		terms, err := v.bindTerms(s, pred.Terms)
		return dsl.And{Terms: terms}, err
	case dsl.Or:
		terms, err := v.bindTerms(s, pred.Terms)
		return dsl.Or{Terms: terms}, err
	default:
		return p, nil
	}
}

func (v *visitor) bindTerms(s *itemScope, terms []dsl.Predicate) ([]dsl.Predicate, error) {
	out := make([]dsl.Predicate, len(terms))
	for i, t := range terms {
		bound, err := v.bindPredicate(s, t)
		if err != nil {
			return nil, err
		}
		out[i] = bound
	}
	return out, nil
}

// matching returns the items of seq that satisfy pred.
func (v *visitor) matching(seq Items, pred dsl.Predicate, expr string) ([]Item, error) {
	var out []Item
	for i := range seq.Len() {
		item, err := seq.Item(i)
		if err != nil {
			return nil, err
		}
		ok, err := matches(item, pred, expr)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func matches(item Item, p dsl.Predicate, expr string) (bool, error) {
	switch pred := p.(type) {
	case dsl.Compare:
		fv, _, err := item.Field(pred.Field)
		if err != nil {
			return false, err
		}
		return compare(value.OrNull(fv), pred, expr)
	case dsl.And:
		for _, t := range pred.Terms {
			ok, err := matches(item, t, expr)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case dsl.Or:
		for _, t := range pred.Terms {
			ok, err := matches(item, t, expr)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

// compare evaluates one comparison. A null field never satisfies a
// numeric comparison; a non-numeric one is a type error.
func compare(field value.Value, c dsl.Compare, expr string) (bool, error) {
	operand := value.OrNull(c.Operand.Literal)
	switch c.Op {
	case dsl.OpEq:
		return value.Equal(field, operand), nil
	case dsl.OpNe:
		return !value.Equal(field, operand), nil
	}

	rhs, ok := value.AsFloat(operand)
	if !ok {
		if value.IsNull(operand) {
			return false, nil
		}
		return false, runtimeErrExpr(ErrCodeTypeMismatch, expr,
			"Conditional reference '%s': numeric comparison '%s' on field '%s' requires a numeric value, got %s",
			expr, c.Op, c.Field, c.Operand)
	}
	if value.IsNull(field) {
		return false, nil
	}
	lhs, ok := value.AsFloat(field)
	if !ok {
		return false, runtimeErrExpr(ErrCodeTypeMismatch, expr,
			"Conditional reference '%s': numeric comparison '%s' on field '%s' requires a numeric value, got '%s'",
			expr, c.Op, c.Field, value.Text(field))
	}
	switch c.Op {
	case dsl.OpLt:
		return lhs < rhs, nil
	case dsl.OpLe:
		return lhs <= rhs, nil
	case dsl.OpGt:
		return lhs > rhs, nil
	case dsl.OpGe:
		return lhs >= rhs, nil
	default:
		return false, nil
	}
}
