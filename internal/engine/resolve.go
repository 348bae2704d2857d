package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/value"
)

// resolved is the outcome of a reference: a selected item and the path
// to extract from it, or a value already extracted.
type resolved struct {
	item  Item
	path  string
	value value.Value
}

func nullResult() resolved {
	return resolved{value: value.Null{}}
}

func (r resolved) extract() (value.Value, error) {
	if r.item == nil {
		return value.OrNull(r.value), nil
	}
	v, err := itemValue(r.item, r.path)
	if err != nil {
		return nil, err
	}
	return value.Clone(v), nil
}

// query is one reference evaluation.
type query struct {
	node     *dsl.Reference
	ref      *dsl.Ref
	path     string
	excluded []value.Value
}

// resolver handles one reference shape.
type resolver struct {
	name    string
	accepts func(*dsl.Ref) bool
	resolve func(v *visitor, s *itemScope, q query) (resolved, error)
}

// resolvers is consulted in order; the first that accepts a reference
// resolves it.
var resolvers []resolver

func init() {
	resolvers = []resolver{
		{"simple", kindIs(dsl.RefSimple), (*visitor).resolveCollection},
		{"indexed", kindIs(dsl.RefIndexed), (*visitor).resolveIndexed},
		{"range", kindIs(dsl.RefRange), (*visitor).resolveCollection},
		{"conditional", kindIs(dsl.RefConditional), (*visitor).resolveCollection},
		{"tag", kindIs(dsl.RefTag), (*visitor).resolveTag},
		{"pick", kindIs(dsl.RefPick), (*visitor).resolvePick},
		{"self", kindIs(dsl.RefSelf), (*visitor).resolveSelf},
		{"shadow", kindIs(dsl.RefShadow), (*visitor).resolveShadow},
	}
}

func kindIs(k dsl.RefKind) func(*dsl.Ref) bool {
	return func(r *dsl.Ref) bool { return r.Kind == k }
}

func (v *visitor) resolve(s *itemScope, n *dsl.Reference, path string, excluded []value.Value) (resolved, error) {
	ref := n.Ref
	if ref == nil {
		parsed, err := dsl.ParseReference(n.Expr, v.decl)
		if err != nil {
			return resolved{}, &RuntimeError{Code: ErrCodeInvalidReference, Message: err.Error(), Expr: n.Expr, Err: err}
		}
		ref = parsed
	}
	q := query{node: n, ref: ref, path: path, excluded: excluded}
	for _, r := range resolvers {
		if !r.accepts(ref) {
			continue
		}
		res, err := r.resolve(v, s, q)
		if err != nil {
			return resolved{}, withExpr(err, n.Expr)
		}
		return res, nil
	}
	return resolved{}, runtimeErrExpr(ErrCodeInvalidReference, n.Expr, "no resolver accepts reference '%s'", n.Expr)
}

func withExpr(err error, expr string) error {
	var re *RuntimeError
	if errors.As(err, &re) && re.Expr == "" {
		re.Expr = expr
	}
	return err
}

// source returns the collection a reference reads, as generated before
// the current collection.
func (v *visitor) source(s *itemScope, q query) (Sequence, error) {
	name := q.ref.Source
	if seq, ok := s.view.source(name); ok {
		return seq, nil
	}
	if v.decl.HasCollection(name) {
		return nil, runtimeErrExpr(ErrCodeUnregisteredSource, q.ref.Expr,
			"Reference '%s' reads collection '%s' before it is generated", q.ref.Expr, name)
	}
	return nil, runtimeErrExpr(ErrCodeInvalidReference, q.ref.Expr,
		"Reference '%s' reads undeclared collection '%s'", q.ref.Expr, name)
}

// resolveCollection serves simple, range and conditional references.
func (v *visitor) resolveCollection(s *itemScope, q query) (resolved, error) {
	seq, err := v.source(s, q)
	if err != nil {
		return resolved{}, err
	}
	key := fmt.Sprintf("%s|%d", q.ref.Source, seq.Len())
	var candidates Items = seq

	switch q.ref.Kind {
	case dsl.RefRange:
		if seq.Len() == 0 {
			return nullResult(), nil
		}
		lo, hi, ok := q.ref.Window(seq.Len())
		if !ok {
			return v.referenceFailure(fmt.Errorf("Range reference '%s' selects no items from %d", q.ref.Expr, seq.Len()))
		}
		candidates = window{items: seq, lo: lo, hi: hi}
		key = fmt.Sprintf("%s|%d:%d", key, lo, hi)

	case dsl.RefConditional:
		pred, err := v.bindPredicate(s, q.ref.Condition)
		if err != nil {
			return resolved{}, err
		}
		key = fmt.Sprintf("%s|%s", key, pred)
		matched, err := v.ctx.filtered(key, func() ([]Item, error) {
			return v.matching(seq, pred, q.ref.Expr)
		})
		if err != nil {
			return resolved{}, err
		}
		if len(matched) == 0 {
			return v.referenceFailure(fmt.Errorf("Conditional reference '%s' matched no items", q.ref.Expr))
		}
		candidates = itemList(matched)
	}
	return v.choose(s, q, candidates, key)
}

// choose applies filter exclusions and selects one candidate.
func (v *visitor) choose(s *itemScope, q query, candidates Items, key string) (resolved, error) {
	if len(q.excluded) > 0 {
		key = fmt.Sprintf("%s|%s|%s", key, value.KeyOf(q.excluded), q.ref.Path)
		list, err := v.ctx.filtered(key, func() ([]Item, error) {
			return v.ctx.ApplyFiltering(candidates, q.ref.Path, q.excluded)
		})
		if err != nil {
			return resolved{}, err
		}
		if len(list) == 0 {
			return v.referenceFailure(fmt.Errorf("Reference '%s' has no valid values after filtering", q.ref.Expr))
		}
		candidates = itemList(list)
	}
	item, err := v.ctx.ElementFrom(candidates, v.state, q.node.ID, q.node.Sequential, v.rand(s, q.path))
	if err != nil {
		return resolved{}, err
	}
	if item == nil {
		return nullResult(), nil
	}
	return resolved{item: item, path: q.ref.Path}, nil
}

func (v *visitor) referenceFailure(cause error) (resolved, error) {
	val, err := v.ctx.HandleReferenceFailure(cause)
	return resolved{value: val}, err
}

// excludedItem applies filters to a single selected item.
func (v *visitor) excludedItem(q query, item Item, what string) (resolved, error) {
	if len(q.excluded) > 0 {
		val, err := itemValue(item, q.ref.Path)
		if err != nil {
			return resolved{}, err
		}
		if value.Contains(q.excluded, val) {
			out, err := v.ctx.HandleFilteringFailure(fmt.Errorf("%s '%s' selects value %s, which is excluded by filter", what, q.ref.Expr, value.Text(val)))
			return resolved{value: out}, err
		}
	}
	return resolved{item: item, path: q.ref.Path}, nil
}

func (v *visitor) resolveIndexed(s *itemScope, q query) (resolved, error) {
	seq, err := v.source(s, q)
	if err != nil {
		return resolved{}, err
	}
	if q.ref.Wildcard {
		return v.choose(s, q, seq, fmt.Sprintf("%s|%d", q.ref.Source, seq.Len()))
	}
	if q.ref.Index < 0 || q.ref.Index >= seq.Len() {
		return nullResult(), nil
	}
	item, err := seq.Item(q.ref.Index)
	if err != nil {
		return resolved{}, err
	}
	return v.excludedItem(q, item, "Reference")
}

func (v *visitor) resolveTag(s *itemScope, q query) (resolved, error) {
	tag := q.ref.Source
	if q.ref.DynamicTag != "" {
		val, err := s.self(q.ref.DynamicTag, q.ref.Expr)
		if err != nil {
			return resolved{}, err
		}
		if value.IsNull(val) {
			return resolved{}, runtimeErrExpr(ErrCodeInvalidReference, q.ref.Expr,
				"Tag reference '%s': field '%s' is null", q.ref.Expr, q.ref.DynamicTag)
		}
		tag = value.Text(val)
	}
	seq, ok := s.view.tags[tag]
	if !ok {
		if v.decl.HasTag(tag) {
			return resolved{}, runtimeErrExpr(ErrCodeUnregisteredSource, q.ref.Expr,
				"Tag reference '%s': tag '%s' has no generated collection yet", q.ref.Expr, tag)
		}
		return resolved{}, runtimeErrExpr(ErrCodeInvalidReference, q.ref.Expr,
			"Tag reference '%s': tag '%s' is not declared", q.ref.Expr, tag)
	}
	return v.choose(s, q, seq, fmt.Sprintf("byTag[%s]|%d", tag, seq.Len()))
}

func (v *visitor) resolvePick(s *itemScope, q query) (resolved, error) {
	item, ok := s.view.picks[q.ref.Source]
	if !ok {
		return resolved{}, runtimeErrExpr(ErrCodeUnregisteredSource, q.ref.Expr,
			"Pick reference '%s': alias '%s' is not generated yet", q.ref.Expr, q.ref.Source)
	}
	return v.excludedItem(q, item, "Pick reference")
}

func (v *visitor) resolveSelf(s *itemScope, q query) (resolved, error) {
	val, err := s.self(q.ref.Path, q.ref.Expr)
	if err != nil {
		return resolved{}, err
	}
	return v.excludedValue(q, val, "Self reference")
}

func (v *visitor) resolveShadow(s *itemScope, q query) (resolved, error) {
	bound, ok, err := s.binding(q.ref.Source)
	if err != nil {
		return resolved{}, err
	}
	if !ok {
		return resolved{}, runtimeErrExpr(ErrCodeShadowNotFound, q.ref.Expr,
			"Shadow binding '%s' is not bound before this field", q.ref.Source)
	}
	return v.excludedValue(q, value.Lookup(bound, q.ref.Path), "Shadow reference")
}

func (v *visitor) excludedValue(q query, val value.Value, what string) (resolved, error) {
	if len(q.excluded) > 0 && value.Contains(q.excluded, val) {
		out, err := v.ctx.HandleFilteringFailure(fmt.Errorf("%s '%s' value %s is excluded by filter", what, q.ref.Expr, value.Text(val)))
		return resolved{value: out}, err
	}
	return resolved{value: val}, nil
}
