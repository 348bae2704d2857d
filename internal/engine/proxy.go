package engine

import (
	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/value"
)

// fieldState is the materialization state of one field. A field moves
// unmaterialized -> materializing -> materialized and never back once it
// has a value.
type fieldState uint8

const (
	unmaterialized fieldState = iota
	materializing
	materialized
)

// itemScope is one item under construction: what self and shadow
// references resolve against.
type itemScope struct {
	v     *visitor
	view  *registry
	coll  *dsl.Collection
	index int
	root  *record

	// current is the top-level field being computed. Self and shadow
	// references see only fields declared before it, in both modes.
	current int
}

// record computes the fields of one template. The item itself is a
// record; so is every nested object, either computed whole or, in lazy
// mode, as a child proxy holding only the needed sub-paths.
type record struct {
	scope    *itemScope
	tmpl     *dsl.Template
	prefix   string // field path prefix: "" or "address."
	top      int    // owning top-level field, -1 for the item record
	needed   dsl.PathSet
	states   []fieldState
	values   []value.Value
	children []*record
}

func newRecord(scope *itemScope, tmpl *dsl.Template, prefix string, top int, needed dsl.PathSet) *record {
	n := tmpl.Len()
	return &record{
		scope:    scope,
		tmpl:     tmpl,
		prefix:   prefix,
		top:      top,
		needed:   needed,
		states:   make([]fieldState, n),
		values:   make([]value.Value, n),
		children: make([]*record, n),
	}
}

func isSpread(n dsl.Node) bool {
	switch n.(type) {
	case *dsl.Spread, *dsl.ReferenceSpread:
		return true
	}
	return false
}

// field computes field i once.
func (r *record) field(i int) (value.Value, error) {
	switch r.states[i] {
	case materialized:
		return r.values[i], nil
	case materializing:
		f := r.tmpl.Field(i)
		return nil, &RuntimeError{
			Code:       ErrCodeCyclicDependency,
			Message:    "field '" + r.prefix + f.Name + "' is read while it is being computed",
			Collection: r.scope.coll.Key,
			Field:      r.prefix + f.Name,
		}
	}

	r.states[i] = materializing
	v, err := r.compute(i)
	if err != nil {
		r.states[i] = unmaterialized
		return nil, err
	}
	r.values[i] = v
	r.states[i] = materialized
	return v, nil
}

func (r *record) compute(i int) (value.Value, error) {
	f := r.tmpl.Field(i)
	path := r.prefix + f.Name
	scope := r.scope

	saved := scope.current
	if r.top < 0 {
		scope.current = i
	} else {
		scope.current = r.top
	}
	defer func() { scope.current = saved }()

	if obj, ok := f.Node.(*dsl.Object); ok && !r.needed.Needs(f.Name) {
		child := newRecord(scope, obj.Template, path+".", scope.current, r.needed.Rebase(f.Name))
		if err := child.materializeNeeded(); err != nil {
			return nil, err
		}
		r.children[i] = child
		return nil, nil
	}

	v, err := scope.v.eval(scope, f.Node, path)
	if err != nil {
		return nil, locate(err, scope.coll.Key, path)
	}
	return v, nil
}

// materializeNeeded computes the fields the needed set touches. A record
// with spreads is read whole (see Field), so it is computed whole.
func (r *record) materializeNeeded() error {
	if len(r.needed) > 0 && r.tmpl.Open() {
		return r.materializeAll()
	}
	for i, f := range r.tmpl.Fields() {
		if !r.needed.Touches(f.Name) {
			continue
		}
		if _, err := r.field(i); err != nil {
			return err
		}
	}
	return nil
}

// materializeAll computes every remaining field in declaration order.
func (r *record) materializeAll() error {
	for i := range r.states {
		if _, err := r.field(i); err != nil {
			return err
		}
		if child := r.children[i]; child != nil {
			if err := child.materializeAll(); err != nil {
				return err
			}
		}
	}
	return nil
}

// object materializes the record and assembles its output. Spread entries
// merge in place, later fields overwriting earlier ones; shadow fields are
// left out.
func (r *record) object() (*value.Object, error) {
	if err := r.materializeAll(); err != nil {
		return nil, err
	}
	out := value.NewObject(len(r.values))
	for i, f := range r.tmpl.Fields() {
		if isSpread(f.Node) {
			if entries, ok := r.values[i].(*value.Object); ok {
				out.Merge(entries)
			}
			continue
		}
		if f.IsShadow() {
			continue
		}
		if child := r.children[i]; child != nil {
			obj, err := child.object()
			if err != nil {
				return nil, err
			}
			out.Set(f.Name, obj)
			continue
		}
		out.Set(f.Name, r.values[i])
	}
	return out, nil
}

// Field reads a dotted path, computing only what the path needs. Records
// with spreads are materialized whole, since a spread may produce or
// overwrite any name.
func (r *record) Field(path string) (value.Value, bool, error) {
	if r.tmpl.Open() {
		obj, err := r.object()
		if err != nil {
			return nil, false, err
		}
		v, ok := lookupPath(obj, path)
		return v, ok, nil
	}
	head, rest := value.SplitPath(path)
	f, i, ok := r.tmpl.Lookup(head)
	if !ok || f.IsShadow() {
		return value.Null{}, false, nil
	}
	v, err := r.field(i)
	if err != nil {
		return nil, false, err
	}
	if child := r.children[i]; child != nil {
		if rest == "" {
			obj, err := child.object()
			return obj, err == nil, err
		}
		return child.Field(rest)
	}
	v, found := lookupPath(v, rest)
	return v, found, nil
}

// Value materializes and assembles the record.
func (r *record) Value() (*value.Object, error) {
	return r.object()
}

// fieldCounts returns the number of fields and how many are materialized,
// child proxies included.
func (r *record) fieldCounts() (total, done int) {
	for i, st := range r.states {
		total++
		if st == materialized {
			done++
		}
		if child := r.children[i]; child != nil {
			t, d := child.fieldCounts()
			total += t
			done += d
		}
	}
	return total, done
}

// clone copies the item so missing fields can be computed without
// touching the cached proxy.
func (s *itemScope) clone() *itemScope {
	out := &itemScope{
		v:       s.v,
		view:    s.view,
		coll:    s.coll,
		index:   s.index,
		current: s.current,
	}
	out.root = s.root.cloneInto(out)
	return out
}

func (r *record) cloneInto(scope *itemScope) *record {
	out := &record{
		scope:    scope,
		tmpl:     r.tmpl,
		prefix:   r.prefix,
		top:      r.top,
		needed:   r.needed,
		states:   append([]fieldState(nil), r.states...),
		values:   append([]value.Value(nil), r.values...),
		children: make([]*record, len(r.children)),
	}
	for i, child := range r.children {
		if child != nil {
			out.children[i] = child.cloneInto(scope)
		}
	}
	return out
}

// self resolves "this.<path>" for the field being computed.
func (s *itemScope) self(path, expr string) (value.Value, error) {
	head, rest := value.SplitPath(path)
	root := s.root
	_, j, declared := root.tmpl.Lookup(head)
	if declared {
		if j >= s.current {
			return value.Null{}, nil
		}
		v, err := root.field(j)
		if err != nil {
			return nil, err
		}
		if child := root.children[j]; child != nil {
			if rest == "" {
				return child.object()
			}
			v, _, err := child.Field(rest)
			return v, err
		}
		return descend(v, head, rest, expr)
	}

	// Not declared: a spread declared earlier may have produced it.
	var found value.Value = value.Null{}
	for k := 0; k < s.current && k < root.tmpl.Len(); k++ {
		if !isSpread(root.tmpl.Field(k).Node) {
			continue
		}
		v, err := root.field(k)
		if err != nil {
			return nil, err
		}
		if entries, ok := v.(*value.Object); ok {
			if got, ok := entries.Get(head); ok {
				found = got
			}
		}
	}
	return descend(found, head, rest, expr)
}

// binding returns the value of a top-level shadow field declared before
// the current field.
func (s *itemScope) binding(name string) (value.Value, bool, error) {
	f, j, ok := s.root.tmpl.Lookup(name)
	if !ok || !f.IsShadow() || j >= s.current {
		return nil, false, nil
	}
	v, err := s.root.field(j)
	if err != nil {
		return nil, false, err
	}
	if child := s.root.children[j]; child != nil {
		obj, err := child.object()
		return obj, err == nil, err
	}
	return v, true, nil
}

// descend applies the rest of a self path. Reading below a scalar is an
// error; below null it is null.
func descend(v value.Value, head, rest, expr string) (value.Value, error) {
	if rest == "" {
		return value.OrNull(v), nil
	}
	switch v.(type) {
	case *value.Object, value.Array:
		return value.Lookup(v, rest), nil
	case value.Null, nil:
		return value.Null{}, nil
	default:
		return nil, runtimeErrExpr(ErrCodeInvalidReference, expr,
			"Self reference '%s': field '%s' is not an object", expr, head)
	}
}
