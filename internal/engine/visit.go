package engine

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/generator"
	"github.com/roach88/dataforge/internal/value"
)

// visitor walks the tree for one run.
type visitor struct {
	ctx   Context
	gens  *generator.Registry
	state *generator.State
	decl  *dsl.Declarations
	seed  int64
}

func (v *visitor) newItem(coll *dsl.Collection, view *registry, index int, needed dsl.PathSet) *itemScope {
	s := &itemScope{v: v, view: view, coll: coll, index: index}
	s.root = newRecord(s, coll.Item, "", -1, needed)
	return s
}

// collection generates one definition and registers it under its output
// name, its key when different, and each tag; then resolves its picks.
func (v *visitor) collection(ctx context.Context, coll *dsl.Collection) error {
	seq, err := v.ctx.build(ctx, v, coll)
	if err != nil {
		return err
	}
	name := coll.OutputName()
	v.ctx.RegisterCollection(name, seq)
	if coll.Key != name {
		v.ctx.RegisterReferenceCollection(coll.Key, seq)
	}
	for _, tag := range coll.Tags {
		v.ctx.RegisterTaggedCollection(tag, seq)
	}
	for _, p := range coll.Picks {
		if p.Index < 0 || p.Index >= seq.Len() {
			return &RuntimeError{
				Code:       ErrCodeInvalidConfig,
				Message:    fmt.Sprintf("pick alias '%s' index %d is out of bounds (count: %d)", p.Alias, p.Index, seq.Len()),
				Collection: coll.Key,
			}
		}
		v.ctx.RegisterPick(p.Alias, indexedItem{items: seq, index: p.Index})
	}
	return nil
}

// rand derives the random stream for one evaluation point from the run
// seed, the item, and the field path.
func (v *visitor) rand(s *itemScope, path string) *rand.Rand {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v.seed))
	h.Write(buf[:])
	h.Write([]byte(s.coll.Key))
	h.Write([]byte{0})
	binary.LittleEndian.PutUint64(buf[:], uint64(s.index))
	h.Write(buf[:])
	h.Write([]byte(path))
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(sum[0:8]),
		binary.LittleEndian.Uint64(sum[8:16]),
	))
}

func (v *visitor) genContext(s *itemScope, id dsl.NodeID, opts *value.Object, path string) *generator.Context {
	return &generator.Context{
		Rand:    v.rand(s, path),
		Options: opts,
		Field:   s.coll.Key + "." + path,
		Key:     int(id),
		State:   v.state,
	}
}

// eval computes one node. path labels the evaluation point; it names the
// field in errors and seeds the node's random stream.
func (v *visitor) eval(s *itemScope, node dsl.Node, path string) (value.Value, error) {
	switch n := node.(type) {
	case *dsl.Literal:
		return value.Clone(n.Value), nil
	case *dsl.Generated:
		return v.generated(s, n, path)
	case *dsl.Object:
		rec := newRecord(s, n.Template, path+".", s.current, dsl.NewPathSet(dsl.WholeItem))
		obj, err := rec.object()
		if err != nil {
			return nil, err
		}
		return obj, nil
	case *dsl.Array:
		return v.array(s, n, path)
	case *dsl.Choice:
		return v.choice(s, n, path)
	case *dsl.Spread:
		return v.spread(s, n, path)
	case *dsl.Reference:
		return v.reference(s, n, path)
	case *dsl.ReferenceSpread:
		return v.referenceSpread(s, n, path)
	case *dsl.Filter:
		return v.eval(s, n.Node, path)
	default:
		return nil, runtimeErr(ErrCodeInvalidConfig, "unsupported node type %T", node)
	}
}

func (v *visitor) generator(name string) (generator.Generator, error) {
	g, ok := v.gens.Lookup(name)
	if !ok {
		return nil, runtimeErr(ErrCodeUnknownGenerator, "Unknown generator: %s", name)
	}
	return g, nil
}

func (v *visitor) generated(s *itemScope, n *dsl.Generated, path string) (value.Value, error) {
	g, err := v.generator(n.Generator)
	if err != nil {
		return nil, err
	}
	opts, err := v.options(s, n.Options, path)
	if err != nil {
		return nil, err
	}
	excluded, err := v.exclusions(s, n.Filters, path)
	if err != nil {
		return nil, err
	}
	gctx := v.genContext(s, n.ID, opts, path)
	if len(excluded) > 0 {
		return v.ctx.GenerateWithFilter(g, gctx, n.Path, excluded)
	}
	out, err := generator.Produce(g, gctx, n.Path)
	if err != nil {
		return nil, err
	}
	return value.OrNull(out), nil
}

// options resolves static, reference-valued and generated options, in
// that order. Options that resolve to null are left out.
func (v *visitor) options(s *itemScope, opts *dsl.Options, path string) (*value.Object, error) {
	out := value.NewObject(0)
	if opts == nil {
		return out, nil
	}
	if opts.Static != nil {
		out = opts.Static.Clone()
	}
	for _, rt := range opts.Runtime {
		val, err := v.reference(s, rt.Reference, path+"@"+rt.Key)
		if err != nil {
			return nil, err
		}
		if value.IsNull(val) {
			continue
		}
		if rt.Map != nil {
			mapped, ok := rt.Map.Get(value.Text(val))
			if !ok {
				return nil, runtimeErrExpr(ErrCodeInvalidConfig, rt.Reference.Expr,
					"No mapping found for value '%s' in option '%s'", value.Text(val), rt.Key)
			}
			val = mapped
		}
		out.Set(rt.Key, val)
	}
	for _, g := range opts.Generated {
		val, err := v.eval(s, g.Node, path+"@"+g.Key)
		if err != nil {
			return nil, err
		}
		if value.IsNull(val) {
			continue
		}
		out.Set(g.Key, val)
	}
	return out, nil
}

// exclusions evaluates filter nodes. Null filter values are dropped.
func (v *visitor) exclusions(s *itemScope, filters []*dsl.Filter, path string) ([]value.Value, error) {
	var out []value.Value
	for k, f := range filters {
		val, err := v.eval(s, f.Node, fmt.Sprintf("%s!%d", path, k))
		if err != nil {
			return nil, err
		}
		if value.IsNull(val) {
			continue
		}
		out = append(out, val)
	}
	return out, nil
}

func (v *visitor) array(s *itemScope, n *dsl.Array, path string) (value.Value, error) {
	size := n.Size
	if !n.Fixed {
		size = n.MinSize
		if n.MaxSize > n.MinSize {
			size += v.rand(s, path).IntN(n.MaxSize - n.MinSize + 1)
		}
	}
	out := make(value.Array, size)
	for k := range size {
		item, err := v.eval(s, n.Item, fmt.Sprintf("%s[%d]", path, k))
		if err != nil {
			return nil, err
		}
		out[k] = item
	}
	return out, nil
}

// choice evaluates every option, then picks one by weight.
func (v *visitor) choice(s *itemScope, n *dsl.Choice, path string) (value.Value, error) {
	options := make([]value.Value, len(n.Options))
	for k, opt := range n.Options {
		val, err := v.eval(s, opt, fmt.Sprintf("%s#%d", path, k))
		if err != nil {
			return nil, err
		}
		options[k] = val
	}
	excluded, err := v.exclusions(s, n.Filters, path)
	if err != nil {
		return nil, err
	}
	gctx := v.genContext(s, n.ID, value.NewObject(0), path)
	out, err := generator.Choose(gctx, options, n.Weights, excluded)
	if generator.IsFilterError(err) {
		return v.ctx.HandleFilteringFailure(err)
	}
	return out, err
}

func (v *visitor) spread(s *itemScope, n *dsl.Spread, path string) (value.Value, error) {
	g, err := v.generator(n.Generator)
	if err != nil {
		return nil, err
	}
	opts, err := v.options(s, n.Options, path)
	if err != nil {
		return nil, err
	}
	full, err := g.Generate(v.genContext(s, n.ID, opts, path))
	if err != nil {
		return nil, err
	}
	return spreadInto(full, n.Fields), nil
}

func (v *visitor) reference(s *itemScope, n *dsl.Reference, path string) (value.Value, error) {
	excluded, err := v.exclusions(s, n.Filters, path)
	if err != nil {
		return nil, err
	}
	res, err := v.resolve(s, n, path, excluded)
	if err != nil {
		return nil, err
	}
	return res.extract()
}

// referenceSpread merges fields of the referenced item. A null reference
// merges nothing.
func (v *visitor) referenceSpread(s *itemScope, n *dsl.ReferenceSpread, path string) (value.Value, error) {
	excluded, err := v.exclusions(s, n.Reference.Filters, path)
	if err != nil {
		return nil, err
	}
	res, err := v.resolve(s, n.Reference, path, excluded)
	if err != nil {
		return nil, err
	}
	if res.item != nil && res.path == "" && len(n.Fields) > 0 {
		out := value.NewObject(len(n.Fields))
		for _, spec := range n.Fields {
			val, ok, err := res.item.Field(spec.Source)
			if err != nil {
				return nil, err
			}
			if ok {
				out.Set(spec.Target, value.Clone(val))
			}
		}
		return out, nil
	}
	val, err := res.extract()
	if err != nil {
		return nil, err
	}
	return spreadInto(val, n.Fields), nil
}

// spreadInto copies the requested fields of src (all of them when fields
// is empty), renaming target:source pairs. Fields src lacks are skipped.
func spreadInto(src value.Value, fields []dsl.FieldSpec) *value.Object {
	obj, ok := src.(*value.Object)
	if !ok {
		return value.NewObject(0)
	}
	if len(fields) == 0 {
		return obj.Clone()
	}
	out := value.NewObject(len(fields))
	for _, spec := range fields {
		if val, ok := obj.Get(spec.Source); ok {
			out.Set(spec.Target, value.Clone(val))
		}
	}
	return out
}
