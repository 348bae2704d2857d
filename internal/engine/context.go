package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/generator"
	"github.com/roach88/dataforge/internal/value"
)

// Context is the state of one run: the registered collections, tags and
// picks, the filter cache, and the failure policy. It has an eager
// and a lazy implementation; the visitor does not know which it holds.
type Context interface {
	RegisterCollection(name string, seq Sequence)
	RegisterReferenceCollection(key string, seq Sequence)
	RegisterTaggedCollection(tag string, seq Sequence)
	RegisterPick(alias string, item Item)

	// Collection returns the sequence registered under an output name.
	Collection(name string) (Sequence, bool)
	Tagged(tag string) (Sequence, bool)
	Pick(alias string) (Item, bool)

	// ElementFrom selects one item. An empty list yields nil. Sequential
	// selection returns counter[ref] mod len and advances the counter held
	// in state; otherwise the index is uniform.
	ElementFrom(items Items, state *generator.State, ref dsl.NodeID, sequential bool, r *rand.Rand) (Item, error)

	// ApplyFiltering returns the items whose value at path (the whole
	// item when path is empty) is not excluded.
	ApplyFiltering(items Items, path string, excluded []value.Value) ([]Item, error)

	HandleFilteringFailure(err error) (value.Value, error)
	HandleReferenceFailure(err error) (value.Value, error)

	GenerateWithFilter(g generator.Generator, gctx *generator.Context, path string, excluded []value.Value) (value.Value, error)

	// Lazy reports whether items are proxies.
	Lazy() bool

	// build turns one collection definition into a sequence.
	build(ctx context.Context, v *visitor, coll *dsl.Collection) (Sequence, error)
	filtered(key string, compute func() ([]Item, error)) ([]Item, error)
	memoryStats() MemoryStats
}

// registry maps names to generated sequences. An output name or tag
// registered twice holds the concatenation, in registration order. Local
// keys are kept apart from output names, since a key may equal another
// definition's output name.
type registry struct {
	collections map[string]Sequence
	keys        map[string]Sequence
	tags        map[string]Sequence
	picks       map[string]Item
}

func newRegistry() *registry {
	return &registry{
		collections: make(map[string]Sequence),
		keys:        make(map[string]Sequence),
		tags:        make(map[string]Sequence),
		picks:       make(map[string]Item),
	}
}

// source returns the sequence a reference to name reads: the definition
// with that local key, else everything under that output name.
func (r *registry) source(name string) (Sequence, bool) {
	if seq, ok := r.keys[name]; ok {
		return seq, true
	}
	seq, ok := r.collections[name]
	return seq, ok
}

// clone copies the maps. Sequences are never mutated after registration,
// so the copy is a stable view of what was generated so far.
func (r *registry) clone() *registry {
	return &registry{
		collections: maps.Clone(r.collections),
		keys:        maps.Clone(r.keys),
		tags:        maps.Clone(r.tags),
		picks:       maps.Clone(r.picks),
	}
}

func appendSequence(m map[string]Sequence, name string, seq Sequence) {
	if prev, ok := m[name]; ok {
		m[name] = concat(prev, seq)
		return
	}
	m[name] = seq
}

// base holds everything the eager and lazy contexts share.
type base struct {
	engine  *Engine
	adapter generator.Adapter
	logger  *slog.Logger
	reg     *registry
	cache   map[string][]Item
}

func newBase(e *Engine, adapter generator.Adapter) *base {
	return &base{
		engine:  e,
		adapter: adapter,
		logger:  e.logger,
		reg:     newRegistry(),
		cache:   make(map[string][]Item),
	}
}

func (b *base) RegisterCollection(name string, seq Sequence) {
	appendSequence(b.reg.collections, name, seq)
	b.logger.Debug("collection registered", "name", name, "items", seq.Len())
}

func (b *base) RegisterReferenceCollection(key string, seq Sequence) {
	b.reg.keys[key] = seq
}

func (b *base) RegisterTaggedCollection(tag string, seq Sequence) {
	appendSequence(b.reg.tags, tag, seq)
}

func (b *base) RegisterPick(alias string, item Item) {
	b.reg.picks[alias] = item
}

func (b *base) Collection(name string) (Sequence, bool) {
	seq, ok := b.reg.collections[name]
	return seq, ok
}

func (b *base) Tagged(tag string) (Sequence, bool) {
	seq, ok := b.reg.tags[tag]
	return seq, ok
}

func (b *base) Pick(alias string) (Item, bool) {
	item, ok := b.reg.picks[alias]
	return item, ok
}

func (b *base) ElementFrom(items Items, state *generator.State, ref dsl.NodeID, sequential bool, r *rand.Rand) (Item, error) {
	n := items.Len()
	if n == 0 {
		return nil, nil
	}
	var idx int
	if sequential {
		idx = int(state.Next(int(ref), 0, 1) % int64(n))
	} else {
		idx = r.IntN(n)
	}
	return items.Item(idx)
}

func (b *base) ApplyFiltering(items Items, path string, excluded []value.Value) ([]Item, error) {
	out := make([]Item, 0, items.Len())
	for i := range items.Len() {
		item, err := items.Item(i)
		if err != nil {
			return nil, err
		}
		v, err := itemValue(item, path)
		if err != nil {
			return nil, err
		}
		if !value.Contains(excluded, v) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (b *base) HandleFilteringFailure(err error) (value.Value, error) {
	if b.engine.policy == Throw {
		return nil, &RuntimeError{Code: ErrCodeFilteringFailed, Message: err.Error(), Err: err}
	}
	b.logger.Debug("filtering failed, using null", "error", err)
	return value.Null{}, nil
}

func (b *base) HandleReferenceFailure(err error) (value.Value, error) {
	if b.engine.policy == Throw {
		return nil, &RuntimeError{Code: ErrCodeFilteringFailed, Message: err.Error(), Err: errors.Join(ErrNoCandidates, err)}
	}
	b.logger.Debug("reference has no candidates, using null", "error", err)
	return value.Null{}, nil
}

func (b *base) GenerateWithFilter(g generator.Generator, gctx *generator.Context, path string, excluded []value.Value) (value.Value, error) {
	v, err := b.adapter.Generate(g, gctx, path, excluded)
	if generator.IsFilterError(err) {
		return b.HandleFilteringFailure(err)
	}
	return v, err
}

func (b *base) filtered(key string, compute func() ([]Item, error)) ([]Item, error) {
	if items, ok := b.cache[key]; ok {
		return items, nil
	}
	items, err := compute()
	if err != nil {
		return nil, err
	}
	b.cache[key] = items
	return items, nil
}

// eagerContext generates every item of a collection when it is reached.
type eagerContext struct {
	*base
	sequences []*sliceSequence
}

func newEagerContext(e *Engine, adapter generator.Adapter) *eagerContext {
	return &eagerContext{base: newBase(e, adapter)}
}

func (c *eagerContext) Lazy() bool { return false }

func (c *eagerContext) build(ctx context.Context, v *visitor, coll *dsl.Collection) (Sequence, error) {
	view := c.reg.clone()
	all := dsl.NewPathSet(dsl.WholeItem)
	items := make([]*value.Object, 0, coll.Count)
	for i := range coll.Count {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obj, err := v.newItem(coll, view, i, all).root.object()
		if err != nil {
			return nil, err
		}
		items = append(items, obj)
	}
	seq := &sliceSequence{items: items, fields: coll.Item.Len()}
	c.sequences = append(c.sequences, seq)
	return seq, nil
}

func (c *eagerContext) memoryStats() MemoryStats {
	stats := MemoryStats{Collections: len(c.sequences)}
	for _, seq := range c.sequences {
		stats.Items += len(seq.items)
		stats.TotalFields += len(seq.items) * seq.fields
	}
	stats.MaterializedFields = stats.TotalFields
	return stats
}

// lazyContext registers proxies. Each collection computes at construction
// only the paths other collections read; see AnalyzePaths.
type lazyContext struct {
	*base
	paths     map[string]dsl.PathSet
	sequences []*LazySequence
}

func newLazyContext(e *Engine, adapter generator.Adapter, paths map[string]dsl.PathSet) *lazyContext {
	return &lazyContext{base: newBase(e, adapter), paths: paths}
}

func (c *lazyContext) Lazy() bool { return true }

// build creates the proxies of a referenced collection up front, so the
// fields other collections read are computed once, in index order.
// Collections nobody references are generated when they are read.
func (c *lazyContext) build(ctx context.Context, v *visitor, coll *dsl.Collection) (Sequence, error) {
	needed := dsl.NewPathSet()
	needed.Union(c.paths[coll.OutputName()])
	needed.Union(c.paths[coll.Key])
	run := *v
	run.state = v.state.Clone()
	seq := &LazySequence{
		v:      &run,
		coll:   coll,
		view:   c.reg.clone(),
		needed: needed,
	}
	if len(needed) > 0 {
		for i := range coll.Count {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, err := seq.proxy(i); err != nil {
				return nil, err
			}
		}
	}
	c.sequences = append(c.sequences, seq)
	return seq, nil
}

func (c *lazyContext) memoryStats() MemoryStats {
	stats := MemoryStats{Lazy: true, Collections: len(c.sequences)}
	for _, seq := range c.sequences {
		for _, it := range seq.cache {
			total, done := it.root.fieldCounts()
			stats.Items++
			stats.TotalFields += total
			stats.MaterializedFields += done
		}
	}
	return stats
}

// MemoryStats reports how much of the generated data is held in memory.
type MemoryStats struct {
	Lazy               bool
	Collections        int
	Items              int
	TotalFields        int
	MaterializedFields int
}

// Ratio is the share of fields materialized, 1 when nothing is held.
func (m MemoryStats) Ratio() float64 {
	if m.TotalFields == 0 {
		return 1
	}
	return float64(m.MaterializedFields) / float64(m.TotalFields)
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("%d/%d fields materialized across %d items in %d collections",
		m.MaterializedFields, m.TotalFields, m.Items, m.Collections)
}
