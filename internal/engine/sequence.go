package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/value"
)

// Item is one generated record as reference resolution sees it. Lazy
// items compute fields on first read.
type Item interface {
	// Field returns the value at a dotted path and whether it exists.
	Field(path string) (value.Value, bool, error)

	// Value returns the whole record, computing any missing fields.
	Value() (*value.Object, error)
}

// Items is an indexed list of items.
type Items interface {
	Len() int
	Item(i int) (Item, error)
}

// Sequence is a generated collection.
type Sequence interface {
	Items

	// At returns item i with every field computed. Lazy sequences cache
	// the result.
	At(i int) (*value.Object, error)

	// Stream calls fn for every item in order. Lazy sequences compute
	// missing fields without caching them.
	Stream(fn func(i int, item *value.Object) error) error
}

// itemValue reads path from item, or the whole item when path is empty.
func itemValue(item Item, path string) (value.Value, error) {
	if path == "" {
		obj, err := item.Value()
		if err != nil {
			return nil, err
		}
		return obj, nil
	}
	v, _, err := item.Field(path)
	if err != nil {
		return nil, err
	}
	return value.OrNull(v), nil
}

// lookupPath is value.Lookup that also reports whether the path exists.
func lookupPath(v value.Value, path string) (value.Value, bool) {
	if path == "" {
		return value.OrNull(v), true
	}
	current := value.OrNull(v)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case *value.Object:
			next, ok := node.Get(segment)
			if !ok {
				return value.Null{}, false
			}
			current = next
		case value.Array:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return value.Null{}, false
			}
			current = node[idx]
		default:
			return value.Null{}, false
		}
	}
	return current, true
}

// objectItem is an eager item.
type objectItem struct {
	obj *value.Object
}

func (o objectItem) Field(path string) (value.Value, bool, error) {
	v, ok := lookupPath(o.obj, path)
	return v, ok, nil
}

func (o objectItem) Value() (*value.Object, error) {
	return o.obj, nil
}

// indexedItem defers to items.Item(index) on every read, so a pick on a
// lazy collection does not build its proxy until it is used.
type indexedItem struct {
	items Items
	index int
}

func (p indexedItem) Field(path string) (value.Value, bool, error) {
	item, err := p.items.Item(p.index)
	if err != nil {
		return nil, false, err
	}
	return item.Field(path)
}

func (p indexedItem) Value() (*value.Object, error) {
	item, err := p.items.Item(p.index)
	if err != nil {
		return nil, err
	}
	return item.Value()
}

// itemList is a filtered candidate list.
type itemList []Item

func (l itemList) Len() int                 { return len(l) }
func (l itemList) Item(i int) (Item, error) { return l[i], nil }

// window is the inclusive range [lo, hi] of items.
type window struct {
	items  Items
	lo, hi int
}

func (w window) Len() int                 { return w.hi - w.lo + 1 }
func (w window) Item(i int) (Item, error) { return w.items.Item(w.lo + i) }

// sliceSequence is an eager collection.
type sliceSequence struct {
	items  []*value.Object
	fields int
}

func (s *sliceSequence) Len() int { return len(s.items) }

func (s *sliceSequence) Item(i int) (Item, error) {
	if i < 0 || i >= len(s.items) {
		return nil, indexError(i, len(s.items))
	}
	return objectItem{obj: s.items[i]}, nil
}

func (s *sliceSequence) At(i int) (*value.Object, error) {
	if i < 0 || i >= len(s.items) {
		return nil, indexError(i, len(s.items))
	}
	return s.items[i], nil
}

func (s *sliceSequence) Stream(fn func(int, *value.Object) error) error {
	for i, item := range s.items {
		if err := fn(i, item); err != nil {
			return err
		}
	}
	return nil
}

func indexError(i, n int) error {
	return fmt.Errorf("index %d out of range [0,%d)", i, n)
}

// compositeSequence concatenates the definitions merged under one name.
type compositeSequence struct {
	parts []Sequence
}

// concat joins two sequences into a new value; neither input changes.
func concat(a, b Sequence) Sequence {
	var parts []Sequence
	if c, ok := a.(*compositeSequence); ok {
		parts = append(parts, c.parts...)
	} else {
		parts = append(parts, a)
	}
	return &compositeSequence{parts: append(parts, b)}
}

func (c *compositeSequence) Len() int {
	n := 0
	for _, p := range c.parts {
		n += p.Len()
	}
	return n
}

func (c *compositeSequence) locate(i int) (Sequence, int, error) {
	if i < 0 {
		return nil, 0, indexError(i, c.Len())
	}
	offset := i
	for _, p := range c.parts {
		if offset < p.Len() {
			return p, offset, nil
		}
		offset -= p.Len()
	}
	return nil, 0, indexError(i, c.Len())
}

func (c *compositeSequence) Item(i int) (Item, error) {
	p, j, err := c.locate(i)
	if err != nil {
		return nil, err
	}
	return p.Item(j)
}

func (c *compositeSequence) At(i int) (*value.Object, error) {
	p, j, err := c.locate(i)
	if err != nil {
		return nil, err
	}
	return p.At(j)
}

func (c *compositeSequence) Stream(fn func(int, *value.Object) error) error {
	offset := 0
	for _, p := range c.parts {
		err := p.Stream(func(i int, item *value.Object) error {
			return fn(offset+i, item)
		})
		if err != nil {
			return err
		}
		offset += p.Len()
	}
	return nil
}

// LazySequence is a collection of proxies. Proxies are built in index
// order on first access; building one computes only the needed paths.
//
// The sequence owns the generator state of its collection. Counters only
// advance in index order: At completes every earlier item first, and
// Stream computes the items At has not reached against a copy.
type LazySequence struct {
	v      *visitor
	coll   *dsl.Collection
	view   *registry
	needed dsl.PathSet
	cache  []*itemScope
	done   int // cache[:done] is fully materialized
}

// Len returns the target count.
func (l *LazySequence) Len() int {
	return l.coll.Count
}

// Needed returns the paths computed when a proxy is built.
func (l *LazySequence) Needed() dsl.PathSet {
	return l.needed
}

func (l *LazySequence) proxy(i int) (*itemScope, error) {
	if i < 0 || i >= l.coll.Count {
		return nil, indexError(i, l.coll.Count)
	}
	for len(l.cache) <= i {
		it := l.v.newItem(l.coll, l.view, len(l.cache), l.needed)
		if err := it.root.materializeNeeded(); err != nil {
			return nil, err
		}
		l.cache = append(l.cache, it)
	}
	return l.cache[i], nil
}

// Item returns the cached proxy for index i.
func (l *LazySequence) Item(i int) (Item, error) {
	it, err := l.proxy(i)
	if err != nil {
		return nil, err
	}
	return it.root, nil
}

// At materializes items up to and including i and keeps the results.
func (l *LazySequence) At(i int) (*value.Object, error) {
	if _, err := l.proxy(i); err != nil {
		return nil, err
	}
	for ; l.done <= i; l.done++ {
		if err := l.cache[l.done].root.materializeAll(); err != nil {
			return nil, err
		}
	}
	return l.cache[i].root.object()
}

// Stream produces every item without growing the cache. Items At has not
// completed are copied before their missing fields are computed.
func (l *LazySequence) Stream(fn func(int, *value.Object) error) error {
	all := dsl.NewPathSet(dsl.WholeItem)
	run := *l.v
	run.state = l.v.state.Clone()
	for i := range l.coll.Count {
		var it *itemScope
		switch {
		case i < l.done:
			it = l.cache[i]
		case i < len(l.cache):
			it = l.cache[i].clone()
			it.v = &run
		default:
			it = run.newItem(l.coll, l.view, i, all)
		}
		obj, err := it.root.object()
		if err != nil {
			return err
		}
		if err := fn(i, obj); err != nil {
			return err
		}
	}
	return nil
}
