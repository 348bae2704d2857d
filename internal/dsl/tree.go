package dsl

import "fmt"

// Pick binds an alias to one item of a collection.
type Pick struct {
	Alias string
	Index int
}

// Collection is one collection definition.
//
// Key is the definition's key in the schema. Name is the output name; it
// defaults to Key, and several definitions may share one Name, in which
// case their items are merged in definition order.
type Collection struct {
	Key   string
	Name  string
	Count int
	Tags  []string
	Picks []Pick
	Item  *Template
}

// OutputName returns Name, or Key when Name is empty.
func (c *Collection) OutputName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Key
}

// Tree is the immutable schema evaluated by the engine.
type Tree struct {
	Seed        *int64
	Collections []*Collection

	decl  *Declarations
	nodes int
}

// NewTree builds a Tree and numbers every node in declaration order.
// The collections slice is copied to preserve the caller's order.
func NewTree(seed *int64, collections ...*Collection) *Tree {
	t := &Tree{
		Seed:        seed,
		Collections: append([]*Collection(nil), collections...),
	}
	t.number()
	t.decl = declarationsOf(t.Collections)
	return t
}

// NodeCount returns the number of numbered nodes.
func (t *Tree) NodeCount() int {
	return t.nodes
}

// Declarations returns the names declared by the tree.
func (t *Tree) Declarations() *Declarations {
	return t.decl
}

// Collection returns the first definition with the given key.
func (t *Tree) Collection(key string) (*Collection, bool) {
	for _, c := range t.Collections {
		if c.Key == key {
			return c, true
		}
	}
	return nil, false
}

// Definitions returns the definitions a reference to name reads. A local
// key that differs from its own output name wins; otherwise every
// definition with that output name, in declaration order.
func (t *Tree) Definitions(name string) []*Collection {
	var out []*Collection
	for _, c := range t.Collections {
		if c.Key == name && c.OutputName() != name {
			return []*Collection{c}
		}
		if c.OutputName() == name {
			out = append(out, c)
		}
	}
	return out
}

// OutputNames returns the distinct output names in first-declaration order.
func (t *Tree) OutputNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range t.Collections {
		name := c.OutputName()
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func (t *Tree) number() {
	next := NodeID(0)
	assign := func(n Node) bool {
		next++
		setID(n, next)
		return true
	}
	for _, c := range t.Collections {
		for _, f := range c.Item.Fields() {
			Walk(f.Node, assign)
		}
	}
	t.nodes = int(next)
}

func setID(n Node, id NodeID) {
	switch node := n.(type) {
	case *Literal:
		node.ID = id
	case *Generated:
		node.ID = id
	case *Object:
		node.ID = id
	case *Array:
		node.ID = id
	case *Choice:
		node.ID = id
	case *Spread:
		node.ID = id
	case *Reference:
		node.ID = id
	case *ReferenceSpread:
		node.ID = id
	case *Filter:
		node.ID = id
	default:
		panic(fmt.Sprintf("dsl: unknown node type %T", n))
	}
}

// Declarations records the collection names, pick aliases and tags a
// schema declares. Reference parsing consults it to classify bare names.
type Declarations struct {
	collections map[string]bool
	picks       map[string]string // alias -> collection key
	tags        map[string]string // tag -> output name
}

// NewDeclarations creates an empty set of declarations.
func NewDeclarations() *Declarations {
	return &Declarations{
		collections: make(map[string]bool),
		picks:       make(map[string]string),
		tags:        make(map[string]string),
	}
}

// DeclareCollection declares a collection key or output name.
func (d *Declarations) DeclareCollection(name string) {
	d.collections[name] = true
}

// DeclarePick declares alias as a pick on the collection with the given key.
func (d *Declarations) DeclarePick(alias, collectionKey string) {
	d.picks[alias] = collectionKey
}

// DeclareTag binds tag to an output collection name. It returns the
// existing owner and false when the tag is already bound to a different
// output name.
func (d *Declarations) DeclareTag(tag, outputName string) (string, bool) {
	if owner, ok := d.tags[tag]; ok && owner != outputName {
		return owner, false
	}
	d.tags[tag] = outputName
	return outputName, true
}

// HasCollection reports whether name is a declared key or output name.
func (d *Declarations) HasCollection(name string) bool {
	return d != nil && d.collections[name]
}

// HasPick reports whether alias is a declared pick.
func (d *Declarations) HasPick(alias string) bool {
	if d == nil {
		return false
	}
	_, ok := d.picks[alias]
	return ok
}

// PickCollection returns the key of the collection declaring alias.
func (d *Declarations) PickCollection(alias string) (string, bool) {
	if d == nil {
		return "", false
	}
	key, ok := d.picks[alias]
	return key, ok
}

// HasTag reports whether tag is declared.
func (d *Declarations) HasTag(tag string) bool {
	if d == nil {
		return false
	}
	_, ok := d.tags[tag]
	return ok
}

// TagOwner returns the output name a tag is bound to.
func (d *Declarations) TagOwner(tag string) (string, bool) {
	if d == nil {
		return "", false
	}
	name, ok := d.tags[tag]
	return name, ok
}

func declarationsOf(collections []*Collection) *Declarations {
	d := NewDeclarations()
	for _, c := range collections {
		d.DeclareCollection(c.Key)
		d.DeclareCollection(c.OutputName())
		for _, tag := range c.Tags {
			d.DeclareTag(tag, c.OutputName())
		}
		for _, p := range c.Picks {
			d.DeclarePick(p.Alias, c.Key)
		}
	}
	return d
}
