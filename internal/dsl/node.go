package dsl

import "github.com/roach88/dataforge/internal/value"

// NodeID identifies a node within a Tree. IDs start at 1; 0 means the
// node has not been numbered yet.
type NodeID int

// Node is a field definition.
//
// This is a sealed interface - only types in this package implement it.
// Node kinds:
//   - Literal: constant value
//   - Generated: value from a named generator
//   - Object: nested template
//   - Array: repeated item node
//   - Choice: one of several option nodes
//   - Spread: generator object merged into the parent
//   - Reference: value selected from another collection, tag, pick, or
//     the current item
//   - ReferenceSpread: referenced object merged into the parent
//   - Filter: exclusion value for Generated, Choice and Reference nodes
type Node interface {
	dslNode() // Marker method - seals interface to this package
	NodeID() NodeID
}

// Literal is a constant value.
type Literal struct {
	ID    NodeID
	Value value.Value
}

// Generated produces a value by calling a registered generator.
//
// "gen": "name.firstName" compiles to Generator "name" and Path
// "firstName"; the path is extracted from the generated value (or
// generated directly when the generator supports it).
type Generated struct {
	ID        NodeID
	Generator string
	Path      string
	Options   *Options
	Filters   []*Filter
}

// Object is a nested object with its own ordered fields.
type Object struct {
	ID       NodeID
	Template *Template
}

// Array repeats Item a fixed or random number of times.
// When Fixed is false the size is drawn uniformly from [MinSize, MaxSize].
type Array struct {
	ID      NodeID
	Fixed   bool
	Size    int
	MinSize int
	MaxSize int
	Item    Node
}

// Choice selects one of Options. Weights, when present, has one positive
// entry per option.
type Choice struct {
	ID      NodeID
	Options []Node
	Weights []float64
	Filters []*Filter
}

// Spread merges the fields of a generated object into the enclosing
// object. An empty Fields list merges every field the generator offers.
type Spread struct {
	ID        NodeID
	Generator string
	Options   *Options
	Fields    []FieldSpec
}

// Reference selects a value described by a reference expression.
type Reference struct {
	ID         NodeID
	Expr       string
	Ref        *Ref
	Filters    []*Filter
	Sequential bool
}

// ReferenceSpread merges the fields of a referenced object into the
// enclosing object.
type ReferenceSpread struct {
	ID        NodeID
	Reference *Reference
	Fields    []FieldSpec
}

// Filter wraps a node whose evaluated value becomes an excluded value.
type Filter struct {
	ID   NodeID
	Node Node
}

func (*Literal) dslNode()         {}
func (*Generated) dslNode()       {}
func (*Object) dslNode()          {}
func (*Array) dslNode()           {}
func (*Choice) dslNode()          {}
func (*Spread) dslNode()          {}
func (*Reference) dslNode()       {}
func (*ReferenceSpread) dslNode() {}
func (*Filter) dslNode()          {}

func (n *Literal) NodeID() NodeID         { return n.ID }
func (n *Generated) NodeID() NodeID       { return n.ID }
func (n *Object) NodeID() NodeID          { return n.ID }
func (n *Array) NodeID() NodeID           { return n.ID }
func (n *Choice) NodeID() NodeID          { return n.ID }
func (n *Spread) NodeID() NodeID          { return n.ID }
func (n *Reference) NodeID() NodeID       { return n.ID }
func (n *ReferenceSpread) NodeID() NodeID { return n.ID }
func (n *Filter) NodeID() NodeID          { return n.ID }

// Options holds generator options.
//
// Static options are known when the schema is compiled. Runtime options
// are references resolved per item, optionally mapped through a lookup
// table. Generated options are generator or choice nodes evaluated per
// item. Keys are unique across the three groups.
type Options struct {
	Static    *value.Object
	Runtime   []RuntimeOption
	Generated []GeneratedOption
}

// RuntimeOption is an option whose value comes from a reference.
// When Map is set the resolved value is looked up in it (by text form);
// a value with no entry is an error. A null resolved value omits the option.
type RuntimeOption struct {
	Key       string
	Reference *Reference
	Map       *value.Object
}

// GeneratedOption is an option whose value is generated per item.
type GeneratedOption struct {
	Key  string
	Node Node
}

// StaticOptions returns options with only static values.
func StaticOptions(obj *value.Object) *Options {
	if obj == nil {
		obj = value.NewObject(0)
	}
	return &Options{Static: obj}
}

// IsDynamic reports whether any option must be computed per item.
func (o *Options) IsDynamic() bool {
	return o != nil && (len(o.Runtime) > 0 || len(o.Generated) > 0)
}

// Children returns the direct child nodes of n in declaration order.
// Filters are returned after the node's own children.
func Children(n Node) []Node {
	var out []Node
	switch node := n.(type) {
	case *Literal:
	case *Generated:
		out = append(out, optionNodes(node.Options)...)
		for _, f := range node.Filters {
			out = append(out, f)
		}
	case *Object:
		for _, f := range node.Template.Fields() {
			out = append(out, f.Node)
		}
	case *Array:
		out = append(out, node.Item)
	case *Choice:
		out = append(out, node.Options...)
		for _, f := range node.Filters {
			out = append(out, f)
		}
	case *Spread:
		out = append(out, optionNodes(node.Options)...)
	case *Reference:
		for _, f := range node.Filters {
			out = append(out, f)
		}
	case *ReferenceSpread:
		out = append(out, node.Reference)
	case *Filter:
		out = append(out, node.Node)
	}
	return out
}

func optionNodes(o *Options) []Node {
	if o == nil {
		return nil
	}
	var out []Node
	for _, rt := range o.Runtime {
		out = append(out, rt.Reference)
	}
	for _, g := range o.Generated {
		out = append(out, g.Node)
	}
	return out
}

// Walk visits n and every descendant depth-first, in declaration order.
// Returning false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, fn)
	}
}
