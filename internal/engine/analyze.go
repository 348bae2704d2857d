package engine

import "github.com/roach88/dataforge/internal/dsl"

// AnalyzePaths returns, per collection name, the paths some reference
// reads from it. Paths are recorded under both the output name and the
// local key of every definition a reference can reach; WholeItem means
// the whole item. Self and shadow references read the current item and
// are not recorded.
//
// The lazy engine computes these paths when it builds a proxy and leaves
// the rest for output.
func AnalyzePaths(tree *dsl.Tree) map[string]dsl.PathSet {
	a := &analyzer{tree: tree, decl: tree.Declarations(), out: make(map[string]dsl.PathSet)}
	for _, coll := range tree.Collections {
		for _, f := range coll.Item.Fields() {
			a.walk(f.Node)
		}
	}
	return a.out
}

type analyzer struct {
	tree *dsl.Tree
	decl *dsl.Declarations
	out  map[string]dsl.PathSet
}

func (a *analyzer) walk(n dsl.Node) {
	dsl.Walk(n, func(node dsl.Node) bool {
		switch node := node.(type) {
		case *dsl.Reference:
			a.reference(node, nil)
		case *dsl.ReferenceSpread:
			a.reference(node.Reference, node.Fields)
			for _, f := range node.Reference.Filters {
				a.walk(f)
			}
			return false
		}
		return true
	})
}

// reference records what n reads. fields lists the source fields of a
// reference spread.
func (a *analyzer) reference(n *dsl.Reference, fields []dsl.FieldSpec) {
	ref := n.Ref
	if ref == nil {
		parsed, err := dsl.ParseReference(n.Expr, a.decl)
		if err != nil {
			return
		}
		ref = parsed
	}

	var paths []string
	switch {
	case ref.Path != "":
		paths = []string{ref.Path}
	case len(fields) > 0:
		for _, f := range fields {
			paths = append(paths, f.Source)
		}
	default:
		paths = []string{dsl.WholeItem}
	}
	if ref.Kind == dsl.RefConditional {
		paths = append(paths, dsl.Fields(ref.Condition)...)
	}

	switch ref.Kind {
	case dsl.RefSimple, dsl.RefIndexed, dsl.RefRange, dsl.RefConditional:
		a.recordAll(a.tree.Definitions(ref.Source), paths)
	case dsl.RefTag:
		if ref.DynamicTag != "" {
			for _, coll := range a.tree.Collections {
				if len(coll.Tags) > 0 {
					a.record(coll, paths)
				}
			}
			return
		}
		if owner, ok := a.decl.TagOwner(ref.Source); ok {
			a.recordAll(a.tree.Definitions(owner), paths)
		}
	case dsl.RefPick:
		key, ok := a.decl.PickCollection(ref.Source)
		if !ok {
			return
		}
		if coll, ok := a.tree.Collection(key); ok {
			a.add(coll.Key, paths)
		}
	case dsl.RefSelf, dsl.RefShadow:
	}
}

func (a *analyzer) recordAll(colls []*dsl.Collection, paths []string) {
	for _, coll := range colls {
		a.record(coll, paths)
	}
}

func (a *analyzer) record(coll *dsl.Collection, paths []string) {
	a.add(coll.OutputName(), paths)
	a.add(coll.Key, paths)
}

func (a *analyzer) add(name string, paths []string) {
	set, ok := a.out[name]
	if !ok {
		set = dsl.NewPathSet()
		a.out[name] = set
	}
	for _, p := range paths {
		set.Add(p)
	}
}
