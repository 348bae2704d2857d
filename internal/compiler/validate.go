package compiler

import (
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/dataforge/internal/dsl"
)

// validateReferences checks references against the templates they read:
// self references and dynamic tags against the current item, condition
// fields and extracted paths of conditional references against the
// referenced collection. Templates that merge spreads are open and are
// not checked.
func (c *compiler) validateReferences(tree *dsl.Tree) {
	for _, coll := range tree.Collections {
		for _, field := range coll.Item.Fields() {
			path := coll.Key + "." + field.Name
			dsl.Walk(field.Node, func(n dsl.Node) bool {
				if ref, ok := n.(*dsl.Reference); ok {
					c.validateReference(tree, coll, path, ref)
				}
				return true
			})
		}
	}
}

func (c *compiler) validateReference(tree *dsl.Tree, coll *dsl.Collection, path string, node *dsl.Reference) {
	ref := node.Ref
	switch ref.Kind {
	case dsl.RefSelf:
		if !templateHasPath(coll.Item, ref.Path) {
			c.errorf(path, token.NoPos, "Self reference '%s' references non-existent field: %s", ref.Expr, ref.Path)
		}
	case dsl.RefTag:
		if ref.DynamicTag != "" && !templateHasPath(coll.Item, ref.DynamicTag) {
			c.errorf(path, token.NoPos, "Tag reference '%s' reads non-existent field: %s", ref.Expr, ref.DynamicTag)
		}
	case dsl.RefConditional:
		defs := tree.Definitions(ref.Source)
		for _, field := range dsl.Fields(ref.Condition) {
			if !anyTemplateHasPath(defs, field) {
				c.errorf(path, token.NoPos, "Conditional reference '%s' references non-existent field '%s' in collection '%s'",
					ref.Expr, field, ref.Source)
			}
		}
		if ref.HasPath() && !anyTemplateHasPath(defs, ref.Path) {
			c.errorf(path, token.NoPos, "Conditional reference '%s' extracts non-existent field '%s' from collection '%s'",
				ref.Expr, ref.Path, ref.Source)
		}
	}
}

func anyTemplateHasPath(defs []*dsl.Collection, path string) bool {
	for _, def := range defs {
		if templateHasPath(def.Item, path) {
			return true
		}
	}
	return len(defs) == 0
}

// templateHasPath reports whether a dotted path can exist in items built
// from t. Only nested object templates are followed; any sub-path of a
// generated or referenced value is accepted.
func templateHasPath(t *dsl.Template, path string) bool {
	if t.Open() {
		return true
	}
	head, rest, nested := strings.Cut(path, ".")
	field, _, ok := t.Lookup(head)
	if !ok {
		return false
	}
	if !nested {
		return true
	}
	if obj, isObj := field.Node.(*dsl.Object); isObj {
		return templateHasPath(obj.Template, rest)
	}
	return true
}
