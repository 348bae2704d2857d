package compiler

import (
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/generator"
	"github.com/roach88/dataforge/internal/value"
)

// Schema keywords.
const (
	keySeed       = "seed"
	keyCount      = "count"
	keyItem       = "item"
	keyName       = "name"
	keyTags       = "tags"
	keyPick       = "pick"
	keyGen        = "gen"
	keyRef        = "ref"
	keyMap        = "map"
	keyArray      = "array"
	keySize       = "size"
	keyMinSize    = "minSize"
	keyMaxSize    = "maxSize"
	keyFilter     = "filter"
	keyFields     = "fields"
	keyOptions    = "options"
	keyWeights    = "weights"
	keySequential = "sequential"
	keyValue      = "value"

	choiceGenerator = "choice"

	defaultMinSize = 0
	defaultMaxSize = 10
)

var collectionKeys = map[string]bool{
	keyCount: true, keyItem: true, keyName: true, keyTags: true, keyPick: true,
}

// compiler holds the state of one Compile call.
type compiler struct {
	registry *generator.Registry
	decl     *dsl.Declarations
	errs     ErrorList
}

// Compile parses a schema into a Tree.
//
// The schema is a struct whose fields are collection definitions, plus an
// optional integer "seed". Generator names are checked against registry;
// a nil registry means generator.Default().
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`users: { count: 3, item: { id: { gen: "uuid" } } }`)
//	tree, err := compiler.Compile(v, nil)
func Compile(v cue.Value, registry *generator.Registry) (*dsl.Tree, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	if v.Kind() != cue.StructKind {
		return nil, ErrorList{{Field: "schema", Message: "schema must be an object of collections", Pos: v.Pos()}}
	}
	if registry == nil {
		registry = generator.Default()
	}

	c := &compiler{registry: registry, decl: dsl.NewDeclarations()}
	seed := c.declare(v)

	var collections []*dsl.Collection
	c.eachField(v, func(key string, def cue.Value) {
		if key == keySeed {
			return
		}
		if coll := c.buildCollection(key, def); coll != nil {
			collections = append(collections, coll)
		}
	})
	if len(c.errs) > 0 {
		return nil, c.errs
	}

	tree := dsl.NewTree(seed, collections...)
	c.validateReferences(tree)
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return tree, nil
}

// declare is the first pass: it records collection keys, output names,
// tags and pick aliases, and returns the schema seed.
func (c *compiler) declare(v cue.Value) *int64 {
	var seed *int64
	c.eachField(v, func(key string, def cue.Value) {
		if key == keySeed {
			n, err := def.Int64()
			if err != nil {
				c.errorf(keySeed, def.Pos(), "seed must be an integer")
				return
			}
			seed = &n
			return
		}
		if def.Kind() != cue.StructKind {
			return // reported by buildCollection
		}

		outputName := key
		if nameVal, ok := lookup(def, keyName); ok {
			if s, err := nameVal.String(); err == nil && s != "" {
				outputName = s
			}
		}
		c.decl.DeclareCollection(key)
		c.decl.DeclareCollection(outputName)

		if tagsVal, ok := lookup(def, keyTags); ok && tagsVal.Kind() == cue.ListKind {
			iter, _ := tagsVal.List()
			for iter.Next() {
				tag, err := iter.Value().String()
				if err != nil {
					continue // reported by buildCollection
				}
				if owner, ok := c.decl.DeclareTag(tag, outputName); !ok {
					c.errorf(key+"."+keyTags, iter.Value().Pos(),
						"Tag '%s' is already declared by collection '%s' and cannot be redeclared by collection '%s'",
						tag, owner, outputName)
				}
			}
		}

		if pickVal, ok := lookup(def, keyPick); ok && pickVal.Kind() == cue.StructKind {
			c.eachField(pickVal, func(alias string, _ cue.Value) {
				c.decl.DeclarePick(alias, key)
			})
		}
	})
	return seed
}

func (c *compiler) buildCollection(key string, def cue.Value) *dsl.Collection {
	if def.Kind() != cue.StructKind {
		c.errorf(key, def.Pos(), "collection must be an object")
		return nil
	}

	coll := &dsl.Collection{Key: key, Count: 1}
	ok := true

	c.eachField(def, func(k string, fv cue.Value) {
		if !collectionKeys[k] {
			c.errorf(key+"."+k, fv.Pos(), "unknown collection key %q", k)
			ok = false
		}
	})

	if countVal, found := lookup(def, keyCount); found {
		n, valid := c.intValue(key+"."+keyCount, countVal)
		switch {
		case !valid:
			ok = false
		case n < 0:
			c.errorf(key+"."+keyCount, countVal.Pos(), "count must be non-negative, got: %d", n)
			ok = false
		default:
			coll.Count = n
		}
	}

	if nameVal, found := lookup(def, keyName); found {
		s, err := nameVal.String()
		if err != nil || s == "" {
			c.errorf(key+"."+keyName, nameVal.Pos(), "name must be a non-empty string")
			ok = false
		}
		if s != key {
			coll.Name = s
		}
	}

	if tagsVal, found := lookup(def, keyTags); found {
		tags, valid := c.stringList(key+"."+keyTags, tagsVal)
		ok = ok && valid
		coll.Tags = tags
	}

	if pickVal, found := lookup(def, keyPick); found {
		picks, valid := c.buildPicks(key, pickVal, coll.Count)
		ok = ok && valid
		coll.Picks = picks
	}

	itemVal, found := lookup(def, keyItem)
	if !found {
		c.errorf(key, def.Pos(), "collection is missing required 'item' field")
		return nil
	}
	if itemVal.Kind() != cue.StructKind {
		c.errorf(key+"."+keyItem, itemVal.Pos(), "item definition must be an object")
		return nil
	}
	coll.Item = c.buildTemplate(key, itemVal)

	if !ok {
		return nil
	}
	return coll
}

func (c *compiler) buildPicks(key string, v cue.Value, count int) ([]dsl.Pick, bool) {
	if v.Kind() != cue.StructKind {
		c.errorf(key+"."+keyPick, v.Pos(), "pick must be an object")
		return nil, false
	}
	var picks []dsl.Pick
	ok := true
	c.eachField(v, func(alias string, iv cue.Value) {
		index, valid := c.intValue(key+"."+keyPick+"."+alias, iv)
		if !valid {
			ok = false
			return
		}
		if index < 0 || index >= count {
			c.errorf(key+"."+keyPick+"."+alias, iv.Pos(),
				"pick alias '%s' index %d is out of bounds (count: %d)", alias, index, count)
			ok = false
			return
		}
		picks = append(picks, dsl.Pick{Alias: alias, Index: index})
	})
	return picks, ok
}

// buildTemplate builds the fields of a struct, skipping omitted keys.
func (c *compiler) buildTemplate(path string, v cue.Value, omit ...string) *dsl.Template {
	var fields []dsl.Field
	c.eachField(v, func(name string, fv cue.Value) {
		if slices.Contains(omit, name) {
			return
		}
		if node := c.buildField(path+"."+name, name, fv); node != nil {
			fields = append(fields, dsl.Field{Name: name, Node: node})
		}
	})
	return dsl.NewTemplate(fields...)
}

// eachField calls fn for every regular field of a struct, in order.
func (c *compiler) eachField(v cue.Value, fn func(label string, v cue.Value)) {
	iter, err := v.Fields()
	if err != nil {
		c.addCUEError(err)
		return
	}
	for iter.Next() {
		fn(iter.Selector().Unquoted(), iter.Value())
	}
}

func (c *compiler) errorf(field string, pos token.Pos, format string, args ...any) {
	c.errs = append(c.errs, &CompileError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	})
}

func (c *compiler) addCUEError(err error) {
	if list, ok := formatCUEError(err).(ErrorList); ok {
		c.errs = append(c.errs, list...)
		return
	}
	c.errs = append(c.errs, &CompileError{Field: "cue", Message: err.Error()})
}

func (c *compiler) intValue(field string, v cue.Value) (int, bool) {
	if v.Kind() != cue.IntKind {
		c.errorf(field, v.Pos(), "must be an integer")
		return 0, false
	}
	n, err := v.Int64()
	if err != nil {
		c.errorf(field, v.Pos(), "%v", err)
		return 0, false
	}
	return int(n), true
}

func (c *compiler) stringList(field string, v cue.Value) ([]string, bool) {
	if v.Kind() != cue.ListKind {
		c.errorf(field, v.Pos(), "must be an array")
		return nil, false
	}
	iter, err := v.List()
	if err != nil {
		c.addCUEError(err)
		return nil, false
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			c.errorf(field, iter.Value().Pos(), "must contain only strings")
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func (c *compiler) decodeValue(field string, v cue.Value) value.Value {
	val, err := decode(v)
	if err != nil {
		c.errorf(field, v.Pos(), "%v", err)
		return nil
	}
	return val
}

// lookup returns the field key of a struct value.
func lookup(v cue.Value, key string) (cue.Value, bool) {
	if v.Kind() != cue.StructKind {
		return cue.Value{}, false
	}
	fv := v.LookupPath(cue.MakePath(cue.Str(key)))
	return fv, fv.Exists()
}

func has(v cue.Value, key string) bool {
	_, ok := lookup(v, key)
	return ok
}

func isSpreadName(name string) bool {
	return strings.HasPrefix(name, dsl.SpreadPrefix)
}
