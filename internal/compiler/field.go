package compiler

import (
	"errors"
	"math"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/value"
)

// buildField compiles one field definition. It returns nil after
// recording an error.
func (c *compiler) buildField(path, name string, v cue.Value) dsl.Node {
	if v.Kind() == cue.StructKind && has(v, keyCount) {
		return c.buildCountArray(path, v)
	}
	return c.buildDefinition(path, name, v)
}

// buildDefinition dispatches on the keywords a definition carries. Keys
// in omit are ignored (the count shorthand removes "count").
func (c *compiler) buildDefinition(path, name string, v cue.Value, omit ...string) dsl.Node {
	spread := isSpreadName(name)
	if v.Kind() != cue.StructKind {
		if spread {
			c.errorf(path, v.Pos(), "spread field requires 'gen' or 'ref'")
			return nil
		}
		val := c.decodeValue(path, v)
		if val == nil {
			return nil
		}
		return &dsl.Literal{Value: val}
	}

	switch {
	case has(v, keyGen):
		if spread {
			return c.buildSpread(path, v, omit)
		}
		return c.buildGenerated(path, v, omit)
	case has(v, keyRef):
		if spread {
			return c.buildReferenceSpread(path, v)
		}
		return c.buildReference(path, v)
	case has(v, keyArray):
		return c.buildArray(path, v)
	case spread:
		c.errorf(path, v.Pos(), "spread field requires 'gen' or 'ref'")
		return nil
	default:
		return &dsl.Object{Template: c.buildTemplate(path, v, omit...)}
	}
}

// buildCountArray compiles the {"count": n, ...} shorthand: a fixed-size
// array of the remaining definition. {"count": n, "value": x} repeats x.
func (c *compiler) buildCountArray(path string, v cue.Value) dsl.Node {
	countVal, _ := lookup(v, keyCount)
	n, ok := c.intValue(path+"."+keyCount, countVal)
	if !ok {
		return nil
	}
	if n < 0 {
		c.errorf(path, countVal.Pos(), "count must be non-negative")
		return nil
	}

	var rest []string
	c.eachField(v, func(label string, _ cue.Value) {
		if label != keyCount {
			rest = append(rest, label)
		}
	})
	if len(rest) == 0 {
		c.errorf(path, v.Pos(), "field with count must have additional field definition")
		return nil
	}

	var item dsl.Node
	if len(rest) == 1 && rest[0] == keyValue {
		valueVal, _ := lookup(v, keyValue)
		val := c.decodeValue(path+"[item]", valueVal)
		if val == nil {
			return nil
		}
		item = &dsl.Literal{Value: val}
	} else {
		item = c.buildDefinition(path+"[item]", keyItem, v, keyCount)
	}
	if item == nil {
		return nil
	}
	return &dsl.Array{Fixed: true, Size: n, Item: item}
}

func (c *compiler) buildGenerated(path string, v cue.Value, omit []string) dsl.Node {
	genVal, _ := lookup(v, keyGen)
	spec, err := genVal.String()
	if err != nil {
		c.errorf(path, genVal.Pos(), "gen must be a string")
		return nil
	}
	if spec == choiceGenerator {
		return c.buildChoice(path, v)
	}

	name, genPath, _ := strings.Cut(spec, ".")
	if !c.registry.Has(name) {
		c.errorf(path, genVal.Pos(), "Unknown generator: %s", name)
		return nil
	}

	filters, ok := c.buildFilters(path, v)
	options, optsOK := c.buildOptions(path, v, append([]string{keyGen, keyFilter}, omit...))
	if !ok || !optsOK {
		return nil
	}
	return &dsl.Generated{Generator: name, Path: genPath, Options: options, Filters: filters}
}

func (c *compiler) buildChoice(path string, v cue.Value) dsl.Node {
	optionsVal, found := lookup(v, keyOptions)
	if !found {
		c.errorf(path, v.Pos(), "choice is missing required 'options' array")
		return nil
	}
	if optionsVal.Kind() != cue.ListKind {
		c.errorf(path, optionsVal.Pos(), "choice options must be an array")
		return nil
	}

	choice := &dsl.Choice{}
	ok := true
	iter, err := optionsVal.List()
	if err != nil {
		c.addCUEError(err)
		return nil
	}
	for iter.Next() {
		opt := c.buildField(path+"[option]", "option", iter.Value())
		if opt == nil {
			ok = false
			continue
		}
		choice.Options = append(choice.Options, opt)
	}
	if ok && len(choice.Options) == 0 {
		c.errorf(path, optionsVal.Pos(), "choice must have at least one valid option")
		return nil
	}

	if weightsVal, found := lookup(v, keyWeights); found {
		weights, valid := c.buildWeights(path, weightsVal, len(choice.Options))
		ok = ok && valid
		choice.Weights = weights
	}

	filters, valid := c.buildFilters(path, v)
	if !ok || !valid {
		return nil
	}
	choice.Filters = filters
	return choice
}

// buildWeights validates choice weights; each is rounded to two decimals.
func (c *compiler) buildWeights(path string, v cue.Value, n int) ([]float64, bool) {
	if v.Kind() != cue.ListKind {
		c.errorf(path, v.Pos(), "choice weights must be an array")
		return nil, false
	}
	iter, err := v.List()
	if err != nil {
		c.addCUEError(err)
		return nil, false
	}
	var weights []float64
	ok := true
	for i := 0; iter.Next(); i++ {
		w := iter.Value()
		if k := w.Kind(); k != cue.IntKind && k != cue.FloatKind {
			c.errorf(path, w.Pos(), "choice weight at index %d must be a number", i)
			ok = false
			continue
		}
		f, err := w.Float64()
		if err != nil || f <= 0 {
			c.errorf(path, w.Pos(), "choice weight at index %d must be positive", i)
			ok = false
			continue
		}
		weights = append(weights, math.Round(f*100)/100)
	}
	if ok && len(weights) != n {
		c.errorf(path, v.Pos(), "choice weights array must have the same size as options array")
		return nil, false
	}
	return weights, ok
}

func (c *compiler) buildSpread(path string, v cue.Value, omit []string) dsl.Node {
	genVal, _ := lookup(v, keyGen)
	name, err := genVal.String()
	if err != nil {
		c.errorf(path, genVal.Pos(), "gen must be a string")
		return nil
	}
	if !c.registry.Has(name) {
		c.errorf(path, genVal.Pos(), "Unknown generator: %s", name)
		return nil
	}

	fields, ok := c.buildFieldSpecs(path, v)
	options, optsOK := c.buildOptions(path, v, append([]string{keyGen, keyFields}, omit...))
	if !ok || !optsOK {
		return nil
	}
	return &dsl.Spread{Generator: name, Options: options, Fields: fields}
}

func (c *compiler) buildReference(path string, v cue.Value) *dsl.Reference {
	refVal, _ := lookup(v, keyRef)
	expr, err := refVal.String()
	if err != nil {
		c.errorf(path, refVal.Pos(), "ref must be a string")
		return nil
	}

	sequential := false
	if seqVal, found := lookup(v, keySequential); found {
		b, err := seqVal.Bool()
		if err != nil {
			c.errorf(path, seqVal.Pos(), "sequential must be a boolean")
			return nil
		}
		sequential = b
	}

	filters, filtersOK := c.buildFilters(path, v)
	ref := c.parseReference(path, refVal.Pos(), expr)
	if ref == nil || !filtersOK {
		return nil
	}
	return &dsl.Reference{Expr: expr, Ref: ref, Filters: filters, Sequential: sequential}
}

func (c *compiler) buildReferenceSpread(path string, v cue.Value) dsl.Node {
	fields, ok := c.buildFieldSpecs(path, v)
	ref := c.buildReference(path, v)
	if ref == nil || !ok {
		return nil
	}
	return &dsl.ReferenceSpread{Reference: ref, Fields: fields}
}

func (c *compiler) parseReference(path string, pos token.Pos, expr string) *dsl.Ref {
	ref, err := dsl.ParseReference(expr, c.decl)
	if err != nil {
		msg := err.Error()
		var pe *dsl.ParseError
		if errors.As(err, &pe) {
			msg = pe.Message
		}
		c.errorf(path, pos, "%s", msg)
		return nil
	}
	return ref
}

// buildFieldSpecs reads the optional "fields" list of a spread. An
// empty result means every field.
func (c *compiler) buildFieldSpecs(path string, v cue.Value) ([]dsl.FieldSpec, bool) {
	fieldsVal, found := lookup(v, keyFields)
	if !found {
		return nil, true
	}
	names, ok := c.stringList(path+"."+keyFields, fieldsVal)
	if !ok {
		return nil, false
	}
	var specs []dsl.FieldSpec
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		spec := dsl.ParseFieldSpec(name)
		if spec.Target == "" || spec.Source == "" {
			c.errorf(path, fieldsVal.Pos(), "invalid field mapping %q", name)
			return nil, false
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		c.errorf(path, fieldsVal.Pos(), "spread must have at least one field when fields array is provided")
		return nil, false
	}
	return specs, true
}

func (c *compiler) buildFilters(path string, v cue.Value) ([]*dsl.Filter, bool) {
	filterVal, found := lookup(v, keyFilter)
	if !found {
		return nil, true
	}
	if filterVal.Kind() != cue.ListKind {
		c.errorf(path, filterVal.Pos(), "filter must be an array")
		return nil, false
	}
	iter, err := filterVal.List()
	if err != nil {
		c.addCUEError(err)
		return nil, false
	}
	var filters []*dsl.Filter
	ok := true
	for iter.Next() {
		node := c.buildField(path+"[filter]", keyFilter, iter.Value())
		if node == nil {
			ok = false
			continue
		}
		filters = append(filters, &dsl.Filter{Node: node})
	}
	return filters, ok
}

func (c *compiler) buildArray(path string, v cue.Value) dsl.Node {
	arrayVal, _ := lookup(v, keyArray)
	if arrayVal.Kind() != cue.StructKind {
		c.errorf(path, arrayVal.Pos(), "array definition must be an object")
		return nil
	}
	itemVal, found := lookup(arrayVal, keyItem)
	if !found {
		c.errorf(path, arrayVal.Pos(), "array must have an 'item' definition")
		return nil
	}

	hasSize := has(arrayVal, keySize)
	hasRange := has(arrayVal, keyMinSize) || has(arrayVal, keyMaxSize)
	switch {
	case hasSize && hasRange:
		c.errorf(path, arrayVal.Pos(), "array cannot have both 'size' and 'minSize/maxSize'")
		return nil
	case !hasSize && !hasRange:
		c.errorf(path, arrayVal.Pos(), "array must have either 'size' or 'minSize/maxSize'")
		return nil
	}

	item := c.buildField(path+"[item]", keyItem, itemVal)
	if item == nil {
		return nil
	}

	if hasSize {
		sizeVal, _ := lookup(arrayVal, keySize)
		size, ok := c.intValue(path+"."+keySize, sizeVal)
		if !ok {
			return nil
		}
		if size < 0 {
			c.errorf(path, sizeVal.Pos(), "array size must be non-negative")
			return nil
		}
		return &dsl.Array{Fixed: true, Size: size, Item: item}
	}

	minSize, maxSize := defaultMinSize, defaultMaxSize
	if minVal, found := lookup(arrayVal, keyMinSize); found {
		n, ok := c.intValue(path+"."+keyMinSize, minVal)
		if !ok {
			return nil
		}
		minSize = n
	}
	if maxVal, found := lookup(arrayVal, keyMaxSize); found {
		n, ok := c.intValue(path+"."+keyMaxSize, maxVal)
		if !ok {
			return nil
		}
		maxSize = n
	}
	if minSize < 0 {
		c.errorf(path, arrayVal.Pos(), "array minSize must be non-negative")
		return nil
	}
	if maxSize < minSize {
		c.errorf(path, arrayVal.Pos(), "array maxSize must be >= minSize")
		return nil
	}
	return &dsl.Array{MinSize: minSize, MaxSize: maxSize, Item: item}
}

// buildOptions splits the remaining keys of a generator definition into
// static options, runtime references ({"ref": ..., "map": {...}}) and
// generated options ({"gen": ...}).
func (c *compiler) buildOptions(path string, v cue.Value, omit []string) (*dsl.Options, bool) {
	opts := &dsl.Options{Static: value.NewObject(0)}
	ok := true
	c.eachField(v, func(key string, ov cue.Value) {
		if slices.Contains(omit, key) {
			return
		}
		optPath := path + "." + key
		switch {
		case ov.Kind() == cue.StructKind && has(ov, keyRef):
			rt, valid := c.buildRuntimeOption(optPath, key, ov)
			if !valid {
				ok = false
				return
			}
			opts.Runtime = append(opts.Runtime, rt)
		case ov.Kind() == cue.StructKind && has(ov, keyGen):
			node := c.buildGenerated(optPath, ov, nil)
			if node == nil {
				ok = false
				return
			}
			opts.Generated = append(opts.Generated, dsl.GeneratedOption{Key: key, Node: node})
		default:
			val := c.decodeValue(optPath, ov)
			if val == nil {
				ok = false
				return
			}
			opts.Static.Set(key, val)
		}
	})
	return opts, ok
}

func (c *compiler) buildRuntimeOption(path, key string, v cue.Value) (dsl.RuntimeOption, bool) {
	ref := c.buildReference(path, v)
	if ref == nil {
		return dsl.RuntimeOption{}, false
	}
	rt := dsl.RuntimeOption{Key: key, Reference: ref}
	if mapVal, found := lookup(v, keyMap); found {
		if mapVal.Kind() != cue.StructKind {
			c.errorf(path, mapVal.Pos(), "option '%s' has invalid map - must be an object", key)
			return dsl.RuntimeOption{}, false
		}
		obj, err := decodeObject(mapVal)
		if err != nil {
			c.errorf(path, mapVal.Pos(), "%v", err)
			return dsl.RuntimeOption{}, false
		}
		rt.Map = obj
	}
	return rt, true
}
