package dsl

import (
	"slices"
	"strings"
)

// ShadowPrefix marks a field as a shadow binding: evaluated and usable by
// later fields of the same item, never emitted.
const ShadowPrefix = "$"

// SpreadPrefix marks a field as a spread ("...name").
const SpreadPrefix = "..."

// Field is a named node in a template.
type Field struct {
	Name string
	Node Node
}

// IsShadow reports whether the field is a shadow binding.
func (f Field) IsShadow() bool {
	return IsShadowName(f.Name)
}

// IsShadowName reports whether name carries the shadow sigil.
func IsShadowName(name string) bool {
	return strings.HasPrefix(name, ShadowPrefix)
}

// Template is an ordered, immutable set of fields.
type Template struct {
	fields []Field
	index  map[string]int
}

// NewTemplate creates a Template. Field order is preserved; a repeated
// name replaces the earlier node in place.
func NewTemplate(fields ...Field) *Template {
	t := &Template{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if i, ok := t.index[f.Name]; ok {
			t.fields[i] = f
			continue
		}
		t.index[f.Name] = len(t.fields)
		t.fields = append(t.fields, f)
	}
	return t
}

// Fields returns a copy of the fields in declaration order.
func (t *Template) Fields() []Field {
	if t == nil {
		return nil
	}
	return slices.Clone(t.fields)
}

// Len returns the number of fields.
func (t *Template) Len() int {
	if t == nil {
		return 0
	}
	return len(t.fields)
}

// Field returns the field at declaration index i.
func (t *Template) Field(i int) Field {
	return t.fields[i]
}

// Lookup returns the field named name and its declaration index.
func (t *Template) Lookup(name string) (Field, int, bool) {
	if t == nil {
		return Field{}, -1, false
	}
	i, ok := t.index[name]
	if !ok {
		return Field{}, -1, false
	}
	return t.fields[i], i, true
}

// Open reports whether the template can produce fields that are not
// declared by name (spreads merge generator or referenced fields).
func (t *Template) Open() bool {
	for _, f := range t.fields {
		switch f.Node.(type) {
		case *Spread, *ReferenceSpread:
			return true
		}
	}
	return false
}

// FieldSpec is a spread field selection. "target:source" copies source
// under the name target; a plain "name" copies name unchanged.
type FieldSpec struct {
	Target string
	Source string
}

// ParseFieldSpec parses "target:source" or "name".
func ParseFieldSpec(s string) FieldSpec {
	s = strings.TrimSpace(s)
	if target, source, ok := strings.Cut(s, ":"); ok {
		return FieldSpec{Target: strings.TrimSpace(target), Source: strings.TrimSpace(source)}
	}
	return FieldSpec{Target: s, Source: s}
}

// String returns the field spec in its source form.
func (f FieldSpec) String() string {
	if f.Target == f.Source {
		return f.Source
	}
	return f.Target + ":" + f.Source
}
