package dsl

import (
	"slices"
	"strings"
)

// WholeItem is the PathSet entry meaning "every field".
const WholeItem = "*"

// PathSet is the set of field paths of a collection that some reference
// reads. Paths are dotted ("address.city"); WholeItem stands for the
// whole item.
type PathSet map[string]struct{}

// NewPathSet returns a set holding paths.
func NewPathSet(paths ...string) PathSet {
	s := make(PathSet, len(paths))
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts a path. The empty path is the whole item.
func (s PathSet) Add(path string) {
	if path == "" {
		path = WholeItem
	}
	s[path] = struct{}{}
}

// Union adds every path of other.
func (s PathSet) Union(other PathSet) {
	for p := range other {
		s[p] = struct{}{}
	}
}

// Whole reports whether the whole item is needed.
func (s PathSet) Whole() bool {
	_, ok := s[WholeItem]
	return ok
}

// Needs reports whether field must be computed in full: the set holds
// WholeItem or the exact field name.
func (s PathSet) Needs(field string) bool {
	if s.Whole() {
		return true
	}
	_, ok := s[field]
	return ok
}

// Touches reports whether any path reads field or something below it.
func (s PathSet) Touches(field string) bool {
	if s.Needs(field) {
		return true
	}
	prefix := field + "."
	for p := range s {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Rebase returns the sub-paths below field, with the field prefix
// removed. A set that needs field in full rebases to WholeItem.
func (s PathSet) Rebase(field string) PathSet {
	out := make(PathSet)
	if s.Needs(field) {
		out[WholeItem] = struct{}{}
		return out
	}
	prefix := field + "."
	for p := range s {
		if rest, ok := strings.CutPrefix(p, prefix); ok {
			out[rest] = struct{}{}
		}
	}
	return out
}

// Heads returns the distinct first segments of every path, sorted.
func (s PathSet) Heads() []string {
	seen := make(map[string]bool)
	var out []string
	for p := range s {
		head, _, _ := strings.Cut(p, ".")
		if !seen[head] {
			seen[head] = true
			out = append(out, head)
		}
	}
	slices.Sort(out)
	return out
}

// Sorted returns the paths in lexical order.
func (s PathSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
