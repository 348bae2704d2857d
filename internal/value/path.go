package value

import (
	"strconv"
	"strings"
)

// Lookup extracts the value at a dotted path.
//
// Each segment selects an object field; a numeric segment applied to an
// array selects an element. A missing segment yields Null{}. An empty path
// returns v unchanged.
func Lookup(v Value, path string) Value {
	if path == "" {
		return OrNull(v)
	}
	current := OrNull(v)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case *Object:
			next, ok := node.Get(segment)
			if !ok {
				return Null{}
			}
			current = next
		case Array:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return Null{}
			}
			current = node[idx]
		default:
			return Null{}
		}
	}
	return current
}

// SplitPath splits "a.b.c" into its first segment and the remainder.
func SplitPath(path string) (head, rest string) {
	head, rest, _ = strings.Cut(path, ".")
	return head, rest
}
