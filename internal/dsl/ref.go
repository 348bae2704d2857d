package dsl

import (
	"fmt"
	"strconv"
	"strings"
)

// RefKind classifies a reference expression by its shape.
type RefKind int

const (
	// RefSimple selects a random (or sequential) item of a collection:
	// "users" or "users.name".
	RefSimple RefKind = iota
	// RefIndexed selects by fixed index or wildcard: "users[2].id", "users[*].id".
	RefIndexed
	// RefRange selects within an inclusive window: "users[2:5]", "users[-3:]".
	RefRange
	// RefConditional selects among items matching a condition: "users[age>30].id".
	RefConditional
	// RefTag selects from every collection carrying a tag: "byTag[people]".
	RefTag
	// RefPick reads a named single-item alias: "admin" or "admin.email".
	RefPick
	// RefSelf reads a field of the current item: "this.firstName".
	RefSelf
	// RefShadow reads a shadow binding of the current item: "$user.id".
	RefShadow
)

var refKindNames = [...]string{
	RefSimple:      "simple",
	RefIndexed:     "indexed",
	RefRange:       "range",
	RefConditional: "conditional",
	RefTag:         "tag",
	RefPick:        "pick",
	RefSelf:        "self",
	RefShadow:      "shadow",
}

func (k RefKind) String() string {
	if int(k) < len(refKindNames) {
		return refKindNames[k]
	}
	return fmt.Sprintf("RefKind(%d)", int(k))
}

// TagPrefix opens a tag selector.
const TagPrefix = "byTag["

// SelfPrefix opens a self reference.
const SelfPrefix = "this."

// Ref is a parsed reference expression.
//
// Source is the collection name (simple, indexed, range, conditional),
// the tag (static tag), the pick alias, or the shadow binding name. For
// a dynamic tag ("byTag[this.kind]") Source is empty and DynamicTag holds
// the field read from the current item. Path is the trailing dotted path
// extracted after selection; empty means the whole item.
type Ref struct {
	Kind RefKind
	Expr string

	Source     string
	DynamicTag string

	Index    int
	Wildcard bool

	Start *int
	End   *int

	Condition Predicate

	Path string
}

// HasPath reports whether a trailing path follows the selector.
func (r *Ref) HasPath() bool {
	return r.Path != ""
}

// ParseError describes an invalid reference expression.
type ParseError struct {
	Expr    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid reference %q: %s", e.Expr, e.Message)
}

func parseErr(expr, format string, args ...any) *ParseError {
	return &ParseError{Expr: expr, Message: fmt.Sprintf(format, args...)}
}

// ParseReference parses a reference expression.
//
// decl classifies bare names as picks or collections and rejects
// undeclared sources; a nil decl accepts any source and treats bare names
// as collections.
func ParseReference(expr string, decl *Declarations) (*Ref, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, parseErr(expr, "empty reference")
	}

	switch {
	case trimmed == "this" || strings.HasPrefix(trimmed, SelfPrefix):
		path := strings.TrimPrefix(trimmed, SelfPrefix)
		if trimmed == "this" || path == "" {
			return nil, parseErr(expr, "self reference requires a field: this.<field>")
		}
		return &Ref{Kind: RefSelf, Expr: trimmed, Path: path}, nil

	case strings.HasPrefix(trimmed, ShadowPrefix):
		name, path := splitHead(trimmed[len(ShadowPrefix):])
		if name == "" {
			return nil, parseErr(expr, "shadow reference requires a binding name")
		}
		return &Ref{Kind: RefShadow, Expr: trimmed, Source: ShadowPrefix + name, Path: path}, nil

	case strings.HasPrefix(trimmed, TagPrefix):
		return parseTagReference(trimmed, decl)

	case strings.Contains(trimmed, "["):
		return parseSelectorReference(trimmed, decl)

	default:
		head, path := splitHead(trimmed)
		if decl == nil {
			return &Ref{Kind: RefSimple, Expr: trimmed, Source: head, Path: path}, nil
		}
		if decl.HasPick(head) {
			return &Ref{Kind: RefPick, Expr: trimmed, Source: head, Path: path}, nil
		}
		if decl.HasCollection(head) {
			return &Ref{Kind: RefSimple, Expr: trimmed, Source: head, Path: path}, nil
		}
		return nil, parseErr(expr, "references undeclared collection or pick: %s", head)
	}
}

func splitHead(s string) (string, string) {
	head, rest, _ := strings.Cut(s, ".")
	return head, rest
}

func parseTagReference(expr string, decl *Declarations) (*Ref, error) {
	closeIdx := strings.Index(expr, "]")
	if closeIdx < 0 {
		return nil, parseErr(expr, "unclosed bracket in tag reference")
	}
	tag := strings.TrimSpace(expr[len(TagPrefix):closeIdx])
	if tag == "" {
		return nil, parseErr(expr, "empty tag")
	}
	path, err := trailingPath(expr, closeIdx+1)
	if err != nil {
		return nil, err
	}
	ref := &Ref{Kind: RefTag, Expr: expr, Path: path}
	if strings.HasPrefix(tag, SelfPrefix) {
		field := strings.TrimPrefix(tag, SelfPrefix)
		if field == "" {
			return nil, parseErr(expr, "dynamic tag requires a field: byTag[this.<field>]")
		}
		ref.DynamicTag = field
		return ref, nil
	}
	if decl != nil && !decl.HasTag(tag) {
		return nil, parseErr(expr, "references undeclared tag: %s", tag)
	}
	ref.Source = tag
	return ref, nil
}

func parseSelectorReference(expr string, decl *Declarations) (*Ref, error) {
	open := strings.Index(expr, "[")
	closeIdx := closingBracket(expr, open)
	if closeIdx < 0 {
		return nil, parseErr(expr, "unclosed bracket")
	}
	source := strings.TrimSpace(expr[:open])
	if source == "" {
		return nil, parseErr(expr, "missing collection before selector")
	}
	if decl != nil && !decl.HasCollection(source) {
		return nil, parseErr(expr, "references undeclared collection: %s", source)
	}
	path, err := trailingPath(expr, closeIdx+1)
	if err != nil {
		return nil, err
	}

	selector := strings.TrimSpace(expr[open+1 : closeIdx])
	ref := &Ref{Expr: expr, Source: source, Path: path}
	switch {
	case selector == "":
		return nil, parseErr(expr, "empty condition in brackets")
	case selector == "*":
		ref.Kind = RefIndexed
		ref.Wildcard = true
	case isDigits(selector):
		idx, err := strconv.Atoi(selector)
		if err != nil {
			return nil, parseErr(expr, "invalid numeric index: %s", selector)
		}
		ref.Kind = RefIndexed
		ref.Index = idx
	case isCondition(selector):
		cond, err := ParseCondition(selector)
		if err != nil {
			return nil, &ParseError{Expr: expr, Message: err.Error()}
		}
		ref.Kind = RefConditional
		ref.Condition = cond
	case strings.Contains(selector, ":"):
		start, end, err := parseRange(selector)
		if err != nil {
			return nil, &ParseError{Expr: expr, Message: err.Error()}
		}
		ref.Kind = RefRange
		ref.Start, ref.End = start, end
	default:
		return nil, parseErr(expr, "has invalid index format: %s", selector)
	}
	return ref, nil
}

// closingBracket finds the "]" matching the "[" at open, skipping quoted
// condition literals.
func closingBracket(expr string, open int) int {
	inQuote := false
	for i := open + 1; i < len(expr); i++ {
		switch expr[i] {
		case '\'':
			inQuote = !inQuote
		case ']':
			if !inQuote {
				return i
			}
		}
	}
	return -1
}

func trailingPath(expr string, from int) (string, error) {
	rest := expr[from:]
	if rest == "" {
		return "", nil
	}
	if rest[0] != '.' || len(rest) == 1 {
		return "", parseErr(expr, "unexpected %q after selector", rest)
	}
	return rest[1:], nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isCondition(selector string) bool {
	return strings.ContainsAny(selector, "=<>") ||
		containsWord(selector, "and") || containsWord(selector, "or") ||
		containsWord(selector, "AND") || containsWord(selector, "OR")
}

func containsWord(s, word string) bool {
	return strings.Contains(s, " "+word+" ")
}

// parseRange parses "a:b" with optional, possibly negative, bounds.
func parseRange(selector string) (*int, *int, error) {
	if strings.Count(selector, ":") != 1 {
		return nil, nil, fmt.Errorf("invalid range format '%s': expected a single colon", selector)
	}
	startText, endText, _ := strings.Cut(selector, ":")
	start, err := parseBound(startText)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid range start '%s'", strings.TrimSpace(startText))
	}
	end, err := parseBound(endText)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid range end '%s'", strings.TrimSpace(endText))
	}
	return start, end, nil
}

func parseBound(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Window resolves a range selector against a collection of size n and
// returns the inclusive index bounds. Negative bounds count from the end;
// both bounds are clamped into [0, n-1]. ok is false when the window is
// empty.
func (r *Ref) Window(n int) (lo, hi int, ok bool) {
	if n == 0 {
		return 0, 0, false
	}
	lo, hi = 0, n-1
	if r.Start != nil {
		lo = *r.Start
		if lo < 0 {
			lo += n
		}
	}
	if r.End != nil {
		hi = *r.End
		if hi < 0 {
			hi += n
		}
	}
	lo = max(lo, 0)
	hi = min(hi, n-1)
	return lo, hi, lo <= hi
}
