package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/dataforge/internal/value"
)

// Predicate is a condition inside a reference selector.
//
// This is a sealed interface - only types in this package implement it.
// Predicate types:
//   - Compare: field <op> operand
//   - And: all terms must hold
//   - Or: at least one term must hold
//
// "and" binds tighter than "or"; there are no parentheses.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
	String() string
}

// Operator is a comparison operator.
type Operator string

const (
	OpEq Operator = "="
	OpNe Operator = "!="
	OpLt Operator = "<"
	OpLe Operator = "<="
	OpGt Operator = ">"
	OpGe Operator = ">="
)

// operators in match order: longest first so "<=" is not read as "<".
var operators = []Operator{OpLe, OpGe, OpNe, OpLt, OpGt, OpEq}

// Numeric reports whether the operator orders values numerically.
func (o Operator) Numeric() bool {
	switch o {
	case OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// Operand is the right-hand side of a comparison: a literal, or a field of
// a shadow binding of the current item ("$user.id").
type Operand struct {
	Literal     value.Value
	Binding     string
	BindingPath string
}

// IsBinding reports whether the operand reads a shadow binding.
func (o Operand) IsBinding() bool {
	return o.Binding != ""
}

func (o Operand) String() string {
	if o.IsBinding() {
		if o.BindingPath == "" {
			return o.Binding
		}
		return o.Binding + "." + o.BindingPath
	}
	if s, ok := o.Literal.(value.String); ok {
		return "'" + string(s) + "'"
	}
	return value.Text(o.Literal)
}

// Compare tests one field of a candidate item.
type Compare struct {
	Field   string
	Op      Operator
	Operand Operand
}

// And holds when every term holds.
type And struct {
	Terms []Predicate
}

// Or holds when any term holds.
type Or struct {
	Terms []Predicate
}

func (Compare) predicateNode() {}
func (And) predicateNode()     {}
func (Or) predicateNode()      {}

func (c Compare) String() string {
	return c.Field + string(c.Op) + c.Operand.String()
}

func (a And) String() string {
	return joinTerms(a.Terms, " and ")
}

func (o Or) String() string {
	return joinTerms(o.Terms, " or ")
}

func joinTerms(terms []Predicate, sep string) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, sep)
}

// Fields returns every field name a predicate reads, in order of
// appearance, without duplicates.
func Fields(p Predicate) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch pred := p.(type) {
		case Compare:
			if !seen[pred.Field] {
				seen[pred.Field] = true
				out = append(out, pred.Field)
			}
		case And:
			for _, t := range pred.Terms {
				walk(t)
			}
		case Or:
			for _, t := range pred.Terms {
				walk(t)
			}
		}
	}
	walk(p)
	return out
}

// ParseCondition parses a selector condition such as
// "age>=18 and status='active' or role='admin'".
func ParseCondition(s string) (Predicate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty condition")
	}
	if containsOutsideQuotes(s, " AND ") || containsOutsideQuotes(s, " OR ") {
		return nil, fmt.Errorf("invalid condition format: %s (logical operators must be lowercase: 'and', 'or')", s)
	}

	alternatives := splitOutsideQuotes(s, " or ")
	var ors []Predicate
	for _, alt := range alternatives {
		conjuncts := splitOutsideQuotes(alt, " and ")
		var ands []Predicate
		for _, c := range conjuncts {
			cmp, err := parseComparison(strings.TrimSpace(c))
			if err != nil {
				return nil, err
			}
			ands = append(ands, cmp)
		}
		if len(ands) == 1 {
			ors = append(ors, ands[0])
		} else {
			ors = append(ors, And{Terms: ands})
		}
	}
	if len(ors) == 1 {
		return ors[0], nil
	}
	return Or{Terms: ors}, nil
}

func parseComparison(s string) (Compare, error) {
	if s == "" {
		return Compare{}, fmt.Errorf("logical operator requires a condition on both sides")
	}
	pos, op := findOperator(s)
	if pos < 0 {
		return Compare{}, fmt.Errorf("invalid condition format: %s", s)
	}
	field := strings.TrimSpace(s[:pos])
	raw := strings.TrimSpace(s[pos+len(op):])
	if field == "" {
		return Compare{}, fmt.Errorf("empty field name in condition: %s", s)
	}
	if raw == "" {
		return Compare{}, fmt.Errorf("missing value in condition: %s", s)
	}
	operand := parseOperand(raw)
	if op.Numeric() && !operand.IsBinding() {
		if _, ok := value.AsFloat(operand.Literal); !ok {
			return Compare{}, fmt.Errorf("numeric comparison '%s' on field '%s' requires a numeric value, got %s", op, field, raw)
		}
	}
	return Compare{Field: field, Op: op, Operand: operand}, nil
}

// findOperator returns the position of the first operator outside quotes.
func findOperator(s string) (int, Operator) {
	inQuote := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		for _, op := range operators {
			if strings.HasPrefix(s[i:], string(op)) {
				return i, op
			}
		}
	}
	return -1, ""
}

func parseOperand(raw string) Operand {
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		return Operand{Literal: value.String(raw[1 : len(raw)-1])}
	}
	if strings.HasPrefix(raw, ShadowPrefix) {
		name, path := splitHead(raw[len(ShadowPrefix):])
		return Operand{Binding: ShadowPrefix + name, BindingPath: path}
	}
	switch raw {
	case "true":
		return Operand{Literal: value.Bool(true)}
	case "false":
		return Operand{Literal: value.Bool(false)}
	case "null":
		return Operand{Literal: value.Null{}}
	}
	if !strings.ContainsAny(raw, ".eE") {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Operand{Literal: value.Int(n)}
		}
	}
	if looksNumeric(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Operand{Literal: value.Float(f)}
		}
	}
	// Unquoted words compare as strings.
	return Operand{Literal: value.String(raw)}
}

func containsOutsideQuotes(s, sep string) bool {
	return len(splitOutsideQuotes(s, sep)) > 1
}

func splitOutsideQuotes(s, sep string) []string {
	var parts []string
	inQuote := false
	last := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			inQuote = !inQuote
			continue
		}
		if !inQuote && strings.HasPrefix(s[i:], sep) {
			parts = append(parts, s[last:i])
			i += len(sep) - 1
			last = i + 1
		}
	}
	return append(parts, s[last:])
}

func looksNumeric(s string) bool {
	c := s[0]
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}
