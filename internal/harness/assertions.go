package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/dataforge/internal/value"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type       string // Assertion type for categorization
	Collection string
	Field      string
	Expected   string // Human-readable expected outcome
	Actual     string // Human-readable actual outcome
	Index      int    // offending item, -1 when not item-specific
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s on %s", e.Type, e.Collection)
	if e.Field != "" {
		fmt.Fprintf(&buf, ".%s", e.Field)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&buf, " (item %d)", e.Index)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the generated
// collections, keyed by output name, and returns one message per
// failure.
func EvaluateAssertions(collections *value.Object, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(collections, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(collections *value.Object, a Assertion) error {
	raw, ok := collections.Get(a.Collection)
	if !ok {
		return &AssertionError{
			Type: a.Type, Collection: a.Collection, Index: -1,
			Expected: "collection to exist",
			Actual:   fmt.Sprintf("collections are %v", collections.Keys()),
		}
	}
	items, _ := raw.(value.Array)

	switch a.Type {
	case AssertCount:
		return assertCount(items, a)
	case AssertFieldIn:
		return assertFieldIn(items, a)
	case AssertFieldEquals:
		return assertFieldEquals(items, a)
	case AssertUnique:
		return assertUnique(items, a)
	case AssertNotContains:
		return assertNotContains(items, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertCount checks the number of items.
func assertCount(items value.Array, a Assertion) error {
	if len(items) == *a.Count {
		return nil
	}
	return &AssertionError{
		Type: a.Type, Collection: a.Collection, Index: -1,
		Expected: fmt.Sprintf("%d items", *a.Count),
		Actual:   fmt.Sprintf("%d items", len(items)),
	}
}

// assertFieldIn checks that every item's field is one of the values.
func assertFieldIn(items value.Array, a Assertion) error {
	allowed, err := convertValues(a.Values)
	if err != nil {
		return err
	}
	for i, item := range items {
		got := value.Lookup(item, a.Field)
		if !value.Contains(allowed, got) {
			return &AssertionError{
				Type: a.Type, Collection: a.Collection, Field: a.Field, Index: i,
				Expected: "one of " + formatValues(allowed),
				Actual:   formatValue(got),
			}
		}
	}
	return nil
}

// assertFieldEquals checks that every item's field equals the value.
func assertFieldEquals(items value.Array, a Assertion) error {
	want, err := value.FromGo(a.Value)
	if err != nil {
		return fmt.Errorf("assertion %s: value: %w", a.Type, err)
	}
	for i, item := range items {
		got := value.Lookup(item, a.Field)
		if !value.Equal(want, got) {
			return &AssertionError{
				Type: a.Type, Collection: a.Collection, Field: a.Field, Index: i,
				Expected: formatValue(want),
				Actual:   formatValue(got),
			}
		}
	}
	return nil
}

// assertUnique checks that no two items share a field value.
func assertUnique(items value.Array, a Assertion) error {
	seen := make(map[string]int, len(items))
	for i, item := range items {
		got := value.Lookup(item, a.Field)
		key := value.Key(got)
		if first, dup := seen[key]; dup {
			return &AssertionError{
				Type: a.Type, Collection: a.Collection, Field: a.Field, Index: i,
				Expected: "distinct values",
				Actual:   fmt.Sprintf("%s repeats item %d", formatValue(got), first),
			}
		}
		seen[key] = i
	}
	return nil
}

// assertNotContains checks that no item's field is one of the values.
func assertNotContains(items value.Array, a Assertion) error {
	forbidden, err := convertValues(a.Values)
	if err != nil {
		return err
	}
	for i, item := range items {
		got := value.Lookup(item, a.Field)
		if value.Contains(forbidden, got) {
			return &AssertionError{
				Type: a.Type, Collection: a.Collection, Field: a.Field, Index: i,
				Expected: "none of " + formatValues(forbidden),
				Actual:   formatValue(got),
			}
		}
	}
	return nil
}

func convertValues(raw []any) ([]value.Value, error) {
	out := make([]value.Value, len(raw))
	for i, r := range raw {
		v, err := value.FromGo(r)
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// formatValue renders a value as JSON.
func formatValue(v value.Value) string {
	data, err := value.Marshal(value.OrNull(v))
	if err != nil {
		return value.Text(v)
	}
	return string(data)
}

func formatValues(vals []value.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
