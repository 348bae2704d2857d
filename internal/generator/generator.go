package generator

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/roach88/dataforge/internal/value"
)

// Context carries everything one generator call may use.
type Context struct {
	// Rand is the random source for this call. The engine derives it per
	// field so results do not depend on evaluation order.
	Rand *rand.Rand

	// Options are the resolved options for this call (never nil).
	Options *value.Object

	// Field names the field being generated, for error messages.
	Field string

	// Key identifies the schema node being generated. Stateful generators
	// key their State by it.
	Key int

	// State is scoped to one run.
	State *State
}

// Generator produces a value from options.
type Generator interface {
	Generate(ctx *Context) (value.Value, error)
}

// PathGenerator generates only the value at a path instead of generating
// the whole object and extracting from it.
type PathGenerator interface {
	GenerateAtPath(ctx *Context, path string) (value.Value, error)
}

// FieldSupplier offers cheap generation of named top-level fields.
type FieldSupplier interface {
	Fields() map[string]Func
}

// FilteringGenerator generates values outside an exclusion set without
// retrying.
type FilteringGenerator interface {
	SupportsFiltering() bool
	GenerateWithFilter(ctx *Context, excluded []value.Value) (value.Value, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx *Context) (value.Value, error)

// Generate calls f.
func (f Func) Generate(ctx *Context) (value.Value, error) {
	return f(ctx)
}

// State holds per-run generator state, keyed by schema node.
type State struct {
	mu       sync.Mutex
	counters map[int]int64
}

// NewState creates empty run state.
func NewState() *State {
	return &State{counters: make(map[int]int64)}
}

// Next returns start + step*n for the n-th call with key (n from 0).
func (s *State) Next(key int, start, step int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.counters[key]
	s.counters[key] = n + 1
	return start + step*n
}

// Clone copies the state. Counters advanced on the copy leave s unchanged.
func (s *State) Clone() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := NewState()
	for k, n := range s.counters {
		out.counters[k] = n
	}
	return out
}

// Produce generates the value at path, preferring a field supplier, then
// targeted path generation, then generate-and-extract.
func Produce(g Generator, ctx *Context, path string) (value.Value, error) {
	if path == "" {
		return g.Generate(ctx)
	}
	if fs, ok := g.(FieldSupplier); ok {
		if supplier, found := fs.Fields()[path]; found {
			return supplier(ctx)
		}
	}
	if pg, ok := g.(PathGenerator); ok {
		return pg.GenerateAtPath(ctx, path)
	}
	v, err := g.Generate(ctx)
	if err != nil {
		return nil, err
	}
	return value.Lookup(v, path), nil
}

// optionInt reads an integer option, accepting integral floats.
func optionInt(opts *value.Object, key string, def int64) (int64, error) {
	v, ok := opts.Get(key)
	if !ok || value.IsNull(v) {
		return def, nil
	}
	switch n := v.(type) {
	case value.Int:
		return int64(n), nil
	case value.Float:
		if float64(n) == float64(int64(n)) {
			return int64(n), nil
		}
	}
	return 0, fmt.Errorf("option %q must be an integer, got %s", key, value.Text(v))
}

func optionFloat(opts *value.Object, key string, def float64) (float64, error) {
	v, ok := opts.Get(key)
	if !ok || value.IsNull(v) {
		return def, nil
	}
	f, isNum := value.AsFloat(v)
	if !isNum {
		return 0, fmt.Errorf("option %q must be a number, got %s", key, value.Text(v))
	}
	return f, nil
}

func optionString(opts *value.Object, key, def string) (string, error) {
	v, ok := opts.Get(key)
	if !ok || value.IsNull(v) {
		return def, nil
	}
	s, isStr := v.(value.String)
	if !isStr {
		return "", fmt.Errorf("option %q must be a string, got %s", key, value.Text(v))
	}
	return string(s), nil
}

func optionBool(opts *value.Object, key string, def bool) (bool, error) {
	v, ok := opts.Get(key)
	if !ok || value.IsNull(v) {
		return def, nil
	}
	b, isBool := v.(value.Bool)
	if !isBool {
		return false, fmt.Errorf("option %q must be a boolean, got %s", key, value.Text(v))
	}
	return bool(b), nil
}
