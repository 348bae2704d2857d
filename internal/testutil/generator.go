package testutil

import (
	"sync"

	"github.com/roach88/dataforge/internal/generator"
	"github.com/roach88/dataforge/internal/value"
)

// FixedGenerator returns the same value on every call.
//
// Thread-safety: FixedGenerator is stateless and safe for concurrent use.
type FixedGenerator struct {
	Value value.Value
}

// Generate returns the fixed value.
func (g FixedGenerator) Generate(*generator.Context) (value.Value, error) {
	return value.Clone(g.Value), nil
}

// CyclingGenerator returns its values in order, wrapping around, and
// counts its calls. It does not filter natively, so filtered fields retry
// through it.
type CyclingGenerator struct {
	mu     sync.Mutex
	values []value.Value
	calls  int
}

// NewCyclingGenerator creates a generator over values.
func NewCyclingGenerator(values ...value.Value) *CyclingGenerator {
	return &CyclingGenerator{values: values}
}

// Generate returns the next value.
func (g *CyclingGenerator) Generate(*generator.Context) (value.Value, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.values[g.calls%len(g.values)]
	g.calls++
	return v, nil
}

// Calls returns how many times Generate ran.
func (g *CyclingGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// Registry returns the default registry plus the given generators.
func Registry(extra map[string]generator.Generator) *generator.Registry {
	reg := generator.Default()
	for name, g := range extra {
		reg.MustRegister(name, g)
	}
	return reg
}
