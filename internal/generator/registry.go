package generator

import (
	"fmt"
	"maps"
	"slices"
)

// Registry maps generator names to generators.
//
// Register everything before the registry is handed to an engine; after
// that it is only read and may be shared across goroutines.
type Registry struct {
	generators map[string]Generator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{generators: make(map[string]Generator)}
}

// Default returns a registry holding the default generator set.
func Default() *Registry {
	r := NewRegistry()
	for name, g := range defaults() {
		r.generators[name] = g
	}
	return r
}

// Register adds g under name. Registering a name twice is an error.
func (r *Registry) Register(name string, g Generator) error {
	if name == "" {
		return fmt.Errorf("generator name is required")
	}
	if g == nil {
		return fmt.Errorf("generator %q is nil", name)
	}
	if _, exists := r.generators[name]; exists {
		return fmt.Errorf("generator %q already registered", name)
	}
	r.generators[name] = g
	return nil
}

// MustRegister is Register for static setup; it panics on error.
func (r *Registry) MustRegister(name string, g Generator) *Registry {
	if err := r.Register(name, g); err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the generator registered under name.
func (r *Registry) Lookup(name string) (Generator, bool) {
	g, ok := r.generators[name]
	return g, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.generators[name]
	return ok
}

// Names returns registered names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.generators))
}
