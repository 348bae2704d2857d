// Package engine evaluates a dsl.Tree into generated collections.
//
// ARCHITECTURE:
//
// One run is one sequential walk of the tree. Collections are generated in
// declaration order and registered in a Context under their output name,
// their local key, and their tags, so later collections can reference
// them. A reference names a local key first, then an output name. A
// collection that references one declared after it fails with
// UNREGISTERED_SOURCE.
//
// References are resolved by a fixed-order table of resolvers (simple,
// indexed, range, conditional, tag, pick, self, shadow). The first
// resolver that accepts a reference shape resolves it.
//
// Determinism:
// Every evaluation point draws from its own PCG stream, derived by SHA-256
// from the run seed, the collection key, the item index, and the field
// path. A field's value therefore does not depend on which fields were
// computed before it. Sequential reference counters and sequence
// generator counters share one generator.State, keyed by node ID, and
// advance in item order. A lazy collection owns its counters: At completes
// items in index order and Stream reads a copy, so both forms return the
// values an eager run produces.
//
// Lazy mode (WithMemoryOptimization):
// AnalyzePaths finds the paths each collection is read at. Items become
// proxies that compute those paths when built and everything else when
// the Result is read. Self and shadow references see only fields declared
// before the current one in both modes, so lazy and eager runs produce
// the same output for the same seed.
package engine
