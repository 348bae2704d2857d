// Package generator defines the value generator capability consumed by the
// engine, a registry of named generators, the default generator set, and
// the filtering-retry adapter.
//
// A Generator turns options into a value. Generators may additionally
// offer targeted generation of a sub-path (PathGenerator), cheap named
// field suppliers (FieldSupplier), or native filtering
// (FilteringGenerator). The engine never calls a generator directly when
// exclusion values are present; it goes through Adapter, which delegates
// to native filtering or retries up to a bound.
//
// Generators receive all randomness through Context.Rand and all run state
// through Context.State. They must not keep mutable state of their own:
// one Registry is shared by every run of an engine, including runs on
// separate goroutines. The csv generator's file cache is the one
// exception; it holds file contents only.
package generator
