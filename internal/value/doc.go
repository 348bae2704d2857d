// Package value provides the JSON-like value model shared by every other
// dataforge package.
//
// This package contains type definitions and encoding only. All other
// internal packages import value; value imports nothing internal.
//
// Key design constraints:
//   - Value is sealed: only the types in this package implement it
//   - Object preserves insertion order, which is the order fields are
//     declared in a schema and the order they are emitted
//   - Null{} is the null sentinel; a nil Value is treated as Null
//   - MarshalCanonical is the only encoding used for determinism checks
//     and cache keys
package value
