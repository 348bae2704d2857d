// Package dsl defines the immutable schema tree evaluated by the engine.
//
// A Tree is an ordered list of collection definitions. Each collection has
// an item Template: an ordered set of named fields, each bound to a Node.
// Node is a sealed interface; the engine walks it with exhaustive type
// switches rather than visitor double-dispatch.
//
// Every node carries a NodeID assigned when the tree is built (NewTree
// renumbers the whole tree in declaration order). Sequential reference
// counters and per-field generator state are keyed by NodeID, never by the
// textual expression, so two identical expressions in different fields
// keep independent counters.
//
// The package also owns the reference grammar (ParseReference) and the
// condition grammar used inside selectors (ParseCondition). Parsing is
// pure; evaluation lives in the engine.
package dsl
