// Package harness runs scenario files against the generation engine.
//
// A scenario names a schema, a seed, the modes to run (eager, lazy or
// both) and a list of assertions over the generated collections:
//
//	name: orders-reference-users
//	description: every order points at an existing user
//	schema: shop.cue
//	seed: 42
//	mode: both
//	assertions:
//	  - type: count
//	    collection: orders
//	    count: 20
//	  - type: field_in
//	    collection: orders
//	    field: userId
//	    values: [1, 2, 3]
//
// When a scenario runs in both modes the harness also checks that lazy
// and eager runs produce byte-identical canonical JSON. Result.Output is
// that canonical JSON, which golden files compare against.
package harness
