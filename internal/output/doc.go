// Package output writes generated collections as JSON or SQL.
//
// Both writers stream: a collection is read item by item through
// Sequence.Stream, so lazy results are never held in memory at once.
//
// JSON output is one object keyed by collection name, in the order the
// collections are first declared; item fields keep their declared order.
//
// SQL output is one INSERT per item (or per batch of items sharing the
// same columns). Identifiers are double-quoted, strings single-quoted with
// quotes doubled, and nested objects and arrays are stored as JSON text.
// Statement also carries the parameterized form for database/sql drivers.
package output
