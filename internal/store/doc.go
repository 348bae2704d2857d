// Package store loads generated collections into a SQLite database.
//
// Each output collection becomes a table whose columns follow the first
// item written; column types are inferred from that item. A load also
// records the run (seed, mode, schema name) and how many rows each
// collection produced, so a database can hold the history of the runs
// that filled it.
//
// # Tables
//
//   - runs: one row per Load, keyed by a UUIDv7
//   - run_collections: per-run row counts, in declaration order
//   - one table per collection, replaced by every Load that writes it
//
// # Connections
//
// Open passes WAL journaling, synchronous=NORMAL, a five second busy
// timeout and foreign key enforcement in the DSN. The schema is versioned
// by PRAGMA user_version; each migration runs in its own transaction.
//
// Rows are written with the parameterized statements of internal/output,
// inside one transaction per Load.
//
// # Reading
//
// Runs, Run and History read the bookkeeping tables. Rows, Where and
// Select read collection tables back in generation order; Where filters
// with the conditional-reference grammar, compiled by internal/querysql.
package store
