package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/dataforge/internal/engine"
	"github.com/roach88/dataforge/internal/output"
	"github.com/roach88/dataforge/internal/value"
)

// Run is one Load recorded in the runs table.
type Run struct {
	ID          string    `json:"id"`
	Seed        int64     `json:"seed"`
	Lazy        bool      `json:"lazy"`
	Schema      string    `json:"schema"`
	CreatedAt   time.Time `json:"created_at"`
	Collections []Loaded  `json:"collections"`
}

// Loaded is one collection written by a run.
type Loaded struct {
	Name  string `json:"name"`
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

// Rows returns the number of rows the run wrote across collections.
func (r Run) Rows() int {
	n := 0
	for _, c := range r.Collections {
		n += c.Rows
	}
	return n
}

// reserved are table names the store owns.
var reserved = map[string]bool{
	"runs":            true,
	"run_collections": true,
}

// Load writes every collection of res into its own table and records
// the run. Tables written by earlier loads are replaced. schema names the
// schema the result came from; opts configure table naming, batching and
// column projection as for SQL output.
//
// Load runs in one transaction: on error nothing is written.
func (s *Store) Load(ctx context.Context, res *engine.Result, schema string, opts ...output.Option) (Run, error) {
	run := Run{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Seed:      res.Seed,
		Lazy:      res.Lazy,
		Schema:    schema,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("load: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seed, lazy, schema_name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Seed, run.Lazy, run.Schema, run.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Run{}, fmt.Errorf("load: record run: %w", err)
	}

	w := output.NewSQLWriter(opts...)
	for i, name := range res.Names() {
		seq, ok := res.Collection(name)
		if !ok {
			continue
		}
		loaded, err := loadCollection(ctx, tx, w, name, seq)
		if err != nil {
			return Run{}, fmt.Errorf("load: collection %s: %w", name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_collections (run_id, seq, name, table_name, row_count)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, i, loaded.Name, loaded.Table, loaded.Rows)
		if err != nil {
			return Run{}, fmt.Errorf("load: record collection %s: %w", name, err)
		}
		run.Collections = append(run.Collections, loaded)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("load: commit: %w", err)
	}
	return run, nil
}

// loadCollection replaces the collection's table and inserts its items.
// An empty collection drops the table and creates none.
func loadCollection(ctx context.Context, tx *sql.Tx, w *output.SQLWriter, name string, seq engine.Sequence) (Loaded, error) {
	table := w.Table(name)
	if reserved[table] {
		return Loaded{}, fmt.Errorf("table name %q is reserved", table)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+output.QuoteIdent(table)); err != nil {
		return Loaded{}, fmt.Errorf("drop %s: %w", table, err)
	}

	loaded := Loaded{Name: name, Table: table}
	created := false
	err := w.Statements(ctx, name, seq, func(st output.Statement) error {
		if !created {
			if _, err := tx.ExecContext(ctx, createTable(st)); err != nil {
				return fmt.Errorf("create %s: %w", table, err)
			}
			created = true
		}
		if _, err := tx.ExecContext(ctx, st.SQL(), st.Args()...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		loaded.Rows += len(st.Rows)
		return nil
	})
	if err != nil {
		return Loaded{}, err
	}
	return loaded, nil
}

// createTable builds the CREATE TABLE for the first statement of a
// collection. Columns whose first value is null get no declared type.
func createTable(st output.Statement) string {
	cols := make([]string, len(st.Columns))
	for i, c := range st.Columns {
		col := output.QuoteIdent(c)
		if typ := columnType(st.Rows[0][i]); typ != "" {
			col += " " + typ
		}
		cols[i] = col
	}
	return "CREATE TABLE " + output.QuoteIdent(st.Table) + " (" + strings.Join(cols, ", ") + ")"
}

// columnType maps a value to a SQLite column type.
func columnType(v value.Value) string {
	switch value.OrNull(v).(type) {
	case value.Int, value.Bool:
		return "INTEGER"
	case value.Float:
		return "REAL"
	case value.String, value.Array, *value.Object:
		return "TEXT"
	default:
		return ""
	}
}
