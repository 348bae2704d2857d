package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/querysql"
	"github.com/roach88/dataforge/internal/value"
)

// ErrRunNotFound is returned by Run for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Runs returns every recorded run, oldest first.
// Ordering: ORDER BY created_at ASC, id COLLATE BINARY ASC. UUIDv7 ids
// sort by creation time, so runs within one second keep load order.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seed, lazy, schema_name, created_at
		FROM runs
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		if runs[i].Collections, err = s.collections(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Run returns one recorded run with its collections.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seed, lazy, schema_name, created_at
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	run.Collections, err = s.collections(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Store) collections(ctx context.Context, runID string) ([]Loaded, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, table_name, row_count
		FROM run_collections
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run collections: %w", err)
	}
	defer rows.Close()

	var out []Loaded
	for rows.Next() {
		var l Loaded
		if err := rows.Scan(&l.Name, &l.Table, &l.Rows); err != nil {
			return nil, fmt.Errorf("scan run collection: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run collections: %w", err)
	}
	return out, nil
}

// History returns the runs that wrote a table, oldest first. Only the
// last of them matches the table's current contents.
func (s *Store) History(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id
		FROM run_collections c
		JOIN runs r ON r.id = c.run_id
		WHERE c.table_name = ?
		ORDER BY r.created_at ASC, r.id COLLATE BINARY ASC
	`, table)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return ids, nil
}

// Rows reads a loaded table back in insertion order. Nested values come
// back as their JSON text.
func (s *Store) Rows(ctx context.Context, table string) ([]*value.Object, error) {
	return s.Select(ctx, querysql.Query{Table: table})
}

// Where reads the rows of a table that satisfy a condition written in the
// reference selector grammar, such as "age>=18 and role='admin'". Dotted
// fields read inside nested values.
func (s *Store) Where(ctx context.Context, table, condition string) ([]*value.Object, error) {
	pred, err := dsl.ParseCondition(condition)
	if err != nil {
		return nil, fmt.Errorf("where %s: %w", table, err)
	}
	return s.Select(ctx, querysql.Query{Table: table, Where: pred})
}

// Select runs a compiled query. Rows come back in insertion order.
func (s *Store) Select(ctx context.Context, q querysql.Query) ([]*value.Object, error) {
	query, params, err := querysql.Compile(q)
	if err != nil {
		return nil, err
	}
	table := q.Table
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}

	out := []*value.Object{}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		obj := value.NewObject(len(cols))
		for i, c := range cols {
			obj.Set(c, fromColumn(raw[i]))
		}
		out = append(out, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// fromColumn converts a driver value back to a value.Value.
func fromColumn(v any) value.Value {
	switch val := v.(type) {
	case nil:
		return value.Null{}
	case int64:
		return value.Int(val)
	case float64:
		return value.Float(val)
	case bool:
		return value.Bool(val)
	case []byte:
		return value.String(string(val))
	case string:
		return value.String(val)
	case time.Time:
		return value.String(val.Format(time.RFC3339))
	default:
		return value.String(fmt.Sprint(val))
	}
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run     Run
		created string
	)
	if err := row.Scan(&run.ID, &run.Seed, &run.Lazy, &run.Schema, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return Run{}, fmt.Errorf("parse run time %q: %w", created, err)
	}
	run.CreatedAt = t
	return run, nil
}
