package output

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/go-openapi/inflect"

	"github.com/roach88/dataforge/internal/engine"
	"github.com/roach88/dataforge/internal/value"
)

// Statement is one INSERT: a table, its columns, and one row of values
// per entry in Rows.
type Statement struct {
	Table   string
	Columns []string
	Rows    [][]value.Value
}

// SQL returns the parameterized form, with one ? per value.
func (s Statement) SQL() string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(s.Columns)), ", ") + ")"
	rows := make([]string, len(s.Rows))
	for i := range rows {
		rows[i] = row
	}
	return s.prefix() + strings.Join(rows, ", ") + ";"
}

// Args returns the driver arguments for SQL, row by row.
func (s Statement) Args() []any {
	args := make([]any, 0, len(s.Rows)*len(s.Columns))
	for _, row := range s.Rows {
		for _, v := range row {
			args = append(args, Arg(v))
		}
	}
	return args
}

// Render returns the statement with values inlined as SQL literals.
func (s Statement) Render() string {
	rows := make([]string, len(s.Rows))
	for i, row := range s.Rows {
		lits := make([]string, len(row))
		for j, v := range row {
			lits[j] = Literal(v)
		}
		rows[i] = "(" + strings.Join(lits, ", ") + ")"
	}
	return s.prefix() + strings.Join(rows, ", ") + ";"
}

func (s Statement) prefix() string {
	cols := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = QuoteIdent(c)
	}
	return "INSERT INTO " + QuoteIdent(s.Table) + " (" + strings.Join(cols, ", ") + ") VALUES "
}

// QuoteIdent double-quotes an identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Literal renders a value as a SQL literal. Objects and arrays become
// JSON text.
func Literal(v value.Value) string {
	switch val := value.OrNull(v).(type) {
	case value.Null:
		return "NULL"
	case value.Int, value.Float:
		return value.Text(val)
	case value.Bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return "'" + strings.ReplaceAll(value.Text(val), "'", "''") + "'"
	}
}

// Arg converts a value to a database/sql argument. Objects and arrays
// become JSON text.
func Arg(v value.Value) any {
	switch val := value.OrNull(v).(type) {
	case value.Null:
		return nil
	case value.String:
		return string(val)
	case value.Int:
		return int64(val)
	case value.Float:
		return float64(val)
	case value.Bool:
		return bool(val)
	default:
		return value.Text(val)
	}
}

// SQLWriter converts collections to INSERT statements.
type SQLWriter struct {
	cfg *config

	mu     sync.Mutex
	warned map[string]bool
}

// NewSQLWriter creates a writer.
func NewSQLWriter(opts ...Option) *SQLWriter {
	return &SQLWriter{cfg: newConfig(opts), warned: make(map[string]bool)}
}

// Table returns the table name for a collection.
func (w *SQLWriter) Table(collection string) string {
	if !w.cfg.pluralize {
		return collection
	}
	return inflect.Underscore(inflect.Pluralize(collection))
}

// Columns returns the columns written for an item: the configured
// projection, or every field of the item in order.
func (w *SQLWriter) Columns(collection string, item *value.Object) []string {
	if cols, ok := w.cfg.columns[collection]; ok {
		return cols
	}
	return item.Keys()
}

// Statement builds the single-row INSERT for one item.
func (w *SQLWriter) Statement(collection string, item *value.Object) Statement {
	cols := w.Columns(collection, item)
	row := make([]value.Value, len(cols))
	var nested []string
	for i, c := range cols {
		v, ok := item.Get(c)
		if !ok {
			v = value.Null{}
		}
		switch v.(type) {
		case *value.Object, value.Array:
			nested = append(nested, c)
		}
		row[i] = v
	}
	if len(nested) > 0 {
		w.warnNested(collection, nested)
	}
	return Statement{Table: w.Table(collection), Columns: cols, Rows: [][]value.Value{row}}
}

// warnNested logs once per collection that nested values are stored as
// JSON text.
func (w *SQLWriter) warnNested(collection string, fields []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.warned[collection] {
		return
	}
	w.warned[collection] = true
	w.cfg.logger.Warn("nested values written as JSON text", "collection", collection, "fields", fields)
}

// Statements streams the statements of one collection, batching
// consecutive rows that share columns.
func (w *SQLWriter) Statements(ctx context.Context, collection string, seq engine.Sequence, fn func(Statement) error) error {
	var pending *Statement
	flush := func() error {
		if pending == nil {
			return nil
		}
		st := *pending
		pending = nil
		return fn(st)
	}
	err := seq.Stream(func(_ int, item *value.Object) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := w.Statement(collection, item)
		if pending != nil && w.cfg.batchSize > 1 && len(pending.Rows) < w.cfg.batchSize &&
			slices.Equal(pending.Columns, st.Columns) {
			pending.Rows = append(pending.Rows, st.Rows[0])
			return nil
		}
		if err := flush(); err != nil {
			return err
		}
		pending = &st
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}

// Write renders every collection of res as SQL text.
func (w *SQLWriter) Write(ctx context.Context, out io.Writer, res *engine.Result) error {
	bw := bufio.NewWriter(out)
	for _, name := range res.Names() {
		seq, ok := res.Collection(name)
		if !ok {
			continue
		}
		err := w.Statements(ctx, name, seq, func(st Statement) error {
			_, err := fmt.Fprintln(bw, st.Render())
			return err
		})
		if err != nil {
			return fmt.Errorf("collection %s: %w", name, err)
		}
	}
	return bw.Flush()
}
