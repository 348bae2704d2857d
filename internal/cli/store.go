package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/querysql"
	"github.com/roach88/dataforge/internal/store"
	"github.com/roach88/dataforge/internal/value"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Table string
}

// RowsOptions holds flags for the rows command.
type RowsOptions struct {
	*RootOptions
	Where   string
	Columns []string
	Limit   int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs <database>",
		Short: "List the runs loaded into a SQLite database",
		Long: `List the generation runs loaded with "generate --sqlite", oldest first.

With --table only the runs that wrote that table are listed. The last of
them produced the table's current contents.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Table, "table", "", "only runs that wrote this table")

	return cmd
}

// NewRowsCommand creates the rows command.
func NewRowsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RowsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rows <database> <table>",
		Short: "Print the rows of a loaded table",
		Long: `Print the rows of a table loaded with "generate --sqlite", in the
order they were generated, one JSON object per line.

--where takes a condition in the same form as a conditional reference:
comparisons joined by "and" and "or", such as "age>=18 and role='admin'".
Dotted fields read inside nested values.

Examples:
  dataforge rows data.db users
  dataforge rows data.db orders --where "total>100" --columns id,total --limit 10`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRows(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Where, "where", "", "condition rows must satisfy")
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "columns to print (default all)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows to print")

	return cmd
}

// openStore opens an existing database. Open would create a missing one.
func openStore(formatter *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, formatter.Problems(ExitCommandError, "store open failed",
				[]Problem{{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", path)}})
		}
		return nil, storeFailure(formatter, err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, storeFailure(formatter, err)
	}
	return st, nil
}

func storeFailure(formatter *OutputFormatter, err error) error {
	return formatter.Problems(ExitCommandError, "store query failed", []Problem{{Code: ErrCodeStore, Message: err.Error()}})
}

func runRuns(ctx context.Context, opts *RunsOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(formatter, path)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.Runs(ctx)
	if err != nil {
		return storeFailure(formatter, err)
	}
	if opts.Table != "" {
		ids, err := st.History(ctx, opts.Table)
		if err != nil {
			return storeFailure(formatter, err)
		}
		runs = slices.DeleteFunc(runs, func(r store.Run) bool {
			return !slices.Contains(ids, r.ID)
		})
	}
	formatter.VerboseLog("Read %d run(s) from %s", len(runs), path)

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs.")
		return nil
	}
	for _, r := range runs {
		mode := "eager"
		if r.Lazy {
			mode = "lazy"
		}
		fmt.Fprintf(w, "%s  %s  seed %d (%s)  %s\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.Seed, mode, r.Schema)
		for _, c := range r.Collections {
			fmt.Fprintf(w, "  %s -> %s: %d row(s)\n", c.Name, c.Table, c.Rows)
		}
	}
	return nil
}

func runRows(ctx context.Context, opts *RowsOptions, path, table string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	q := querysql.Query{Table: table, Columns: opts.Columns, Limit: opts.Limit}
	if opts.Where != "" {
		pred, err := dsl.ParseCondition(opts.Where)
		if err != nil {
			return formatter.Problems(ExitCommandError, "invalid flags",
				[]Problem{{Code: ErrCodeGeneric, Message: fmt.Sprintf("--where: %v", err)}})
		}
		q.Where = pred
	}

	st, err := openStore(formatter, path)
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.Select(ctx, q)
	if err != nil {
		return storeFailure(formatter, err)
	}
	formatter.VerboseLog("Read %d row(s) from %s", len(rows), table)

	if formatter.Format == "json" {
		return formatter.Success(rows)
	}
	for _, row := range rows {
		data, err := value.Marshal(row)
		if err != nil {
			return writeFailure(formatter, err)
		}
		fmt.Fprintln(formatter.Writer, string(data))
	}
	return nil
}
