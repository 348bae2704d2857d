package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/dataforge/internal/engine"
	"github.com/roach88/dataforge/internal/generator"
	"github.com/roach88/dataforge/internal/output"
	"github.com/roach88/dataforge/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Seed            int64
	Lazy            bool
	MaxRetries      int
	OnFilterFailure string
	Output          string // "json" | "sql"
	Indent          string
	SQLPluralize    bool
	BatchSize       int
	Out             string // output file; stdout when empty
	SQLite          string // SQLite database to load the run into
}

// GenerateSummary is the report printed when the data is not written to
// stdout.
type GenerateSummary struct {
	Schema      string         `json:"schema"`
	Seed        int64          `json:"seed"`
	Lazy        bool           `json:"lazy"`
	Collections map[string]int `json:"collections"`
	Out         string         `json:"out,omitempty"`
	RunID       string         `json:"run_id,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <schema>",
		Short: "Generate data from a schema",
		Long: `Generate every collection of a schema and write it as JSON or SQL.

The schema is a .cue, .json, .yaml or .yml file, or a directory of CUE
files evaluated as one package. Without --seed the schema's seed is used,
and without either the run is seeded from the clock; the seed is logged
with --verbose.

Data goes to stdout unless --out or --sqlite is given, in which case a
summary is printed instead.

Examples:
  dataforge generate schema.cue --seed 42
  dataforge generate schema.yaml --output sql --sql-pluralize --batch-size 100
  dataforge generate ./schemas --lazy --out data.json --indent "  "
  dataforge generate schema.cue --sqlite data.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "run seed (default: schema seed, else clock)")
	cmd.Flags().BoolVar(&opts.Lazy, "lazy", false, "materialize fields on demand")
	cmd.Flags().IntVar(&opts.MaxRetries, "max-retries", engine.DefaultMaxRetries, "attempts per filtered value")
	cmd.Flags().StringVar(&opts.OnFilterFailure, "on-filter-failure", "return-null", "return-null|throw")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "json", "data format (json|sql)")
	cmd.Flags().StringVar(&opts.Indent, "indent", "", "JSON indent per level (default compact)")
	cmd.Flags().BoolVar(&opts.SQLPluralize, "sql-pluralize", false, "pluralize and snake-case SQL table names")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "rows per SQL INSERT")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write data to this file")
	cmd.Flags().StringVar(&opts.SQLite, "sqlite", "", "load the run into this SQLite database")

	return cmd
}

func runGenerate(ctx context.Context, opts *GenerateOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	format, err := output.ParseFormat(opts.Output)
	if err != nil {
		return formatter.Problems(ExitCommandError, "invalid flags", []Problem{{Code: ErrCodeGeneric, Message: err.Error()}})
	}
	policy, err := engine.ParseFailurePolicy(opts.OnFilterFailure)
	if err != nil {
		return formatter.Problems(ExitCommandError, "invalid flags", []Problem{{Code: ErrCodeGeneric, Message: err.Error()}})
	}

	registry := generator.Default()
	schema, err := LoadSchema(path, registry)
	if err != nil {
		return reportLoadFailure(formatter, err)
	}
	formatter.VerboseLog("Loaded schema %s: %d collection definition(s)", path, len(schema.Tree.Collections))

	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMaxRetries(opts.MaxRetries),
		engine.WithFailurePolicy(policy),
		engine.WithMemoryOptimization(opts.Lazy),
	}
	if cmd.Flags().Changed("seed") {
		engOpts = append(engOpts, engine.WithSeed(opts.Seed))
	}
	eng, err := engine.New(schema.Tree, registry, engOpts...)
	if err != nil {
		return formatter.Problems(ExitFailure, "generation failed", Problems(err))
	}
	res, err := eng.Run(ctx)
	if err != nil {
		return formatter.Problems(ExitFailure, "generation failed", Problems(err))
	}

	outOpts := []output.Option{
		output.WithIndent(opts.Indent),
		output.WithPluralize(opts.SQLPluralize),
		output.WithBatchSize(opts.BatchSize),
		output.WithLogger(logger),
	}

	summary := GenerateSummary{
		Schema:      path,
		Seed:        res.Seed,
		Lazy:        res.Lazy,
		Collections: make(map[string]int),
		Out:         opts.Out,
	}
	for _, name := range res.Names() {
		if seq, ok := res.Collection(name); ok {
			summary.Collections[name] = seq.Len()
		}
	}

	if opts.Out == "" && opts.SQLite == "" {
		if err := output.Write(ctx, cmd.OutOrStdout(), res, format, outOpts...); err != nil {
			return writeFailure(formatter, err)
		}
		reportStats(formatter, res)
		return nil
	}

	if opts.Out != "" {
		if err := writeFile(ctx, opts.Out, res, format, outOpts); err != nil {
			return writeFailure(formatter, err)
		}
	}
	if opts.SQLite != "" {
		id, err := loadSQLite(ctx, opts.SQLite, res, path, outOpts)
		if err != nil {
			return writeFailure(formatter, err)
		}
		summary.RunID = id
	}
	reportStats(formatter, res)
	return outputGenerateSummary(formatter, summary)
}

// reportLoadFailure reports a schema that could not be read (exit 2) or
// did not compile (exit 1).
func reportLoadFailure(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return formatter.Problems(ExitCommandError, "schema load failed", Problems(err))
	}
	return formatter.Problems(ExitFailure, "schema invalid", Problems(err))
}

// writeFailure reports an error while writing data. Run errors that
// surface while a lazy result is written keep their codes.
func writeFailure(formatter *OutputFormatter, err error) error {
	var runErr *engine.RuntimeError
	if errors.As(err, &runErr) {
		return formatter.Problems(ExitFailure, "generation failed", Problems(err))
	}
	return formatter.Problems(ExitCommandError, "write failed", []Problem{{Code: ErrCodeWriteFailed, Message: err.Error()}})
}

func writeFile(ctx context.Context, path string, res *engine.Result, format output.Format, opts []output.Option) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	bw := bufio.NewWriter(f)
	if err := output.Write(ctx, bw, res, format, opts...); err != nil {
		return err
	}
	return bw.Flush()
}

func loadSQLite(ctx context.Context, path string, res *engine.Result, schema string, opts []output.Option) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer st.Close()

	run, err := st.Load(ctx, res, schema, opts...)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func reportStats(formatter *OutputFormatter, res *engine.Result) {
	mode := "eager"
	if res.Lazy {
		mode = "lazy"
	}
	formatter.VerboseLog("Seed %d (%s): %s", res.Seed, mode, res.MemoryStats())
}

func outputGenerateSummary(formatter *OutputFormatter, summary GenerateSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Generated %s (seed %d)\n", summary.Schema, summary.Seed)
	writeCollectionCounts(w, summary.Collections)
	if summary.Out != "" {
		fmt.Fprintf(w, "  written to %s\n", summary.Out)
	}
	if summary.RunID != "" {
		fmt.Fprintf(w, "  loaded as run %s\n", summary.RunID)
	}
	return nil
}

func writeCollectionCounts(w io.Writer, counts map[string]int) {
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(w, "  %s: %d item(s)\n", name, counts[name])
	}
}
