package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/engine"
	"github.com/roach88/dataforge/internal/generator"
)

// AnalysisResult is the path-dependency map of a schema.
type AnalysisResult struct {
	// Read maps each referenced collection name, output name or local
	// key, to the sorted paths references read from it.
	Read map[string][]string `json:"read"`

	// Unreferenced lists output collections no reference reads. A lazy
	// run computes them only when they are written.
	Unreferenced []string `json:"unreferenced"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <schema>",
		Short: "Show which fields references read from each collection",
		Long: `Show the path-dependency map of a schema.

For every collection some reference reads, lists the field paths it
reads. "*" means the whole item is read. In a lazy run these are the
fields computed when an item is first referenced; everything else waits
until the data is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runAnalyze(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	schema, err := LoadSchema(path, generator.Default())
	if err != nil {
		return reportLoadFailure(formatter, err)
	}

	result := analyze(schema.Tree)
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(result.Read) == 0 {
		fmt.Fprintln(w, "No references between collections.")
	}
	for _, name := range slices.Sorted(maps.Keys(result.Read)) {
		fmt.Fprintf(w, "%s: %s\n", name, strings.Join(result.Read[name], ", "))
	}
	if len(result.Unreferenced) > 0 {
		fmt.Fprintf(w, "unreferenced: %s\n", strings.Join(result.Unreferenced, ", "))
	}
	return nil
}

func analyze(tree *dsl.Tree) AnalysisResult {
	paths := engine.AnalyzePaths(tree)
	result := AnalysisResult{
		Read:         make(map[string][]string, len(paths)),
		Unreferenced: []string{},
	}
	for name, set := range paths {
		result.Read[name] = set.Sorted()
	}
	for _, name := range tree.OutputNames() {
		if _, ok := paths[name]; !ok {
			result.Unreferenced = append(result.Unreferenced, name)
		}
	}
	return result
}
