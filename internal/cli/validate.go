package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/generator"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                `json:"valid"`
	Seed        *int64              `json:"seed,omitempty"`
	Collections []CollectionSummary `json:"collections,omitempty"`
	Errors      []Problem           `json:"errors,omitempty"`
}

// CollectionSummary describes one collection definition.
type CollectionSummary struct {
	Key    string   `json:"key"`
	Name   string   `json:"name"` // output name
	Count  int      `json:"count"`
	Fields []string `json:"fields"`
	Tags   []string `json:"tags,omitempty"`
	Picks  []string `json:"picks,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema>",
		Short: "Validate a schema without generating data",
		Long: `Validate a schema without generating data.

Compiles the schema and reports every problem found: CUE evaluation
errors, malformed collection and field definitions, unknown generators,
and references to undeclared collections, tags or picks. On success the
collections are listed in generation order.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	schema, err := LoadSchema(path, generator.Default())
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return reportLoadFailure(formatter, err)
		}
		return outputValidationErrors(formatter, Problems(err))
	}
	formatter.VerboseLog("Compiled %s: %d node(s)", path, schema.Tree.NodeCount())

	return outputValidateSuccess(formatter, ValidationResult{
		Valid:       true,
		Seed:        schema.Tree.Seed,
		Collections: summarize(schema.Tree),
	})
}

// summarize lists the collection definitions of a tree in order.
func summarize(tree *dsl.Tree) []CollectionSummary {
	out := make([]CollectionSummary, 0, len(tree.Collections))
	for _, coll := range tree.Collections {
		s := CollectionSummary{
			Key:    coll.Key,
			Name:   coll.OutputName(),
			Count:  coll.Count,
			Fields: []string{},
			Tags:   coll.Tags,
		}
		for _, f := range coll.Item.Fields() {
			s.Fields = append(s.Fields, f.Name)
		}
		for _, p := range coll.Picks {
			s.Picks = append(s.Picks, fmt.Sprintf("%s=%d", p.Alias, p.Index))
		}
		out = append(out, s)
	}
	return out
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✓ Schema valid")
	if result.Seed != nil {
		fmt.Fprintf(w, "  seed: %d\n", *result.Seed)
	}
	for _, c := range result.Collections {
		label := c.Key
		if c.Name != c.Key {
			label = fmt.Sprintf("%s -> %s", c.Key, c.Name)
		}
		fmt.Fprintf(w, "  %s: %d item(s), fields: %s\n", label, c.Count, strings.Join(c.Fields, ", "))
		if len(c.Tags) > 0 {
			fmt.Fprintf(w, "    tags: %s\n", strings.Join(c.Tags, ", "))
		}
		if len(c.Picks) > 0 {
			fmt.Fprintf(w, "    picks: %s\n", strings.Join(c.Picks, ", "))
		}
	}
	return nil
}

// outputValidationErrors outputs every problem of an invalid schema.
func outputValidationErrors(formatter *OutputFormatter, problems []Problem) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: problems},
			Error: &CLIError{
				Code:    problems[0].Code,
				Message: problems[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(problems)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, p := range problems {
		if p.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", p.Line)
		}
		if p.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", p.Code, p.Field, p.Message)
			continue
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", p.Code, p.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(problems)))
}
