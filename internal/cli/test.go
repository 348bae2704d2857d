package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dataforge/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update  bool   // regenerate golden files
	Filter  string // scenario filter (glob pattern)
	BaseDir string // resolve schema paths against this directory
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files against their schemas",
		Long: `Run scenario files against their schemas.

Each scenario names a schema, a seed and a mode, and lists assertions
over the generated collections. Scenarios run eagerly and lazily by
default and fail if the two outputs differ. When golden/<scenario>.golden
exists next to a scenario file, the canonical output must match it.

Schema paths are relative to the scenario file unless --base is given.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  dataforge test ./scenarios
  dataforge test ./scenarios --filter "shop-*"
  dataforge test ./scenarios --update
  dataforge test ./scenarios --base ./schemas --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.BaseDir, "base", "", "directory schema paths are relative to")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if opts.BaseDir != "" {
		if _, err := os.Stat(opts.BaseDir); errors.Is(err, fs.ErrNotExist) {
			return NewExitError(ExitCommandError, fmt.Sprintf("base directory not found: %s", opts.BaseDir))
		}
	}
	if _, err := os.Stat(scenariosDir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return fmt.Errorf("failed to find scenarios: %w", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{
				Scenarios: []ScenarioResult{},
				Total:     0,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(scenarioFile, opts, cmd)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}

	return outputTestText(cmd, result)
}

// findScenarioFiles returns the .yaml and .yml files under dir whose
// base name, without extension, matches filter.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario runs one scenario file and, in text mode, prints its
// verdict. A scenario passes when its assertions hold and its output
// matches the golden file, if one exists. With --update a passing
// scenario rewrites its golden file instead.
func runScenario(scenarioFile string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	base := opts.BaseDir
	if base == "" {
		base = filepath.Dir(scenarioFile)
	}

	scenario, err := harness.LoadScenarioWithBasePath(scenarioFile, base)
	if err != nil {
		return report(cmd, opts, filepath.Base(scenarioFile), "",
			"Load error: "+err.Error(), fmt.Sprintf("failed to load scenario: %v", err))
	}

	h := harness.New(harness.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())))
	result, err := h.Run(cmd.Context(), scenario)
	if err != nil {
		return report(cmd, opts, scenario.Name, "",
			"Execution error: "+err.Error(), fmt.Sprintf("execution failed: %v", err))
	}
	if !result.Pass {
		errs := result.Errors
		if len(errs) == 0 {
			errs = []string{"scenario failed"}
		}
		return report(cmd, opts, scenario.Name, "", "", errs...)
	}

	// Scenarios that expect an error have no output to snapshot.
	goldenPath := harness.GoldenPath(scenarioFile)
	if opts.Update && result.Output != nil {
		if err := harness.WriteGolden(goldenPath, result); err != nil {
			return report(cmd, opts, scenario.Name, "",
				"Golden update error: "+err.Error(), fmt.Sprintf("failed to update golden file: %v", err))
		}
		return report(cmd, opts, scenario.Name, " (golden updated)", "")
	}

	if _, err := os.Stat(goldenPath); errors.Is(err, fs.ErrNotExist) {
		return report(cmd, opts, scenario.Name, "", "")
	}
	match, err := harness.MatchesGolden(goldenPath, result)
	switch {
	case err != nil:
		return report(cmd, opts, scenario.Name, "",
			"Golden comparison error: "+err.Error(), fmt.Sprintf("golden comparison failed: %v", err))
	case !match:
		return report(cmd, opts, scenario.Name, "",
			"Golden file mismatch (run with --update to regenerate)", "output does not match golden file")
	}
	return report(cmd, opts, scenario.Name, "", "")
}

// report builds a scenario verdict and prints it in text mode. The
// scenario failed when errs is not empty; detail, when set, replaces the
// errors in the printed report.
func report(cmd *cobra.Command, opts *TestOptions, name, note, detail string, errs ...string) ScenarioResult {
	res := ScenarioResult{Name: name, Pass: len(errs) == 0, Errors: errs}
	if opts.Format == "json" {
		return res
	}

	w := cmd.OutOrStdout()
	if res.Pass {
		fmt.Fprintf(w, "✓ %s%s\n", name, note)
		return res
	}
	fmt.Fprintf(w, "✗ %s\n", name)
	if detail != "" {
		fmt.Fprintf(w, "  %s\n", detail)
		return res
	}
	for _, e := range errs {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return res
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
