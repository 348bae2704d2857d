package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dataforge/internal/engine"
)

// Scenario defines one generation check.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the schema file or directory, relative to the scenario
	// file once loaded.
	Schema string `yaml:"schema"`

	// Seed fixes the run seed. Without it the schema's seed is used.
	Seed *int64 `yaml:"seed,omitempty"`

	// Mode is "eager", "lazy" or "both" (default).
	Mode string `yaml:"mode,omitempty"`

	// MaxRetries bounds filter retries; zero means the engine default.
	MaxRetries int `yaml:"max_retries,omitempty"`

	// OnFilterFailure is "return-null" (default) or "throw".
	OnFilterFailure string `yaml:"on_filter_failure,omitempty"`

	// ExpectError, when set, makes the scenario pass only if the run
	// fails with an error containing this text. Assertions are not
	// evaluated.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the generated collections.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion checks one property of a collection.
type Assertion struct {
	// Type is one of count, field_in, field_equals, unique, not_contains.
	Type string `yaml:"type"`

	// Collection is the output collection name.
	Collection string `yaml:"collection"`

	// Field is a dotted path into each item.
	Field string `yaml:"field,omitempty"`

	// Count is the expected number of items (count).
	Count *int `yaml:"count,omitempty"`

	// Value is the expected value of every item (field_equals).
	Value any `yaml:"value,omitempty"`

	// Values is the allowed (field_in) or forbidden (not_contains) set.
	Values []any `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertCount       = "count"
	AssertFieldIn     = "field_in"
	AssertFieldEquals = "field_equals"
	AssertUnique      = "unique"
	AssertNotContains = "not_contains"
)

// Mode constants.
const (
	ModeEager = "eager"
	ModeLazy  = "lazy"
	ModeBoth  = "both"
)

// Modes returns the modes the scenario runs in, eager first.
func (s *Scenario) Modes() []string {
	switch s.Mode {
	case ModeEager:
		return []string{ModeEager}
	case ModeLazy:
		return []string{ModeLazy}
	default:
		return []string{ModeEager, ModeLazy}
	}
}

// Options returns the engine options the scenario configures, without
// the mode.
func (s *Scenario) Options() ([]engine.Option, error) {
	var opts []engine.Option
	if s.Seed != nil {
		opts = append(opts, engine.WithSeed(*s.Seed))
	}
	if s.MaxRetries != 0 {
		opts = append(opts, engine.WithMaxRetries(s.MaxRetries))
	}
	if s.OnFilterFailure != "" {
		policy, err := engine.ParseFailurePolicy(s.OnFilterFailure)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithFailurePolicy(policy))
	}
	return opts, nil
}

// LoadScenario reads and parses a scenario YAML file. The schema path is
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario parses scenario YAML. A relative schema path is joined to
// basePath when basePath is not empty.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	switch s.Mode {
	case "", ModeEager, ModeLazy, ModeBoth:
	default:
		return fmt.Errorf("mode must be one of eager, lazy, both: got %q", s.Mode)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be positive")
	}
	if s.OnFilterFailure != "" {
		if _, err := engine.ParseFailurePolicy(s.OnFilterFailure); err != nil {
			return err
		}
	}
	if len(s.Assertions) == 0 && s.ExpectError == "" {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Collection == "" {
		return fmt.Errorf("assertions[%d]: collection is required", index)
	}

	switch a.Type {
	case AssertCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for count", index)
		}
	case AssertFieldIn, AssertNotContains:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for %s", index, a.Type)
		}
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values list is required for %s", index, a.Type)
		}
	case AssertFieldEquals:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for field_equals", index)
		}
	case AssertUnique:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for unique", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
