package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/dataforge/internal/compiler"
	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/engine"
	"github.com/roach88/dataforge/internal/generator"
	"github.com/roach88/dataforge/internal/value"
)

// Harness runs scenarios.
type Harness struct {
	registry *generator.Registry
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithRegistry sets the generators schemas may use. Default:
// generator.Default().
func WithRegistry(r *generator.Registry) Option {
	return func(h *Harness) {
		h.registry = r
	}
}

// WithLogger sets the logger handed to the engine. Default: a logger
// that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load and compile the schema
// 2. Run the engine once per mode with the scenario's options
// 3. Compare the canonical output of every mode with the first
// 4. Evaluate assertions against the first mode's collections
//
// An error means the scenario could not be executed: the schema did not
// compile, or a run failed that was not expected to.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	tree, err := compiler.LoadFile(cuecontext.New(), scenario.Schema, h.registry)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", scenario.Schema, err)
	}
	opts, err := scenario.Options()
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for _, mode := range scenario.Modes() {
		result.Modes = append(result.Modes, mode)

		runOpts := append([]engine.Option{
			engine.WithLogger(h.logger),
			engine.WithMemoryOptimization(mode == ModeLazy),
		}, opts...)
		collections, seed, err := h.generate(ctx, tree, runOpts)
		if scenario.Seed == nil && tree.Seed == nil && len(result.Modes) == 1 {
			// Later modes reuse the clock seed of the first.
			opts = append(opts, engine.WithSeed(seed))
		}

		if scenario.ExpectError != "" {
			switch {
			case err == nil:
				result.AddError(fmt.Sprintf("%s run: expected error containing %q, run succeeded", mode, scenario.ExpectError))
			case !strings.Contains(err.Error(), scenario.ExpectError):
				result.AddError(fmt.Sprintf("%s run: expected error containing %q, got: %v", mode, scenario.ExpectError, err))
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s run: %w", mode, err)
		}

		data, err := value.MarshalCanonical(collections)
		if err != nil {
			return nil, fmt.Errorf("%s run: encode output: %w", mode, err)
		}
		if result.Output == nil {
			result.Output = data
			for _, msg := range EvaluateAssertions(collections, scenario.Assertions) {
				result.AddError(msg)
			}
			continue
		}
		if !bytes.Equal(result.Output, data) {
			result.AddError(fmt.Sprintf("%s output differs from %s output", mode, result.Modes[0]))
		}
	}
	return result, nil
}

// generate runs the engine and materializes every collection. Lazy runs
// can fail while materializing; that error is returned like a run error.
func (h *Harness) generate(ctx context.Context, tree *dsl.Tree, opts []engine.Option) (*value.Object, int64, error) {
	eng, err := engine.New(tree, h.registry, opts...)
	if err != nil {
		return nil, 0, err
	}
	res, err := eng.Run(ctx)
	if err != nil {
		return nil, 0, err
	}
	obj, err := res.Value()
	return obj, res.Seed, err
}
