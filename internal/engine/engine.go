package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/generator"
	"github.com/roach88/dataforge/internal/value"
)

// DefaultMaxRetries bounds retry-until-not-excluded loops per field.
const DefaultMaxRetries = generator.DefaultMaxRetries

// FailurePolicy decides what a failed filter or empty reference yields.
type FailurePolicy int

const (
	// ReturnNull yields the null sentinel and continues the run.
	ReturnNull FailurePolicy = iota

	// Throw stops the run with a FILTERING_FAILED RuntimeError.
	Throw
)

func (p FailurePolicy) String() string {
	switch p {
	case ReturnNull:
		return "return-null"
	case Throw:
		return "throw"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// ParseFailurePolicy accepts "return-null" or "throw" in any case, with
// underscores or dashes.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "return-null", "null":
		return ReturnNull, nil
	case "throw", "fail":
		return Throw, nil
	default:
		return ReturnNull, fmt.Errorf("unknown filter failure policy %q (want return-null or throw)", s)
	}
}

// Engine evaluates one Tree. It is immutable after New and safe to share;
// each Run creates fresh run state.
//
// INVARIANTS:
//   - Collections are generated in declaration order
//   - Fields are generated in declaration order within an item
//   - The same seed and tree produce the same output, lazy or eager
type Engine struct {
	tree       *dsl.Tree
	registry   *generator.Registry
	seed       *int64
	maxRetries int
	policy     FailurePolicy
	lazy       bool
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithSeed fixes the run seed. It takes precedence over the tree's seed.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.seed = &seed
	}
}

// WithMaxRetries bounds filter retries per field.
//
// Default: 100 (DefaultMaxRetries). Non-positive values make New fail.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		e.maxRetries = n
	}
}

// WithFailurePolicy selects what exhausted filters and empty filtered
// references yield. Default: ReturnNull.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithMemoryOptimization switches to lazy generation: items are proxies
// that compute only the fields other collections read, and the rest on
// output.
func WithMemoryOptimization(enabled bool) Option {
	return func(e *Engine) {
		e.lazy = enabled
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine for tree. A nil registry means generator.Default().
func New(tree *dsl.Tree, registry *generator.Registry, opts ...Option) (*Engine, error) {
	if tree == nil {
		return nil, runtimeErr(ErrCodeInvalidConfig, "tree is required")
	}
	if registry == nil {
		registry = generator.Default()
	}
	e := &Engine{
		tree:       tree,
		registry:   registry,
		maxRetries: DefaultMaxRetries,
		policy:     ReturnNull,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxRetries <= 0 {
		return nil, runtimeErr(ErrCodeInvalidConfig, "max retries must be positive, got %d", e.maxRetries)
	}
	switch e.policy {
	case ReturnNull, Throw:
	default:
		return nil, runtimeErr(ErrCodeInvalidConfig, "unknown filter failure policy %d", int(e.policy))
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// Tree returns the tree the engine evaluates.
func (e *Engine) Tree() *dsl.Tree {
	return e.tree
}

// Lazy reports whether runs use memory-optimized generation.
func (e *Engine) Lazy() bool {
	return e.lazy
}

// resolveSeed picks the option seed, then the tree seed, then the clock.
func (e *Engine) resolveSeed() (int64, string) {
	switch {
	case e.seed != nil:
		return *e.seed, "option"
	case e.tree.Seed != nil:
		return *e.tree.Seed, "schema"
	default:
		return e.now().UnixNano(), "clock"
	}
}

// Run generates every collection.
//
// ctx is checked between collections and between items. In lazy mode most
// field generation happens later, when the Result is read; errors from
// that work surface from Sequence.At and Sequence.Stream.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	seed, origin := e.resolveSeed()
	mode := "eager"
	if e.lazy {
		mode = "lazy"
	}
	e.logger.Info("generation starting",
		"seed", seed,
		"seed_origin", origin,
		"mode", mode,
		"collections", len(e.tree.Collections))

	adapter, err := generator.NewAdapter(e.maxRetries)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidConfig, Message: err.Error(), Err: err}
	}
	var evalCtx Context
	if e.lazy {
		evalCtx = newLazyContext(e, adapter, AnalyzePaths(e.tree))
	} else {
		evalCtx = newEagerContext(e, adapter)
	}
	v := &visitor{
		ctx:   evalCtx,
		gens:  e.registry,
		state: generator.NewState(),
		decl:  e.tree.Declarations(),
		seed:  seed,
	}

	for _, coll := range e.tree.Collections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := v.collection(ctx, coll); err != nil {
			return nil, err
		}
	}

	result := &Result{
		Seed:        seed,
		Lazy:        e.lazy,
		names:       e.tree.OutputNames(),
		collections: make(map[string]Sequence),
		ctx:         evalCtx,
	}
	for _, name := range result.names {
		if seq, ok := evalCtx.Collection(name); ok {
			result.collections[name] = seq
		}
	}
	e.logger.Info("generation finished",
		"seed", seed,
		"mode", mode,
		"collections", len(result.names))
	return result, nil
}

// RunAll runs the engine once per seed, in parallel. Results are in seed
// order. The first failure cancels the remaining runs.
func RunAll(ctx context.Context, e *Engine, seeds []int64) ([]*Result, error) {
	results := make([]*Result, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	for i, seed := range seeds {
		seeded := *e
		seeded.seed = &seed
		g.Go(func() error {
			res, err := seeded.Run(gctx)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Result holds the generated collections of one run, by output name.
//
// A lazy Result computes fields as it is read and must be read from one
// goroutine at a time.
type Result struct {
	// Seed is the seed the run used.
	Seed int64

	// Lazy reports whether items are proxies.
	Lazy bool

	names       []string
	collections map[string]Sequence
	ctx         Context
}

// Names returns the output collection names in declaration order.
func (r *Result) Names() []string {
	return append([]string(nil), r.names...)
}

// Collection returns the sequence registered under an output name.
func (r *Result) Collection(name string) (Sequence, bool) {
	seq, ok := r.collections[name]
	return seq, ok
}

// MemoryStats reports how many fields are held in memory.
func (r *Result) MemoryStats() MemoryStats {
	return r.ctx.memoryStats()
}

// Value materializes the whole result as one ordered object keyed by
// output name.
func (r *Result) Value() (*value.Object, error) {
	out := value.NewObject(len(r.names))
	for _, name := range r.names {
		seq := r.collections[name]
		items := make(value.Array, 0, seq.Len())
		err := seq.Stream(func(_ int, item *value.Object) error {
			items = append(items, item)
			return nil
		})
		if err != nil {
			return nil, err
		}
		out.Set(name, items)
	}
	return out, nil
}
