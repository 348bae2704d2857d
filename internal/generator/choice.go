package generator

import (
	"fmt"
	"math/rand/v2"

	"github.com/roach88/dataforge/internal/value"
)

// Choose selects one of options, weighted when weights is non-empty.
// Options equal to an excluded value are removed first; if none remain
// the result is a *FilterError.
func Choose(ctx *Context, options []value.Value, weights []float64, excluded []value.Value) (value.Value, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("field '%s': choice has no options", ctx.Field)
	}
	if len(weights) > 0 && len(weights) != len(options) {
		return nil, fmt.Errorf("field '%s': %d weights for %d options", ctx.Field, len(weights), len(options))
	}

	candidates := options
	candidateWeights := weights
	if len(excluded) > 0 {
		candidates = nil
		candidateWeights = nil
		for i, opt := range options {
			if value.Contains(excluded, opt) {
				continue
			}
			candidates = append(candidates, opt)
			if len(weights) > 0 {
				candidateWeights = append(candidateWeights, weights[i])
			}
		}
		if len(candidates) == 0 {
			return nil, &FilterError{Field: ctx.Field, Reason: "all choice options are excluded by filters"}
		}
	}
	return candidates[WeightedIndex(ctx.Rand, candidateWeights, len(candidates))], nil
}

// WeightedIndex draws an index in [0,n). Without weights the draw is
// uniform.
func WeightedIndex(r *rand.Rand, weights []float64, n int) int {
	if len(weights) == 0 {
		return r.IntN(n)
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	target := r.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if target < cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// choiceGenerator serves {"gen": "choice", "options": [...], "weights": [...]}
// when used as a plain generator (for example as a generator-valued
// option). It filters natively.
type choiceGenerator struct{}

func (choiceGenerator) Generate(ctx *Context) (value.Value, error) {
	return choiceGenerator{}.GenerateWithFilter(ctx, nil)
}

func (choiceGenerator) SupportsFiltering() bool { return true }

func (choiceGenerator) GenerateWithFilter(ctx *Context, excluded []value.Value) (value.Value, error) {
	raw, ok := ctx.Options.Get("options")
	opts, isArr := raw.(value.Array)
	if !ok || !isArr {
		return nil, fmt.Errorf("field '%s': choice requires an options array", ctx.Field)
	}
	var weights []float64
	if rawWeights, ok := ctx.Options.Get("weights"); ok {
		arr, isArr := rawWeights.(value.Array)
		if !isArr {
			return nil, fmt.Errorf("field '%s': choice weights must be an array", ctx.Field)
		}
		for i, w := range arr {
			f, isNum := value.AsFloat(w)
			if !isNum || f <= 0 {
				return nil, fmt.Errorf("field '%s': choice weight at index %d must be a positive number", ctx.Field, i)
			}
			weights = append(weights, f)
		}
	}
	return Choose(ctx, opts, weights, excluded)
}
