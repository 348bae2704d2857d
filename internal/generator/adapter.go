package generator

import (
	"errors"
	"fmt"

	"github.com/roach88/dataforge/internal/value"
)

// DefaultMaxRetries bounds retry-until-excluded loops when no explicit
// bound is configured.
const DefaultMaxRetries = 100

// FilterError reports that no acceptable value was found.
type FilterError struct {
	Field    string
	Attempts int
	Reason   string
}

func (e *FilterError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("field '%s': %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("field '%s': failed to generate a valid value after %d retries", e.Field, e.Attempts)
}

// IsFilterError reports whether err is (or wraps) a FilterError.
func IsFilterError(err error) bool {
	var fe *FilterError
	return errors.As(err, &fe)
}

// Adapter wraps generation with exclusion filtering.
type Adapter struct {
	MaxRetries int
}

// NewAdapter creates an Adapter. A non-positive bound is rejected.
func NewAdapter(maxRetries int) (Adapter, error) {
	if maxRetries <= 0 {
		return Adapter{}, fmt.Errorf("max retries must be positive, got %d", maxRetries)
	}
	return Adapter{MaxRetries: maxRetries}, nil
}

// Generate produces a value at path that is not in excluded.
//
// Generators that filter natively are called once. Others are retried up
// to MaxRetries times; exhaustion returns a *FilterError.
func (a Adapter) Generate(g Generator, ctx *Context, path string, excluded []value.Value) (value.Value, error) {
	if len(excluded) == 0 {
		return Produce(g, ctx, path)
	}
	if fg, ok := g.(FilteringGenerator); ok && path == "" && fg.SupportsFiltering() {
		return fg.GenerateWithFilter(ctx, excluded)
	}
	return a.Retry(ctx.Field, excluded, func() (value.Value, error) {
		return Produce(g, ctx, path)
	})
}

// Retry calls produce until it returns a value outside excluded.
func (a Adapter) Retry(field string, excluded []value.Value, produce func() (value.Value, error)) (value.Value, error) {
	limit := a.MaxRetries
	if limit <= 0 {
		limit = DefaultMaxRetries
	}
	for attempt := 0; attempt < limit; attempt++ {
		v, err := produce()
		if err != nil {
			return nil, err
		}
		if !value.Contains(excluded, v) {
			return v, nil
		}
	}
	return nil, &FilterError{Field: field, Attempts: limit}
}
