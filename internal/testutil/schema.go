package testutil

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataforge/internal/compiler"
	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/generator"
)

// CompileCUE compiles a CUE schema with the default generators and fails
// the test on any error.
func CompileCUE(t testing.TB, src string) *dsl.Tree {
	t.Helper()
	return CompileCUEWith(t, src, nil)
}

// CompileCUEWith compiles a CUE schema against reg.
func CompileCUEWith(t testing.TB, src string, reg *generator.Registry) *dsl.Tree {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	tree, err := compiler.Compile(v, reg)
	require.NoError(t, err)
	return tree
}
