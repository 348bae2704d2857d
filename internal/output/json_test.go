package output

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataforge/internal/engine"
	"github.com/roach88/dataforge/internal/testutil"
	"github.com/roach88/dataforge/internal/value"
)

const literalSchema = `
	users: {count: 2, item: {
		id: {gen: "sequence"}
		name: "ada"
		tags: ["a", "b"]
		address: {city: "Oslo"}
	}}
	empty: {count: 0, item: x: 1}
`

func quiet() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func run(t *testing.T, src string, opts ...engine.Option) *engine.Result {
	t.Helper()
	eng, err := engine.New(testutil.CompileCUE(t, src), nil, append([]engine.Option{engine.WithLogger(quiet())}, opts...)...)
	require.NoError(t, err)
	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	return res
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestWriteJSON_Compact(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		var buf bytes.Buffer
		res := run(t, literalSchema, engine.WithMemoryOptimization(lazy))
		require.NoError(t, WriteJSON(context.Background(), &buf, res))
		golden(t).Assert(t, "compact", buf.Bytes())
	}
}

func TestWriteJSON_Indented(t *testing.T) {
	var buf bytes.Buffer
	res := run(t, literalSchema)
	require.NoError(t, Write(context.Background(), &buf, res, FormatJSON, WithIndent("  ")))
	golden(t).Assert(t, "indented", buf.Bytes())
}

func TestWriteJSON_MatchesResultValue(t *testing.T) {
	res := run(t, `
		users: {count: 5, item: {id: {gen: "uuid"}, age: {gen: "number", min: 1, max: 99}}}
		orders: {count: 7, item: user: {ref: "users[*].id"}}
	`, engine.WithSeed(3))

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(context.Background(), &buf, res))
	parsed, err := value.Parse(buf.Bytes())
	require.NoError(t, err)

	want, err := res.Value()
	require.NoError(t, err)
	assert.True(t, value.Equal(want, parsed))
}

func TestWriteJSON_Cancelled(t *testing.T) {
	res := run(t, literalSchema)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteJSON(ctx, &buf, res), context.Canceled)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" SQL ")
	require.NoError(t, err)
	assert.Equal(t, FormatSQL, f)

	_, err = ParseFormat("xml")
	assert.ErrorContains(t, err, `unknown output format "xml"`)
}
