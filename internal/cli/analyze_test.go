package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeText(t *testing.T) {
	out, _, err := execute(t, "analyze", "testdata/schemas/catalog.cue")
	require.NoError(t, err)
	assert.Equal(t, "categories: id\nproducts: id\nunreferenced: featured\n", out)
}

func TestAnalyzeConditionalReadsConditionFields(t *testing.T) {
	out, _, err := execute(t, "analyze", "testdata/schemas/pricing.cue")
	require.NoError(t, err)
	assert.Equal(t, "products: id, price\nunreferenced: orders\n", out)
}

func TestAnalyzeJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "analyze", shopSchema)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   AnalysisResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string][]string{"users": {"id"}}, resp.Data.Read)
	assert.Equal(t, []string{"orders"}, resp.Data.Unreferenced)
}

func TestAnalyzeNoReferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.cue")
	require.NoError(t, os.WriteFile(path, []byte(`users: {count: 1, item: id: 1}`), 0644))

	out, _, err := execute(t, "analyze", path)
	require.NoError(t, err)
	assert.Equal(t, "No references between collections.\nunreferenced: users\n", out)
}

func TestAnalyzeInvalidSchema(t *testing.T) {
	out, _, err := execute(t, "analyze", "testdata/schemas/invalid.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E201]")
}
