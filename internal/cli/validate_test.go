package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runValidateCommand(t *testing.T, opts *RootOptions, args ...string) (string, string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewValidateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), errBuf.String(), err
}

func TestValidateValidSchema(t *testing.T) {
	out, _, err := runValidateCommand(t, &RootOptions{Format: "text"}, shopSchema)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Schema valid")
	assert.Contains(t, out, "  seed: 42\n")
	assert.Contains(t, out, "  users: 3 item(s), fields: id, role\n")
	assert.Contains(t, out, "  orders: 4 item(s), fields: id, userId\n")
}

func TestValidateTagsAndPicks(t *testing.T) {
	out, _, err := runValidateCommand(t, &RootOptions{Format: "text"}, "testdata/schemas/catalog.cue")
	require.NoError(t, err)

	assert.Contains(t, out, "    tags: catalog\n")
	assert.Contains(t, out, "    picks: first=0\n")
}

func TestValidateValidSchemaJSON(t *testing.T) {
	out, _, err := runValidateCommand(t, &RootOptions{Format: "json"}, "testdata/schemas/shop.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.NotNil(t, resp.Data.Seed)
	assert.Equal(t, int64(42), *resp.Data.Seed)
	assert.Equal(t, []CollectionSummary{
		{Key: "users", Name: "users", Count: 3, Fields: []string{"id", "role"}},
		{Key: "orders", Name: "orders", Count: 4, Fields: []string{"id", "userId"}},
	}, resp.Data.Collections)
}

func TestValidateNamedCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merge.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
admins: {name: "users", count: 1, item: role: "admin"}
members: {name: "users", count: 2, item: role: "member"}
`), 0644))

	out, _, err := runValidateCommand(t, &RootOptions{Format: "text"}, path)
	require.NoError(t, err)
	assert.Contains(t, out, "  admins -> users: 1 item(s), fields: role\n")
	assert.Contains(t, out, "  members -> users: 2 item(s), fields: role\n")
}

func TestValidateNonExistentFile(t *testing.T) {
	out, _, err := runValidateCommand(t, &RootOptions{Format: "text"}, "/nonexistent/schema.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestValidateEmptyDirectory(t *testing.T) {
	out, _, err := runValidateCommand(t, &RootOptions{Format: "text"}, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestValidateInvalidSchema(t *testing.T) {
	out, _, err := runValidateCommand(t, &RootOptions{Format: "text"}, "testdata/schemas/invalid.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "line 1\n  E201: users.count: count must be non-negative, got: -1\n")
	assert.Contains(t, out, "E201: orders: collection is missing required 'item' field")
}

func TestValidateInvalidSchemaJSON(t *testing.T) {
	out, _, err := runValidateCommand(t, &RootOptions{Format: "json"}, "testdata/schemas/invalid.cue")
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.GreaterOrEqual(t, len(resp.Data.Errors), 2)
	require.NotNil(t, resp.Error)
	assert.Equal(t, resp.Data.Errors[0].Code, resp.Error.Code)
}

func TestValidateCUEError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conflict.cue")
	require.NoError(t, os.WriteFile(path, []byte("users: {count: 1, item: id: 1}\nusers: count: 2\n"), 0644))

	out, _, err := runValidateCommand(t, &RootOptions{Format: "text"}, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E202")
}

func TestValidateUnknownReference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.cue")
	require.NoError(t, os.WriteFile(path, []byte(`orders: {count: 1, item: userId: {ref: "users.id"}}`), 0644))

	out, _, err := runValidateCommand(t, &RootOptions{Format: "text"}, path)
	require.Error(t, err)
	assert.Contains(t, out, "users")
}

func TestValidateVerboseOutput(t *testing.T) {
	out, errOut, err := runValidateCommand(t, &RootOptions{Format: "json", Verbose: true}, shopSchema)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "verbose logs must not corrupt JSON")
	assert.Contains(t, errOut, "Compiled "+shopSchema)
}
