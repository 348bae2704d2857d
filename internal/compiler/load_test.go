package compiler

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func outputNames(t *testing.T, path string) []string {
	t.Helper()
	tree, err := LoadFile(cuecontext.New(), path, nil)
	require.NoError(t, err)
	return tree.OutputNames()
}

func TestLoad_FileFormats(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"s.cue":  "seed: 5\nusers: {count: 2, item: id: {gen: \"sequence\"}}\n",
		"s.json": `{"seed": 5, "users": {"count": 2, "item": {"id": {"gen": "sequence"}}}}`,
		"s.yaml": "seed: 5\nusers:\n  count: 2\n  item:\n    id: {gen: sequence}\n",
		"s.YML":  "seed: 5\nusers:\n  count: 2\n  item:\n    id: {gen: sequence}\n",
	})

	for _, name := range []string{"s.cue", "s.json", "s.yaml", "s.YML"} {
		t.Run(name, func(t *testing.T) {
			tree, err := LoadFile(cuecontext.New(), filepath.Join(dir, name), nil)
			require.NoError(t, err)
			require.NotNil(t, tree.Seed)
			assert.Equal(t, int64(5), *tree.Seed)
			require.Len(t, tree.Collections, 1)
			assert.Equal(t, "users", tree.Collections[0].Key)
			assert.Equal(t, 2, tree.Collections[0].Count)
		})
	}
}

func TestLoad_Directory(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"users.cue":  "package shop\n\nusers: {count: 2, item: id: {gen: \"sequence\"}}\n",
		"orders.cue": "package shop\n\norders: {count: 1, item: userId: {ref: \"users.id\"}}\n",
	})
	names := outputNames(t, dir)
	assert.ElementsMatch(t, []string{"users", "orders"}, names)
}

func TestLoad_Errors(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"schema.toml":  "users = 1",
		"broken.json":  `{"users": `,
		"broken.yaml":  "users: [1, 2",
		"empty/.keep":  "",
		"conflict.cue": "users: 1\nusers: 2\n",
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Load(cuecontext.New(), filepath.Join(dir, "nope.cue"))
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
	t.Run("unsupported", func(t *testing.T) {
		_, err := Load(cuecontext.New(), filepath.Join(dir, "schema.toml"))
		assert.ErrorIs(t, err, ErrUnsupportedFile)
		assert.ErrorContains(t, err, ".yaml")
	})
	t.Run("bad json", func(t *testing.T) {
		_, err := Load(cuecontext.New(), filepath.Join(dir, "broken.json"))
		assert.ErrorContains(t, err, "parsing JSON")
	})
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(cuecontext.New(), filepath.Join(dir, "broken.yaml"))
		assert.ErrorContains(t, err, "parsing YAML")
	})
	t.Run("empty directory", func(t *testing.T) {
		_, err := Load(cuecontext.New(), filepath.Join(dir, "empty"))
		assert.ErrorIs(t, err, ErrNoCUEFiles)
	})
	t.Run("conflict is a compile error", func(t *testing.T) {
		_, err := LoadFile(cuecontext.New(), filepath.Join(dir, "conflict.cue"), nil)
		var list ErrorList
		require.ErrorAs(t, err, &list)
		assert.Equal(t, "cue", list[0].Field)
	})
}

func TestFindCUEFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.cue":        "a: 1",
		"nested/b.cue": "b: 1",
		"c.json":       "{}",
	})
	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.cue"),
		filepath.Join(dir, "nested", "b.cue"),
	}, files)
}
