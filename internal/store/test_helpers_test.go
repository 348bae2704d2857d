package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/dataforge/internal/engine"
	"github.com/roach88/dataforge/internal/testutil"
)

// createTestStore opens a fresh database file under t.TempDir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// generate runs a CUE schema with a fixed seed.
func generate(t *testing.T, src string, opts ...engine.Option) *engine.Result {
	t.Helper()
	base := []engine.Option{engine.WithSeed(7), engine.WithLogger(slog.New(slog.DiscardHandler))}
	eng, err := engine.New(testutil.CompileCUE(t, src), nil, append(base, opts...)...)
	if err != nil {
		t.Fatalf("engine.New() failed: %v", err)
	}
	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	return res
}
