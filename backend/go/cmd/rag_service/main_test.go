package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunReturnsConfigError(t *testing.T) {
	path := writeConfig(t, "rag:\n  chunkSize: 100\n  chunkOverlap: 200\n")

	err := run(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load configuration")
}

func TestRunReturnsStartupErrorInsteadOfExiting(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test")
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	t.Setenv("VECTOR_STORE_PATH", filepath.Join(blocker, "vectors"))

	path := writeConfig(t, "recordStore:\n  driver: memory\ndocStore:\n  backend: memory\nvectorStore:\n  backend: local\n")

	err := run(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector index")
}
