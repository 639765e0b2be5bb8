package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_IndexesMatchingExtensionsOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "def f(): pass")
	writeFile(t, dir, "b.txt", "not indexed")
	writeFile(t, dir, "sub/c.go", "package sub")

	c, err := Load(context.Background(), dir, []string{"py", "go"}, nil)
	require.NoError(t, err)
	assert.Len(t, c.Documents, 2)
}

func TestLoad_EmptyCorpusIsFatal(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(context.Background(), dir, []string{"py"}, nil)
	require.Error(t, err)
}

func TestLoad_DocumentIDsAreRelativeSlashPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/Services/Data.go", "package services")

	c, err := Load(context.Background(), dir, []string{"go"}, nil)
	require.NoError(t, err)
	require.Len(t, c.Documents, 1)
	assert.Equal(t, "src/Services/Data.go", c.Documents[0].ID)
}

func TestLoad_OrderingIsStableByID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "z.go", "package z")
	writeFile(t, dir, "a.go", "package a")

	c, err := Load(context.Background(), dir, []string{"go"}, nil)
	require.NoError(t, err)
	require.Len(t, c.Documents, 2)
	assert.Equal(t, "a.go", c.Documents[0].ID)
	assert.Equal(t, "z.go", c.Documents[1].ID)
}

func TestPositionOf_ReturnsCorpusPosition(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a")
	writeFile(t, dir, "b.go", "package b")

	c, err := Load(context.Background(), dir, []string{"go"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, c.PositionOf("b.go"))
	assert.Equal(t, -1, c.PositionOf("missing.go"))
}
