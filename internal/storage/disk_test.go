package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "catalog.yaml")
	writeFile(t, file, "hello")
	index := filepath.Join(dir, "index.bleve")
	writeFile(t, filepath.Join(index, "index_meta.json"), "ab")
	writeFile(t, filepath.Join(index, "store", "root.bolt"), "c")

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"no paths", nil, 0},
		{"empty path", []string{""}, 0},
		{"missing path", []string{filepath.Join(dir, "nonexistent")}, 0},
		{"in-memory database", []string{":memory:"}, 0},
		{"single file", []string{file}, 5},
		{"index directory", []string{index}, 3},
		{"file and directory", []string{file, index}, 8},
		{"skips empty and missing", []string{"", file, filepath.Join(dir, "nonexistent"), index}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiskUsageBytes_sqliteDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "directory.db")
	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	seed(t, s)
	require.NoError(t, s.Close())

	info, err := os.Stat(dbPath)
	require.NoError(t, err)

	got, err := DiskUsageBytes(dbPath)
	require.NoError(t, err)
	assert.Positive(t, got)
	assert.Equal(t, info.Size(), got)
}
