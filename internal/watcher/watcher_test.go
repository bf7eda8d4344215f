package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/kensaku/internal/indexer"
)

// recordingSink records the paths it is asked to import and remove.
type recordingSink struct {
	mu       sync.Mutex
	imported []string
	removed  []string
}

func (s *recordingSink) IndexFile(_ context.Context, path string, _ []string) (indexer.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imported = append(s.imported, path)
	return indexer.Counts{Organizations: 1}, nil
}

func (s *recordingSink) RemoveFile(_ context.Context, path string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, path)
	return 1, nil
}

func (s *recordingSink) snapshot() (imported, removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.imported...), append([]string(nil), s.removed...)
}

func containsSuffix(paths []string, suffix string) bool {
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

var catalogExts = []string{".yaml", ".json"}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(nil, catalogExts, true, &recordingSink{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	// Adding twice is a no-op.
	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}

	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
}

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := mkdirAll(sub); err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	w := NewWatcher([]string{dir}, catalogExts, true, sink, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	fPath := filepath.Join(sub, "catalog.yaml")
	for i := 0; i < 3; i++ {
		if err := writeFile(fPath, "organizations: []"); err != nil {
			t.Fatal(err)
		}
	}
	if err := writeFile(filepath.Join(sub, "notes.txt"), "skip"); err != nil {
		t.Fatal(err)
	}

	ok := eventually(t, func() bool {
		imported, _ := sink.snapshot()
		return containsSuffix(imported, "catalog.yaml")
	})
	if !ok {
		t.Fatal("expected catalog.yaml to be imported")
	}
	time.Sleep(150 * time.Millisecond)
	imported, _ := sink.snapshot()
	if containsSuffix(imported, "notes.txt") {
		t.Errorf("notes.txt should not be imported: %v", imported)
	}
}

func TestWatcher_RemoveForwardsToSink(t *testing.T) {
	dir := t.TempDir()
	fPath := filepath.Join(dir, "catalog.json")
	if err := writeFile(fPath, "{}"); err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	w := NewWatcher([]string{dir}, catalogExts, false, sink, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(fPath); err != nil {
		t.Fatal(err)
	}
	ok := eventually(t, func() bool {
		_, removed := sink.snapshot()
		return containsSuffix(removed, "catalog.json")
	})
	if !ok {
		t.Error("expected catalog.json removal to reach the sink")
	}
}

func TestWatcher_RenameRemovesOldName(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.yaml")
	if err := writeFile(oldPath, "organizations: []"); err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	w := NewWatcher([]string{dir}, catalogExts, false, sink, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Rename(oldPath, filepath.Join(dir, "new.yaml")); err != nil {
		t.Fatal(err)
	}
	ok := eventually(t, func() bool {
		imported, removed := sink.snapshot()
		return containsSuffix(removed, "old.yaml") && containsSuffix(imported, "new.yaml")
	})
	if !ok {
		imported, removed := sink.snapshot()
		t.Errorf("imported=%v removed=%v", imported, removed)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.yaml", []string{".yaml"}, true},
		{"/a/b.YAML", []string{".yaml"}, true},
		{"/a/b.xlsx", []string{"xlsx"}, true},
		{"/a/b.md", []string{".yaml"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.yaml", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := mkdirAll(sub); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "a.yaml"), "organizations: []"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(sub, "b.yaml"), "organizations: []"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "ignore.xyz"), "x"); err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	w := NewWatcher([]string{dir}, catalogExts, false, sink)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.SyncExistingFiles()

	imported, _ := sink.snapshot()
	if len(imported) != 1 || !strings.HasSuffix(imported[0], "a.yaml") {
		t.Errorf("non-recursive sync should import only a.yaml, got %v", imported)
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "watch", "me")

	w := NewWatcher([]string{root}, catalogExts, true, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_HandleNewDirectory_recursiveSubfolders(t *testing.T) {
	dir := t.TempDir()

	sink := &recordingSink{}
	w := NewWatcher([]string{dir}, catalogExts, true, sink, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	nested := filepath.Join(dir, "level1", "level2")
	if err := mkdirAll(nested); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "deep.yaml"), "organizations: []"); err != nil {
		t.Fatal(err)
	}

	ok := eventually(t, func() bool {
		imported, _ := sink.snapshot()
		return containsSuffix(imported, "deep.yaml")
	})
	if !ok {
		imported, _ := sink.snapshot()
		t.Errorf("expected deep.yaml to be imported, got %v", imported)
	}
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
