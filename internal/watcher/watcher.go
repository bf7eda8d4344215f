// Package watcher keeps the directory store in sync with catalog files on disk.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/metrics"
)

const defaultDebounce = 400 * time.Millisecond

// Sink imports and removes catalog files. *indexer.Indexer implements it.
type Sink interface {
	IndexFile(ctx context.Context, path string, allowedExts []string) (indexer.Counts, error)
	RemoveFile(ctx context.Context, path string) (int64, error)
}

// Watcher watches catalog directories and forwards debounced file changes to a Sink.
type Watcher struct {
	roots       []string
	extensions  []string
	recursive   bool
	sink        Sink
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	ctx         context.Context
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	rootPaths   map[string][]string // root -> list of watched paths (dirs we added)
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for watcher events and sink failures.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must be quiet before it is imported.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher. roots are the initial catalog directories;
// extensions filter which files are imported (empty = all).
func NewWatcher(roots []string, extensions []string, recursive bool, sink Sink, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		roots:       append([]string(nil), roots...),
		extensions:  extensions,
		recursive:   recursive,
		sink:        sink,
		debounce:    defaultDebounce,
		ctx:         context.Background(),
		debounceMap: make(map[string]*time.Timer),
		rootPaths:   make(map[string][]string),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
// Imports triggered by the watcher use ctx.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fw
	w.ctx = ctx
	w.started = true
	w.logger.Debug("watcher starting",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive),
	)
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = fw.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	go w.run(ctx, fw.Events, fw.Errors)
	return nil
}

func (w *Watcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// A rename reports the old name; the new name arrives as Create.
		w.cancelDebounce(path)
		if w.matchExtension(path) {
			w.remove(path)
		}
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		// Check if it's a directory (newly created or moved in)
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if w.matchExtension(path) {
			w.debounceImport(path)
		}
	}
}

// handleNewDirectory adds a newly created directory to the watch list and
// imports the catalog files already inside it.
func (w *Watcher) handleNewDirectory(dirPath string) {
	w.logger.Debug("watcher handling new directory", zap.String("path", dirPath))

	w.mu.Lock()
	recursive := w.recursive
	fw := w.watcher
	w.mu.Unlock()

	if fw == nil {
		return
	}

	if recursive {
		_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if err := fw.Add(path); err != nil {
					w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
				}
			}
			return nil
		})
	} else if err := fw.Add(dirPath); err != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", dirPath), zap.Error(err))
	}

	w.syncDirectory(dirPath)
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	clean := filepath.Clean(path)
	for _, root := range roots {
		rootClean := filepath.Clean(root)
		if rootClean == clean || inDir(rootClean, clean) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) matchExtension(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceImport(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.importFile(path)
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

func (w *Watcher) importFile(path string) {
	if w.sink == nil {
		return
	}
	counts, err := w.sink.IndexFile(w.context(), path, w.extensions)
	metrics.ObserveCatalogEvent("import", err)
	if err != nil {
		w.logger.Warn("catalog import failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("catalog imported", zap.String("path", path), zap.Int("records", counts.Total()))
}

func (w *Watcher) remove(path string) {
	if w.sink == nil {
		return
	}
	removed, err := w.sink.RemoveFile(w.context(), path)
	metrics.ObserveCatalogEvent("remove", err)
	if err != nil {
		w.logger.Warn("catalog removal failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("catalog removed", zap.String("path", path), zap.Int64("records", removed))
}

func (w *Watcher) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctx
}

// AddDirectory adds a root directory to watch and optionally imports existing files.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	for _, r := range w.roots {
		if filepath.Clean(r) == filepath.Clean(abs) {
			return nil
		}
	}
	if err := w.addRootLocked(abs); err != nil {
		return err
	}
	w.roots = append(w.roots, abs)
	w.logger.Debug("watcher directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting {
		go w.syncDirectory(abs)
	}
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	var paths []string
	if w.recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if err := w.watcher.Add(path); err != nil {
				return err
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		if err := w.watcher.Add(root); err != nil {
			return err
		}
		paths = append(paths, root)
	}
	w.rootPaths[root] = paths
	return nil
}

// syncDirectory imports the matching files under root. Subdirectories are
// visited only when the watcher is recursive.
func (w *Watcher) syncDirectory(root string) {
	w.mu.Lock()
	exts := append([]string(nil), w.extensions...)
	recursive := w.recursive
	w.mu.Unlock()
	w.logger.Debug("watcher syncing directory", zap.String("root", root))
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if matchExtension(path, exts) {
			w.importFile(path)
		}
		return nil
	})
}

// RemoveDirectory stops watching the given root. It does not remove imported records.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	idx := -1
	for i, r := range w.roots {
		if filepath.Clean(r) == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for _, p := range w.rootPaths[abs] {
		_ = w.watcher.Remove(p)
	}
	delete(w.rootPaths, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	w.logger.Debug("watcher directory removed", zap.String("path", abs))
	return nil
}

// Directories returns a copy of the current watched root directories.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles imports every matching file already present in the watched roots.
// Call this after Start.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.syncDirectory(root)
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
