// Package indexer imports catalog files into a directory store.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/extract"
	"github.com/hyperjump/kensaku/internal/fileid"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/storage"
)

// ErrInvalidRecord is returned for records with neither an ID nor a name to derive one from.
var ErrInvalidRecord = errors.New("invalid catalog record")

// Counts reports how many records of each collection an import wrote.
type Counts struct {
	Organizations int `json:"organizations"`
	Services      int `json:"services"`
	CaseStudies   int `json:"case_studies"`
}

// Total returns the number of records across all collections.
func (c Counts) Total() int {
	return c.Organizations + c.Services + c.CaseStudies
}

type fileStamp struct {
	mtime time.Time
	size  int64
}

// Indexer writes catalogs into a store.
type Indexer struct {
	store     storage.Store
	extractor *extract.Extractor
	batchSize int
	logger    *zap.Logger
	onChange  func(context.Context)

	mu   sync.Mutex
	seen map[string]fileStamp
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file imported, source removed, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets the number of records per store write.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) { idx.batchSize = n }
}

// WithOnChange registers a callback run after every successful write or delete,
// such as dropping cached facets.
func WithOnChange(fn func(context.Context)) IndexerOption {
	return func(idx *Indexer) { idx.onChange = fn }
}

// NewIndexer creates an indexer. extractor may be nil, in which case a default one is used.
func NewIndexer(store storage.Store, extractor *extract.Extractor, opts ...IndexerOption) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		store:     store,
		extractor: extractor,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
		seen:      map[string]fileStamp{},
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// ImportCatalog prepares and writes catalog. When source is non-empty, rows
// previously imported from the same source are removed first, so records
// dropped from a file disappear on re-import.
func (idx *Indexer) ImportCatalog(ctx context.Context, catalog *models.Catalog, source string) (Counts, error) {
	if catalog == nil {
		catalog = &models.Catalog{}
	}
	if err := prepare(catalog, source); err != nil {
		return Counts{}, err
	}
	if source != "" {
		removed, err := idx.store.DeleteBySource(ctx, source)
		if err != nil {
			return Counts{}, fmt.Errorf("failed to delete previous rows: %w", err)
		}
		if removed > 0 {
			idx.logger.Debug("indexer replaced source rows", zap.String("source", source), zap.Int64("removed", removed))
		}
	}
	for _, batch := range Batch(catalog, idx.batchSize) {
		if err := idx.store.Upsert(ctx, batch); err != nil {
			return Counts{}, fmt.Errorf("failed to store catalog: %w", err)
		}
	}
	idx.changed(ctx)
	return Counts{
		Organizations: len(catalog.Organizations),
		Services:      len(catalog.Services),
		CaseStudies:   len(catalog.CaseStudies),
	}, nil
}

// prepare normalizes text fields, assigns missing IDs, and stamps the source.
func prepare(c *models.Catalog, source string) error {
	for i, o := range c.Organizations {
		preprocessOrganization(o)
		if o.ID == "" {
			if o.Name == "" {
				return fmt.Errorf("%w: organization %d has no id or name", ErrInvalidRecord, i)
			}
			o.ID = fileid.RecordID(models.CollectionOrganizations, o.Name)
		}
		o.Source = source
	}
	for i, s := range c.Services {
		preprocessService(s)
		if s.ID == "" {
			if s.Name == "" {
				return fmt.Errorf("%w: service %d has no id or name", ErrInvalidRecord, i)
			}
			s.ID = fileid.RecordID(models.CollectionServices, s.Name)
		}
		s.Source = source
	}
	for i, cs := range c.CaseStudies {
		preprocessCaseStudy(cs)
		if cs.ID == "" {
			if cs.Title == "" {
				return fmt.Errorf("%w: case study %d has no id or title", ErrInvalidRecord, i)
			}
			cs.ID = fileid.RecordID(models.CollectionCaseStudies, cs.Title)
		}
		cs.Source = source
	}
	return nil
}

// IndexFile decodes the catalog file at path and imports it, replacing rows from
// an earlier import of the same file. If allowedExts is non-empty, the file's
// extension must be in the list (case-insensitive). Unchanged files (same mtime
// and size as the last import by this indexer) are skipped.
func (idx *Indexer) IndexFile(ctx context.Context, path string, allowedExts []string) (Counts, error) {
	idx.logger.Debug("indexer importing file", zap.String("path", path))
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Counts{}, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return Counts{}, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return Counts{}, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Counts{}, fmt.Errorf("not a regular file: %s", absPath)
	}

	source := fileid.Source(absPath)
	stamp := fileStamp{mtime: info.ModTime(), size: info.Size()}
	if idx.unchanged(source, stamp) {
		idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		return Counts{}, nil
	}

	catalog, err := idx.extractor.Extract(absPath)
	if err != nil {
		return Counts{}, fmt.Errorf("extract catalog: %w", err)
	}
	counts, err := idx.ImportCatalog(ctx, catalog, source)
	if err != nil {
		return Counts{}, err
	}
	idx.remember(source, stamp)
	idx.logger.Debug("indexer file imported",
		zap.String("path", absPath),
		zap.Int("records", counts.Total()),
	)
	return counts, nil
}

// IndexDirectory walks dir and imports each regular file whose extension is in
// allowedExts (if non-empty; otherwise every supported catalog format). Only the
// top level is read unless recursive is set. Returns the number of files imported
// and the first error encountered, if any.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, allowedExts []string, recursive bool) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != absDir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 {
			if !extensionAllowed(ext, allowedExts) {
				return nil
			}
		} else if !extract.Supported(ext) {
			return nil
		}
		// Resolve symlinks so we only import regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, importErr := idx.IndexFile(ctx, path, allowedExts); importErr != nil {
			return fmt.Errorf("%s: %w", path, importErr)
		}
		n++
		return nil
	})
	return n, err
}

// RemoveFile deletes every row imported from path.
func (idx *Indexer) RemoveFile(ctx context.Context, path string) (int64, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	source := fileid.Source(absPath)
	idx.logger.Debug("indexer removing source", zap.String("source", source))

	removed, err := idx.store.DeleteBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete source rows: %w", err)
	}
	idx.forget(source)
	if removed > 0 {
		idx.changed(ctx)
	}
	return removed, nil
}

func (idx *Indexer) changed(ctx context.Context) {
	if idx.onChange != nil {
		idx.onChange(ctx)
	}
}

func (idx *Indexer) unchanged(source string, stamp fileStamp) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	prev, ok := idx.seen[source]
	return ok && prev.size == stamp.size && prev.mtime.Equal(stamp.mtime)
}

func (idx *Indexer) remember(source string, stamp fileStamp) {
	idx.mu.Lock()
	idx.seen[source] = stamp
	idx.mu.Unlock()
}

func (idx *Indexer) forget(source string) {
	idx.mu.Lock()
	delete(idx.seen, source)
	idx.mu.Unlock()
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
