// Package extract decodes catalog files into directory records.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
)

// ErrUnsupportedFormat is returned for file extensions with no catalog decoder.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// Extractor decodes catalog files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the catalog file at path.
// YAML and JSON files hold organizations, services, and case_studies lists.
// Excel workbooks hold one sheet per collection with a header row.
func (e *Extractor) Extract(path string) (*models.Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes decodes content based on the given extension.
// ext should include the leading dot (e.g. ".yaml").
func (e *Extractor) ExtractBytes(content []byte, ext string) (*models.Catalog, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml", ".json":
		return extractYAML(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Supported reports whether ext has a catalog decoder.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml", ".json", ".xlsx":
		return true
	}
	return false
}
