// Package cli renders search results for the terminal and talks to a running kensaku server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

const (
	descriptionWidth = 120
	separator        = "─────────────────────────────────────────────────────────"
)

var printer = message.NewPrinter(language.Japanese)

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResult writes a smart search result to w in the given format.
func WriteSearchResult(w io.Writer, r *models.SmartSearchResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, r)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (intent: %s, confidence: %.2f)\n", r.TotalFound, r.ElapsedMs, r.Intent, r.ConfidenceScore)
	if r.Explanation != "" {
		fmt.Fprintf(w, "%s\n", r.Explanation)
	}
	fmt.Fprintln(w)

	if len(r.Organizations) > 0 {
		fmt.Fprintf(w, "--- Organizations (%d) ---\n", len(r.Organizations))
		for _, o := range r.Organizations {
			writeOrganization(w, o)
		}
	}
	if len(r.Services) > 0 {
		fmt.Fprintf(w, "--- Services (%d) ---\n", len(r.Services))
		for _, s := range r.Services {
			writeService(w, s)
		}
	}
	if len(r.CaseStudies) > 0 {
		fmt.Fprintf(w, "--- Case studies (%d) ---\n", len(r.CaseStudies))
		for _, cs := range r.CaseStudies {
			writeCaseStudy(w, cs)
		}
	}
	if len(r.Suggestions) > 0 {
		fmt.Fprintf(w, "Suggestions: %s\n", strings.Join(r.Suggestions, " / "))
	}
	return nil
}

func writeOrganization(w io.Writer, o *models.Organization) {
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "[%s] %s\n", o.ID, o.Name)
	fmt.Fprintf(w, "%s\n", joinNonEmpty(
		o.Industry,
		o.Region,
		positive(o.EmployeeCount, "%d employees"),
		positive(o.EstablishedYear, "est. %d"),
	))
	writeDescription(w, o.Description)
}

func writeService(w io.Writer, s *models.Service) {
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "[%s] %s\n", s.ID, s.Name)
	var price string
	if s.Price > 0 {
		price = FormatYen(s.Price)
	}
	fmt.Fprintf(w, "%s\n", joinNonEmpty(s.Category, price))
	writeDescription(w, s.Description)
}

func writeCaseStudy(w io.Writer, cs *models.CaseStudy) {
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "[%s] %s\n", cs.ID, cs.Title)
	if cs.Industry != "" {
		fmt.Fprintf(w, "%s\n", cs.Industry)
	}
	writeDescription(w, cs.Summary)
}

func writeDescription(w io.Writer, s string) {
	if s != "" {
		fmt.Fprintf(w, "  %s\n", utils.Truncate(s, descriptionWidth))
	}
	fmt.Fprintln(w)
}

// WriteFacets writes facet counts to w in the given format.
func WriteFacets(w io.Writer, f models.FacetSet, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, f)
	}
	writeBuckets(w, "industries", f.Industries)
	writeBuckets(w, "regions", f.Regions)
	writeBuckets(w, "categories", f.Categories)
	writeBuckets(w, "company_sizes", f.CompanySizes)
	return nil
}

func writeBuckets(w io.Writer, name string, buckets []models.FacetBucket) {
	fmt.Fprintf(w, "%s:\n", name)
	if len(buckets) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, b := range buckets {
		fmt.Fprintf(w, "  %-24s %d\n", b.Name, b.Count)
	}
}

// Status is the shape of GET /api/v1/status.
type Status struct {
	Collections    map[string]int64  `json:"collections"`
	DiskUsageBytes *int64            `json:"disk_usage_bytes,omitempty"`
	Config         map[string]string `json:"config,omitempty"`
	Directories    []string          `json:"directories,omitempty"`
}

// WriteStatus writes s to w in the given format.
func WriteStatus(w io.Writer, s *Status, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, s)
	}
	for _, c := range models.AllCollections {
		fmt.Fprintf(w, "%-18s %d\n", string(c)+":", s.Collections[string(c)])
	}
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "%-18s %d\n", "disk_usage_bytes:", *s.DiskUsageBytes)
	}
	if len(s.Config) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		for _, k := range []string{"driver", "database_path", "bleve_index_path"} {
			if v, ok := s.Config[k]; ok && v != "" {
				fmt.Fprintf(w, "%-18s %s\n", k+":", v)
			}
		}
	}
	if len(s.Directories) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# watched directories")
		for _, d := range s.Directories {
			fmt.Fprintln(w, d)
		}
	}
	return nil
}

// FormatYen formats an amount in yen with digit grouping, e.g. ¥1,000,000.
func FormatYen(n int64) string {
	return printer.Sprintf("¥%d", n)
}

func positive(n int, format string) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf(format, n)
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
}
