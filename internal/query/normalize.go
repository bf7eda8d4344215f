// Package query turns raw directory search text into entities, an intent, and a search filter.
package query

import (
	"strings"

	"golang.org/x/text/width"
)

// Normalize folds full-width letters and digits to their ASCII forms, lower-cases,
// trims, and collapses runs of whitespace (including ideographic spaces) to one space.
func Normalize(raw string) string {
	s := width.Fold.String(raw)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// collapseSpaces joins whitespace-separated fields with single spaces.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
