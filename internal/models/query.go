package models

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrInvalidQuery is returned for queries that are not valid text.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrQueryTooLong is returned for queries longer than the configured maximum.
	ErrQueryTooLong = errors.New("query too long")
)

// Refinement carries categorical values chosen explicitly by the caller, typically from facets.
type Refinement struct {
	Industries   []string `json:"industries,omitempty"`
	Regions      []string `json:"regions,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	CompanySizes []string `json:"company_sizes,omitempty"`
}

// SmartSearchRequest is a free-text directory search request.
type SmartSearchRequest struct {
	Query  string      `json:"query"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`
	Refine *Refinement `json:"refine,omitempty"`
}

// Validate rejects malformed queries and normalizes pagination.
// An empty query is valid and searches everything.
func (r *SmartSearchRequest) Validate(maxQueryLength, defaultLimit, maxLimit int) error {
	if !utf8.ValidString(r.Query) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidQuery)
	}
	for _, c := range r.Query {
		if unicode.IsControl(c) && c != '\t' && c != '\n' && c != '\r' {
			return fmt.Errorf("%w: contains control character %U", ErrInvalidQuery, c)
		}
	}
	if maxQueryLength > 0 {
		if n := utf8.RuneCountInString(r.Query); n > maxQueryLength {
			return fmt.Errorf("%w: %d characters (max %d)", ErrQueryTooLong, n, maxQueryLength)
		}
	}
	if r.Limit <= 0 {
		r.Limit = defaultLimit
	}
	if maxLimit > 0 && r.Limit > maxLimit {
		r.Limit = maxLimit
	}
	if r.Offset < 0 {
		r.Offset = 0
	}
	return nil
}
