// Package storage defines the directory data store and its SQL implementations.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kensaku/internal/models"
)

var (
	// ErrUnknownCollection is returned for a collection with no schema.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrUnknownColumn is returned when a query names a column the collection does not have.
	ErrUnknownColumn = errors.New("unknown column")
)

// Range bounds an integer column. Nil bounds are open.
type Range struct {
	Min *int64
	Max *int64
}

// Query is a filtered, sorted, paginated lookup over published records.
// Equals values are OR-ed within a column; Ranges are OR-ed within a column;
// every column condition is AND-ed. An empty TextTerm matches everything.
type Query struct {
	TextColumns    []string
	TextTerm       string
	Equals         map[string][]string
	Ranges         map[string][]Range
	SortColumn     string
	SortDescending bool
	Limit          int
	Offset         int
}

// Result is one page of rows plus the number of rows matching before pagination.
type Result struct {
	Rows  []Row
	Total int
}

// FacetCount is one distinct column value and its number of published records.
type FacetCount struct {
	Value string
	Count int
}

// Store is the directory data store. Reads are safe for concurrent use.
type Store interface {
	// QueryPublished returns published records of collection matching q.
	QueryPublished(ctx context.Context, collection models.Collection, q Query) (*Result, error)
	// AggregateFacet counts published records per distinct value of column.
	AggregateFacet(ctx context.Context, collection models.Collection, column string) ([]FacetCount, error)

	// Upsert inserts or replaces every record in the catalog.
	Upsert(ctx context.Context, catalog *models.Catalog) error
	// DeleteBySource removes records imported from source and returns how many were removed.
	// An empty source removes nothing.
	DeleteBySource(ctx context.Context, source string) (int64, error)
	// Count returns the number of records in collection, published or not.
	Count(ctx context.Context, collection models.Collection) (int64, error)

	Close() error
}
