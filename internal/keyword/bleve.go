// Package keyword provides a Bleve implementation of storage.Store.
package keyword

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/storage"
)

const (
	collectionField = "collection"
	// lowerSuffix marks the lower-cased copy of a text column used for substring matching.
	lowerSuffix = "_lc"
	// termSuffix marks the textual copy of an integer column used for facets.
	termSuffix = "_kw"

	maxFacetTerms = 10000
	deleteBatch   = 1000
)

var _ storage.Store = (*BleveStore)(nil)

// BleveStore keeps every collection in one Bleve index. Document IDs are
// "<collection>/<record id>".
type BleveStore struct {
	index bleve.Index
	now   func() time.Time
}

// NewBleveStore creates or opens a Bleve index at path. An empty path creates
// an in-memory index. If the mapping changes in code, remove the index directory
// and re-import the catalog.
func NewBleveStore(path string) (*BleveStore, error) {
	im := buildMapping()

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
		return &BleveStore{index: index, now: time.Now}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveStore{index: index, now: time.Now}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveStore{index: index, now: time.Now}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentStaticMapping()
	hidden := func(fm *mapping.FieldMapping) *mapping.FieldMapping {
		fm.Store = false
		fm.IncludeInAll = false
		return fm
	}
	keywordField := func() *mapping.FieldMapping {
		fm := bleve.NewKeywordFieldMapping()
		fm.IncludeInAll = false
		return fm
	}

	docMapping.AddFieldMappingsAt(collectionField, hidden(keywordField()))
	seen := map[string]bool{}
	for _, c := range models.AllCollections {
		schema, _ := storage.SchemaFor(c)
		for _, col := range schema.Columns {
			if seen[col.Name] {
				continue
			}
			seen[col.Name] = true
			switch col.Kind {
			case storage.KindText:
				docMapping.AddFieldMappingsAt(col.Name, keywordField())
				docMapping.AddFieldMappingsAt(col.Name+lowerSuffix, hidden(keywordField()))
			case storage.KindInt:
				docMapping.AddFieldMappingsAt(col.Name, bleve.NewNumericFieldMapping())
				docMapping.AddFieldMappingsAt(col.Name+termSuffix, hidden(keywordField()))
			case storage.KindBool:
				docMapping.AddFieldMappingsAt(col.Name, bleve.NewBooleanFieldMapping())
			case storage.KindTime:
				docMapping.AddFieldMappingsAt(col.Name, bleve.NewDateTimeFieldMapping())
			}
		}
	}

	im.AddDocumentMapping("record", docMapping)
	im.DefaultType = "record"
	im.DefaultMapping = docMapping
	return im
}

func docID(collection models.Collection, id string) string {
	return string(collection) + "/" + id
}

// document converts a stored row to the indexed field set.
func document(collection models.Collection, schema *storage.Schema, row storage.Row) map[string]interface{} {
	doc := map[string]interface{}{collectionField: string(collection)}
	for _, col := range schema.Columns {
		switch col.Kind {
		case storage.KindText:
			v := row.String(col.Name)
			doc[col.Name] = v
			doc[col.Name+lowerSuffix] = strings.ToLower(v)
		case storage.KindInt:
			n := row.Int(col.Name)
			doc[col.Name] = float64(n)
			doc[col.Name+termSuffix] = strconv.FormatInt(n, 10)
		case storage.KindBool:
			doc[col.Name] = row.Bool(col.Name)
		case storage.KindTime:
			doc[col.Name] = row.Time(col.Name)
		}
	}
	return doc
}

func fieldQuery(field string, q interface {
	blevequery.Query
	SetField(string)
}) blevequery.Query {
	q.SetField(field)
	return q
}

func collectionQuery(collection models.Collection) blevequery.Query {
	return fieldQuery(collectionField, bleve.NewTermQuery(string(collection)))
}

func publishedQuery(collection models.Collection) *blevequery.ConjunctionQuery {
	return bleve.NewConjunctionQuery(
		collectionQuery(collection),
		fieldQuery("published", bleve.NewBoolFieldQuery(true)),
	)
}

// buildQuery translates q into a Bleve query over collection.
func buildQuery(collection models.Collection, schema *storage.Schema, q storage.Query) (blevequery.Query, error) {
	conj := publishedQuery(collection)

	if term := strings.TrimSpace(q.TextTerm); term != "" && len(q.TextColumns) > 0 {
		pattern := ".*" + regexp.QuoteMeta(strings.ToLower(term)) + ".*"
		var ors []blevequery.Query
		for _, col := range q.TextColumns {
			if kind, ok := schema.Kind(col); !ok || kind != storage.KindText {
				return nil, fmt.Errorf("%w: %s.%s", storage.ErrUnknownColumn, collection, col)
			}
			ors = append(ors, fieldQuery(col+lowerSuffix, bleve.NewRegexpQuery(pattern)))
		}
		conj.AddQuery(bleve.NewDisjunctionQuery(ors...))
	}

	for col, values := range q.Equals {
		if len(values) == 0 {
			continue
		}
		kind, ok := schema.Kind(col)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", storage.ErrUnknownColumn, collection, col)
		}
		field := col
		if kind == storage.KindInt {
			field = col + termSuffix
		}
		var ors []blevequery.Query
		for _, v := range values {
			ors = append(ors, fieldQuery(field, bleve.NewTermQuery(v)))
		}
		conj.AddQuery(bleve.NewDisjunctionQuery(ors...))
	}

	for col, ranges := range q.Ranges {
		if len(ranges) == 0 || unbounded(ranges) {
			continue
		}
		if kind, ok := schema.Kind(col); !ok || kind != storage.KindInt {
			return nil, fmt.Errorf("%w: %s.%s", storage.ErrUnknownColumn, collection, col)
		}
		inclusive := true
		var ors []blevequery.Query
		for _, r := range ranges {
			ors = append(ors, fieldQuery(col, bleve.NewNumericRangeInclusiveQuery(
				toFloat(r.Min), toFloat(r.Max), &inclusive, &inclusive)))
		}
		conj.AddQuery(bleve.NewDisjunctionQuery(ors...))
	}
	return conj, nil
}

// QueryPublished implements storage.Store.
func (b *BleveStore) QueryPublished(ctx context.Context, collection models.Collection, q storage.Query) (*storage.Result, error) {
	schema, err := storage.SchemaFor(collection)
	if err != nil {
		return nil, err
	}
	if q.SortColumn != "" && !schema.Has(q.SortColumn) {
		return nil, fmt.Errorf("%w: %s.%s", storage.ErrUnknownColumn, collection, q.SortColumn)
	}
	bq, err := buildQuery(collection, schema, q)
	if err != nil {
		return nil, err
	}

	size := q.Limit
	if size <= 0 {
		size = maxFacetTerms
	}
	req := bleve.NewSearchRequestOptions(bq, size, max(q.Offset, 0), false)
	req.Fields = schema.Names()
	// Without a sort column Bleve's score order stands in for relevance.
	if q.SortColumn != "" {
		field := q.SortColumn
		if q.SortDescending {
			field = "-" + field
		}
		req.SortBy([]string{field, "_id"})
	}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search %s failed: %w", collection, err)
	}

	out := &storage.Result{Rows: make([]storage.Row, 0, len(res.Hits)), Total: int(res.Total)}
	for _, hit := range res.Hits {
		row := storage.Row{}
		for _, name := range req.Fields {
			if v, ok := hit.Fields[name]; ok {
				row[name] = v
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// AggregateFacet implements storage.Store using a term facet.
func (b *BleveStore) AggregateFacet(ctx context.Context, collection models.Collection, column string) ([]storage.FacetCount, error) {
	schema, err := storage.SchemaFor(collection)
	if err != nil {
		return nil, err
	}
	kind, ok := schema.Kind(column)
	if !ok || (kind != storage.KindText && kind != storage.KindInt) {
		return nil, fmt.Errorf("%w: %s.%s", storage.ErrUnknownColumn, collection, column)
	}
	field := column
	if kind == storage.KindInt {
		field = column + termSuffix
	}

	req := bleve.NewSearchRequestOptions(publishedQuery(collection), 0, 0, false)
	req.AddFacet(column, bleve.NewFacetRequest(field, maxFacetTerms))
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve facet %s.%s failed: %w", collection, column, err)
	}

	counts := []storage.FacetCount{}
	facet, ok := res.Facets[column]
	if !ok || facet.Terms == nil {
		return counts, nil
	}
	for _, t := range facet.Terms.Terms() {
		if t.Term == "" {
			continue
		}
		counts = append(counts, storage.FacetCount{Value: t.Term, Count: t.Count})
	}
	return counts, nil
}

// Upsert implements storage.Store. Re-indexing a record replaces it, so
// created_at is reset to the import time.
func (b *BleveStore) Upsert(ctx context.Context, catalog *models.Catalog) error {
	batch := b.index.NewBatch()
	for collection, rows := range storage.CatalogRows(catalog, b.now().UTC()) {
		schema, err := storage.SchemaFor(collection)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := batch.Index(docID(collection, row.String("id")), document(collection, schema, row)); err != nil {
				return fmt.Errorf("failed to index %s %s: %w", collection, row.String("id"), err)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.index.Batch(batch)
}

// DeleteBySource implements storage.Store.
func (b *BleveStore) DeleteBySource(ctx context.Context, source string) (int64, error) {
	if source == "" {
		return 0, nil
	}
	var removed int64
	for {
		q := fieldQuery("source", bleve.NewTermQuery(source))
		req := bleve.NewSearchRequestOptions(q, deleteBatch, 0, false)
		res, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return removed, fmt.Errorf("bleve search by source failed: %w", err)
		}
		if len(res.Hits) == 0 {
			return removed, nil
		}
		batch := b.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return removed, err
		}
		removed += int64(len(res.Hits))
	}
}

// Count implements storage.Store.
func (b *BleveStore) Count(ctx context.Context, collection models.Collection) (int64, error) {
	if _, err := storage.SchemaFor(collection); err != nil {
		return 0, err
	}
	req := bleve.NewSearchRequestOptions(collectionQuery(collection), 0, 0, false)
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, err
	}
	return int64(res.Total), nil
}

// Close closes the index.
func (b *BleveStore) Close() error {
	return b.index.Close()
}

func unbounded(ranges []storage.Range) bool {
	for _, r := range ranges {
		if r.Min == nil && r.Max == nil {
			return true
		}
	}
	return false
}

func toFloat(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
