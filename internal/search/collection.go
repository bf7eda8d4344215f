package search

import (
	"context"
	"fmt"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/storage"
)

// collectionSearcher runs one filtered lookup against a single collection.
type collectionSearcher[T any] struct {
	collection  models.Collection
	textColumns []string
	sortColumns map[models.SortBy]string
	// filters adds the collection's categorical and numeric conditions.
	filters func(f *models.SearchFilter, q *storage.Query)
	decode  func(storage.Row) T
}

// buildQuery translates f into a store query for this collection.
func (s *collectionSearcher[T]) buildQuery(f *models.SearchFilter) storage.Query {
	q := storage.Query{
		TextColumns: s.textColumns,
		TextTerm:    f.FreeText,
		Equals:      map[string][]string{},
		Ranges:      map[string][]storage.Range{},
		Limit:       f.Limit,
		Offset:      f.Offset,
	}
	// Relevance has no column; the store's default order applies.
	if col, ok := s.sortColumns[f.SortBy]; ok {
		q.SortColumn = col
		q.SortDescending = f.SortOrder == models.SortDesc
	}
	s.filters(f, &q)
	return q
}

// search returns an empty result alongside any store error.
func (s *collectionSearcher[T]) search(ctx context.Context, store storage.Store, f *models.SearchFilter) (models.CollectionResult[T], error) {
	res, err := store.QueryPublished(ctx, s.collection, s.buildQuery(f))
	if err != nil {
		return models.EmptyResult[T](), fmt.Errorf("search %s: %w", s.collection, err)
	}
	out := models.CollectionResult[T]{Items: make([]T, 0, len(res.Rows)), Total: res.Total}
	for _, row := range res.Rows {
		out.Items = append(out.Items, s.decode(row))
	}
	return out, nil
}

var organizationSearcher = &collectionSearcher[*models.Organization]{
	collection:  models.CollectionOrganizations,
	textColumns: []string{"name", "description", "industry"},
	sortColumns: map[models.SortBy]string{
		models.SortName:        "name",
		models.SortEstablished: "established_year",
		models.SortUpdated:     "updated_at",
	},
	filters: func(f *models.SearchFilter, q *storage.Query) {
		addEquals(q, "industry", f.Industries)
		addEquals(q, "region", f.Regions)
		for _, tag := range f.CompanySizes {
			if r, ok := sizeRange(tag); ok {
				q.Ranges["employee_count"] = append(q.Ranges["employee_count"], r)
			}
		}
		if r, ok := yearRange(f.EstablishedYearRange); ok {
			q.Ranges["established_year"] = []storage.Range{r}
		}
	},
	decode: decodeOrganization,
}

var serviceSearcher = &collectionSearcher[*models.Service]{
	collection:  models.CollectionServices,
	textColumns: []string{"name", "description", "category"},
	sortColumns: map[models.SortBy]string{
		models.SortName:    "name",
		models.SortUpdated: "updated_at",
	},
	filters: func(f *models.SearchFilter, q *storage.Query) {
		addEquals(q, "category", f.Categories)
		if f.PriceCeiling != nil && *f.PriceCeiling > 0 {
			ceiling := *f.PriceCeiling
			q.Ranges["price"] = []storage.Range{{Max: &ceiling}}
		}
	},
	decode: decodeService,
}

var caseStudySearcher = &collectionSearcher[*models.CaseStudy]{
	collection:  models.CollectionCaseStudies,
	textColumns: []string{"title", "summary", "industry"},
	sortColumns: map[models.SortBy]string{
		models.SortName:    "title",
		models.SortUpdated: "updated_at",
	},
	filters: func(f *models.SearchFilter, q *storage.Query) {
		addEquals(q, "industry", f.Industries)
	},
	decode: decodeCaseStudy,
}

func addEquals(q *storage.Query, column string, values []string) {
	if len(values) > 0 {
		q.Equals[column] = append([]string(nil), values...)
	}
}

// sizeRange maps a size tag to its employee-count range. Records with an
// unknown (zero) employee count never match a size.
func sizeRange(tag string) (storage.Range, bool) {
	b, ok := models.LookupSizeBucket(tag)
	if !ok {
		return storage.Range{}, false
	}
	minCount := int64(max(b.Min, 1))
	r := storage.Range{Min: &minCount}
	if b.Max > 0 {
		maxCount := int64(b.Max)
		r.Max = &maxCount
	}
	return r, true
}

// yearRange keeps only set, non-zero bounds.
func yearRange(yr models.YearRange) (storage.Range, bool) {
	var r storage.Range
	if yr.Min != nil && *yr.Min > 0 {
		v := int64(*yr.Min)
		r.Min = &v
	}
	if yr.Max != nil && *yr.Max > 0 {
		v := int64(*yr.Max)
		r.Max = &v
	}
	return r, r.Min != nil || r.Max != nil
}

func decodeOrganization(row storage.Row) *models.Organization {
	return &models.Organization{
		ID:              row.String("id"),
		Name:            row.String("name"),
		Description:     row.String("description"),
		Industry:        row.String("industry"),
		Region:          row.String("region"),
		EmployeeCount:   int(row.Int("employee_count")),
		EstablishedYear: int(row.Int("established_year")),
		Published:       row.Bool("published"),
		Source:          row.String("source"),
		CreatedAt:       row.Time("created_at"),
		UpdatedAt:       row.Time("updated_at"),
	}
}

func decodeService(row storage.Row) *models.Service {
	return &models.Service{
		ID:             row.String("id"),
		OrganizationID: row.String("organization_id"),
		Name:           row.String("name"),
		Description:    row.String("description"),
		Category:       row.String("category"),
		Price:          row.Int("price"),
		Published:      row.Bool("published"),
		Source:         row.String("source"),
		CreatedAt:      row.Time("created_at"),
		UpdatedAt:      row.Time("updated_at"),
	}
}

func decodeCaseStudy(row storage.Row) *models.CaseStudy {
	return &models.CaseStudy{
		ID:             row.String("id"),
		OrganizationID: row.String("organization_id"),
		ServiceID:      row.String("service_id"),
		Title:          row.String("title"),
		Summary:        row.String("summary"),
		Industry:       row.String("industry"),
		Published:      row.Bool("published"),
		Source:         row.String("source"),
		CreatedAt:      row.Time("created_at"),
		UpdatedAt:      row.Time("updated_at"),
	}
}
