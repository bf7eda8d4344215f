package storage

import (
	"fmt"
	"time"

	"github.com/hyperjump/kensaku/internal/models"
)

// ColumnKind is the stored type of a column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInt
	KindBool
	KindTime
)

// Column is one field of a collection.
type Column struct {
	Name string
	Kind ColumnKind
}

// Schema describes the columns of a collection. The first column is the primary key.
type Schema struct {
	Collection models.Collection
	Columns    []Column
}

// Has reports whether the schema has a column called name.
func (s *Schema) Has(name string) bool {
	_, ok := s.Kind(name)
	return ok
}

// Kind returns the kind of column name.
func (s *Schema) Kind(name string) (ColumnKind, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Kind, true
		}
	}
	return 0, false
}

// Names returns the column names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

var schemas = map[models.Collection]*Schema{
	models.CollectionOrganizations: {
		Collection: models.CollectionOrganizations,
		Columns: []Column{
			{"id", KindText},
			{"name", KindText},
			{"description", KindText},
			{"industry", KindText},
			{"region", KindText},
			{"employee_count", KindInt},
			{"established_year", KindInt},
			{"published", KindBool},
			{"source", KindText},
			{"created_at", KindTime},
			{"updated_at", KindTime},
		},
	},
	models.CollectionServices: {
		Collection: models.CollectionServices,
		Columns: []Column{
			{"id", KindText},
			{"organization_id", KindText},
			{"name", KindText},
			{"description", KindText},
			{"category", KindText},
			{"price", KindInt},
			{"published", KindBool},
			{"source", KindText},
			{"created_at", KindTime},
			{"updated_at", KindTime},
		},
	},
	models.CollectionCaseStudies: {
		Collection: models.CollectionCaseStudies,
		Columns: []Column{
			{"id", KindText},
			{"organization_id", KindText},
			{"service_id", KindText},
			{"title", KindText},
			{"summary", KindText},
			{"industry", KindText},
			{"published", KindBool},
			{"source", KindText},
			{"created_at", KindTime},
			{"updated_at", KindTime},
		},
	},
}

// SchemaFor returns the schema of collection.
func SchemaFor(collection models.Collection) (*Schema, error) {
	s, ok := schemas[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return s, nil
}

// CatalogRows flattens a catalog into rows per collection. Zero timestamps are
// set to now.
func CatalogRows(catalog *models.Catalog, now time.Time) map[models.Collection][]Row {
	out := map[models.Collection][]Row{}
	if catalog == nil {
		return out
	}
	stamp := func(t time.Time) time.Time {
		if t.IsZero() {
			return now
		}
		return t.UTC()
	}
	for _, o := range catalog.Organizations {
		out[models.CollectionOrganizations] = append(out[models.CollectionOrganizations], Row{
			"id":               o.ID,
			"name":             o.Name,
			"description":      o.Description,
			"industry":         o.Industry,
			"region":           o.Region,
			"employee_count":   int64(o.EmployeeCount),
			"established_year": int64(o.EstablishedYear),
			"published":        o.Published,
			"source":           o.Source,
			"created_at":       stamp(o.CreatedAt),
			"updated_at":       stamp(o.UpdatedAt),
		})
	}
	for _, s := range catalog.Services {
		out[models.CollectionServices] = append(out[models.CollectionServices], Row{
			"id":              s.ID,
			"organization_id": s.OrganizationID,
			"name":            s.Name,
			"description":     s.Description,
			"category":        s.Category,
			"price":           s.Price,
			"published":       s.Published,
			"source":          s.Source,
			"created_at":      stamp(s.CreatedAt),
			"updated_at":      stamp(s.UpdatedAt),
		})
	}
	for _, c := range catalog.CaseStudies {
		out[models.CollectionCaseStudies] = append(out[models.CollectionCaseStudies], Row{
			"id":              c.ID,
			"organization_id": c.OrganizationID,
			"service_id":      c.ServiceID,
			"title":           c.Title,
			"summary":         c.Summary,
			"industry":        c.Industry,
			"published":       c.Published,
			"source":          c.Source,
			"created_at":      stamp(c.CreatedAt),
			"updated_at":      stamp(c.UpdatedAt),
		})
	}
	return out
}
