package indexer

import "github.com/hyperjump/kensaku/internal/models"

// DefaultBatchSize is the number of records written per Upsert call.
const DefaultBatchSize = 500

// Batch splits a catalog into consecutive catalogs of at most size records,
// preserving collection order (organizations, services, case studies).
func Batch(c *models.Catalog, size int) []*models.Catalog {
	if c == nil || c.Len() == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out []*models.Catalog
	cur := &models.Catalog{}
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur)
			cur = &models.Catalog{}
		}
	}
	for _, o := range c.Organizations {
		cur.Organizations = append(cur.Organizations, o)
		if cur.Len() == size {
			flush()
		}
	}
	for _, s := range c.Services {
		cur.Services = append(cur.Services, s)
		if cur.Len() == size {
			flush()
		}
	}
	for _, cs := range c.CaseStudies {
		cur.CaseStudies = append(cur.CaseStudies, cs)
		if cur.Len() == size {
			flush()
		}
	}
	flush()
	return out
}
