package search

import (
	"context"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/kensaku/internal/metrics"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/storage"
	"github.com/hyperjump/kensaku/internal/telemetry"
)

// Facet list caps. Zero means unbounded.
const (
	industryFacetLimit = 20
	regionFacetLimit   = 0
	categoryFacetLimit = 20
)

// FacetCache stores the facet set between searches. Facets do not depend on
// the query, so one entry serves every request until it expires.
type FacetCache interface {
	Get(ctx context.Context) (*models.FacetSet, bool, error)
	Set(ctx context.Context, facets *models.FacetSet, ttl time.Duration) error
}

// FacetAggregator counts values over the published directory, ignoring the
// current query's text and categorical filters.
type FacetAggregator struct {
	store   storage.Store
	cache   FacetCache
	ttl     time.Duration
	timeout time.Duration
	logger  *zap.Logger
	tracer  trace.Tracer
	// group collapses concurrent misses into one aggregation.
	group singleflight.Group
}

// NewFacetAggregator creates an aggregator. cache may be nil. timeout bounds
// one shared aggregation; zero uses the default search timeout.
func NewFacetAggregator(store storage.Store, cache FacetCache, ttl, timeout time.Duration, logger *zap.Logger) *FacetAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &FacetAggregator{store: store, cache: cache, ttl: ttl, timeout: timeout, logger: logger, tracer: telemetry.Tracer()}
}

type facetSpec struct {
	name       string
	collection models.Collection
	column     string
	limit      int
	assign     func(fs *models.FacetSet, buckets []models.FacetBucket)
}

var facetSpecs = []facetSpec{
	{"industries", models.CollectionOrganizations, "industry", industryFacetLimit,
		func(fs *models.FacetSet, b []models.FacetBucket) { fs.Industries = b }},
	{"regions", models.CollectionOrganizations, "region", regionFacetLimit,
		func(fs *models.FacetSet, b []models.FacetBucket) { fs.Regions = b }},
	{"categories", models.CollectionServices, "category", categoryFacetLimit,
		func(fs *models.FacetSet, b []models.FacetBucket) { fs.Categories = b }},
}

// Aggregate returns the facet set. Each category fails independently to an
// empty list; only complete sets are cached. Concurrent callers share one
// aggregation that is not bound to any caller's deadline; a caller whose ctx
// ends first gets empty facets.
func (a *FacetAggregator) Aggregate(ctx context.Context) models.FacetSet {
	if a.cache != nil {
		cached, ok, err := a.cache.Get(ctx)
		switch {
		case err != nil:
			metrics.ObserveFacetCache("error")
			a.logger.Warn("facet cache read failed", zap.Error(err))
		case ok && cached != nil:
			metrics.ObserveFacetCache("hit")
			return *cached
		default:
			metrics.ObserveFacetCache("miss")
		}
	}

	ch := a.group.DoChan("facets", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		return a.compute(ctx), nil
	})
	select {
	case r := <-ch:
		return r.Val.(models.FacetSet)
	case <-ctx.Done():
		return emptyFacets()
	}
}

func (a *FacetAggregator) compute(ctx context.Context) models.FacetSet {
	fs := emptyFacets()
	complete := true
	for _, spec := range facetSpecs {
		counts, err := a.aggregate(ctx, spec.name, spec.collection, spec.column)
		if err != nil {
			complete = false
			continue
		}
		spec.assign(&fs, topBuckets(counts, spec.limit))
	}

	counts, err := a.aggregate(ctx, "company_sizes", models.CollectionOrganizations, "employee_count")
	if err != nil {
		complete = false
	} else {
		fs.CompanySizes = sizeBuckets(counts)
	}

	if complete && a.cache != nil {
		if err := a.cache.Set(ctx, &fs, a.ttl); err != nil {
			a.logger.Warn("facet cache write failed", zap.Error(err))
		}
	}
	return fs
}

func (a *FacetAggregator) aggregate(ctx context.Context, name string, collection models.Collection, column string) ([]storage.FacetCount, error) {
	ctx, span := a.tracer.Start(ctx, "search.facet", trace.WithAttributes(attribute.String("facet", name)))
	defer span.End()

	counts, err := a.store.AggregateFacet(ctx, collection, column)
	if err != nil {
		span.RecordError(err)
		a.logger.Warn("facet aggregation failed",
			zap.String("facet", name),
			zap.String("collection", string(collection)),
			zap.Error(err),
		)
		return nil, err
	}
	return counts, nil
}

// topBuckets sorts by count descending, then name, and truncates to limit.
func topBuckets(counts []storage.FacetCount, limit int) []models.FacetBucket {
	merged := map[string]int{}
	for _, c := range counts {
		if c.Value == "" || c.Count <= 0 {
			continue
		}
		merged[c.Value] += c.Count
	}
	buckets := make([]models.FacetBucket, 0, len(merged))
	for name, n := range merged {
		buckets = append(buckets, models.FacetBucket{Name: name, Count: n})
	}
	sortBuckets(buckets)
	if limit > 0 && len(buckets) > limit {
		buckets = buckets[:limit]
	}
	return buckets
}

// sizeBuckets folds raw employee counts into the fixed size buckets, omitting empty ones.
func sizeBuckets(counts []storage.FacetCount) []models.FacetBucket {
	merged := make([]storage.FacetCount, 0, len(models.SizeBuckets))
	for _, c := range counts {
		n, err := strconv.Atoi(c.Value)
		if err != nil {
			continue
		}
		if tag := models.SizeTagForEmployees(n); tag != "" {
			merged = append(merged, storage.FacetCount{Value: tag, Count: c.Count})
		}
	}
	return topBuckets(merged, len(models.SizeBuckets))
}

func sortBuckets(b []models.FacetBucket) {
	sort.Slice(b, func(i, j int) bool {
		if b[i].Count != b[j].Count {
			return b[i].Count > b[j].Count
		}
		return b[i].Name < b[j].Name
	})
}
