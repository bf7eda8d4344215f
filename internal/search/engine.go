// Package search runs free-text directory searches: it fans a search filter out
// to the collection searchers and the facet aggregator and assembles the result.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/metrics"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/query"
	"github.com/hyperjump/kensaku/internal/storage"
	"github.com/hyperjump/kensaku/internal/telemetry"
)

const (
	defaultTimeout = 3 * time.Second

	noEntityConfidence = 0.3
	maxConfidence      = 0.95
	intentBonus        = 0.2
	generalBonus       = 0.1
)

// Engine is the query orchestrator.
type Engine struct {
	store      storage.Store
	cfg        config.SearchConfig
	analyzer   *query.Analyzer
	facets     *FacetAggregator
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
	dict       *query.Dictionaries
	cache      FacetCache
	strict     bool
	extractOpt []query.ExtractorOption
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithDictionaries sets the keyword tables used for entity extraction.
func WithDictionaries(d *query.Dictionaries) Option {
	return func(e *Engine) { e.dict = d }
}

// WithFacetCache caches facet sets for the configured TTL.
func WithFacetCache(c FacetCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithStrict makes programming errors such as an unmapped intent panic.
func WithStrict(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithClock sets the time source for elapsed time and year validation.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
		e.extractOpt = append(e.extractOpt, query.WithClock(now))
	}
}

// NewEngine creates a search engine over store.
func NewEngine(store storage.Store, cfg config.SearchConfig, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		cfg:    cfg,
		logger: zap.NewNop(),
		tracer: telemetry.Tracer(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.TimeoutMs <= 0 {
		e.cfg.TimeoutMs = int(defaultTimeout / time.Millisecond)
	}
	if e.cfg.DefaultLimit <= 0 {
		e.cfg.DefaultLimit = query.DefaultLimit
	}
	e.analyzer = query.NewAnalyzer(
		query.NewExtractor(e.dict, e.extractOpt...),
		query.NewClassifier(),
		query.NewFilterBuilder(e.cfg.DefaultLimit, e.strict),
	)
	e.facets = NewFacetAggregator(store, e.cache, e.cfg.FacetCacheTTL(), e.cfg.Timeout(), e.logger)
	return e
}

// Strict reports whether programming errors panic instead of degrading.
func (e *Engine) Strict() bool { return e.strict }

// Fanout is the merged output of one orchestrated search.
type Fanout struct {
	Organizations models.CollectionResult[*models.Organization]
	Services      models.CollectionResult[*models.Service]
	CaseStudies   models.CollectionResult[*models.CaseStudy]
	Facets        models.FacetSet
}

// ExecuteSmartSearch understands req.Query and runs the search. Only request
// validation errors are returned; store failures degrade to empty sections.
func (e *Engine) ExecuteSmartSearch(ctx context.Context, req *models.SmartSearchRequest) (*models.SmartSearchResult, error) {
	start := e.now()
	ctx, span := e.tracer.Start(ctx, "search.ExecuteSmartSearch")
	defer span.End()

	if req == nil {
		return nil, fmt.Errorf("%w: missing request", models.ErrInvalidQuery)
	}
	r := *req
	if err := r.Validate(e.cfg.MaxQueryLength, e.cfg.DefaultLimit, e.cfg.MaxLimit); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	analysis := e.analyzer.Analyze(r.Query, query.Page{Limit: r.Limit, Offset: r.Offset}, r.Refine)
	span.SetAttributes(attribute.String("search.intent", analysis.Intent.String()))
	metrics.ObserveIntent(analysis.Intent.String())

	fan := e.Execute(ctx, analysis.Filter)

	result := &models.SmartSearchResult{
		Query:           r.Query,
		Intent:          analysis.Intent,
		Entities:        analysis.Entities,
		Filter:          analysis.Filter,
		ConfidenceScore: Confidence(analysis.Entities, analysis.Intent),
		Organizations:   fan.Organizations.Items,
		Services:        fan.Services.Items,
		CaseStudies:     fan.CaseStudies.Items,
		Facets:          fan.Facets,
		Suggestions:     query.Suggest(r.Query, analysis.Intent, analysis.Entities),
		Explanation:     query.Explain(analysis.Intent, analysis.Entities),
	}
	result.TotalFound = len(result.Organizations) + len(result.Services) + len(result.CaseStudies)
	result.ElapsedMs = e.now().Sub(start).Milliseconds()

	e.logger.Debug("smart search",
		zap.String("query", r.Query),
		zap.String("intent", analysis.Intent.String()),
		zap.Int("total_found", result.TotalFound),
		zap.Int64("elapsed_ms", result.ElapsedMs),
	)
	return result, nil
}

// Execute runs the targeted collection searchers and the facet aggregator
// concurrently under one deadline. A failed or late branch yields an empty
// section and is logged; it never fails the others.
func (e *Engine) Execute(ctx context.Context, filter models.SearchFilter) *Fanout {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout())
	defer cancel()

	fan := &Fanout{
		Organizations: models.EmptyResult[*models.Organization](),
		Services:      models.EmptyResult[*models.Service](),
		CaseStudies:   models.EmptyResult[*models.CaseStudy](),
		Facets:        emptyFacets(),
	}

	var g errgroup.Group
	if filter.Targets(models.CollectionOrganizations) {
		g.Go(func() error {
			fan.Organizations = runSearch(ctx, e, organizationSearcher, &filter)
			return nil
		})
	} else {
		metrics.ObserveBranch(string(models.CollectionOrganizations), metrics.StatusSkipped, 0)
	}
	if filter.Targets(models.CollectionServices) {
		g.Go(func() error {
			fan.Services = runSearch(ctx, e, serviceSearcher, &filter)
			return nil
		})
	} else {
		metrics.ObserveBranch(string(models.CollectionServices), metrics.StatusSkipped, 0)
	}
	if filter.Targets(models.CollectionCaseStudies) {
		g.Go(func() error {
			fan.CaseStudies = runSearch(ctx, e, caseStudySearcher, &filter)
			return nil
		})
	} else {
		metrics.ObserveBranch(string(models.CollectionCaseStudies), metrics.StatusSkipped, 0)
	}
	g.Go(func() error {
		start := time.Now()
		fs, err := withDeadline(ctx, func(ctx context.Context) (models.FacetSet, error) {
			return e.facets.Aggregate(ctx), nil
		})
		if err != nil {
			metrics.ObserveBranch("facets", metrics.StatusTimeout, time.Since(start))
			e.logger.Warn("facet branch failed", zap.Error(err))
			return nil
		}
		metrics.ObserveBranch("facets", metrics.StatusOK, time.Since(start))
		fan.Facets = fs
		return nil
	})
	_ = g.Wait()
	return fan
}

// Facets returns the facet set without running a search.
func (e *Engine) Facets(ctx context.Context) models.FacetSet {
	return e.facets.Aggregate(ctx)
}

func runSearch[T any](ctx context.Context, e *Engine, s *collectionSearcher[T], filter *models.SearchFilter) models.CollectionResult[T] {
	branch := string(s.collection)
	ctx, span := e.tracer.Start(ctx, "search.branch", trace.WithAttributes(attribute.String("branch", branch)))
	defer span.End()

	start := time.Now()
	res, err := withDeadline(ctx, func(ctx context.Context) (models.CollectionResult[T], error) {
		return s.search(ctx, e.store, filter)
	})
	if err != nil {
		status := metrics.StatusError
		if errors.Is(err, context.DeadlineExceeded) {
			status = metrics.StatusTimeout
		}
		metrics.ObserveBranch(branch, status, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("collection search failed",
			zap.String("collection", branch),
			zap.Any("filter", filter),
			zap.Error(err),
		)
		return models.EmptyResult[T]()
	}
	metrics.ObserveBranch(branch, metrics.StatusOK, time.Since(start))
	return res
}

// withDeadline runs fn and stops waiting when ctx is done, even if fn does not
// observe ctx itself.
func withDeadline[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		done <- outcome{v, err}
	}()
	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Confidence scores how well a query was understood, in [0, 0.95].
func Confidence(entities []models.Entity, intent models.Intent) float64 {
	if len(entities) == 0 {
		return noEntityConfidence
	}
	var sum float64
	for _, e := range entities {
		sum += e.Confidence
	}
	bonus := generalBonus
	if intent != models.IntentGeneralSearch {
		bonus = intentBonus
	}
	return math.Max(0, math.Min(maxConfidence, sum/float64(len(entities))+bonus))
}

func emptyFacets() models.FacetSet {
	return models.FacetSet{
		Industries:   []models.FacetBucket{},
		Regions:      []models.FacetBucket{},
		Categories:   []models.FacetBucket{},
		CompanySizes: []models.FacetBucket{},
	}
}
