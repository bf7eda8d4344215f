package query

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
)

const (
	// DefaultLimit is the page size used when the caller does not choose one.
	DefaultLimit = 20

	compareLimit  = 10
	analysisLimit = 50
	yearWindow    = 5
)

var (
	fillerWords = []string{"創業", "設立", "一覧", "おすすめ", "予算", "以下", "以内", "未満", "以上", "以降", "以前"}
	// Longer particles first so that について is not split by に.
	stopParticles = []string{"について", "における", "から", "まで", "の", "で", "に", "を", "は", "が", "と", "や", "へ"}
)

var intentTargets = map[models.Intent][]models.Collection{
	models.IntentFindOrganization: {models.CollectionOrganizations},
	models.IntentLocationSearch:   {models.CollectionOrganizations},
	models.IntentSizeBasedSearch:  {models.CollectionOrganizations},
	models.IntentIndustryAnalysis: {models.CollectionOrganizations},
	models.IntentFindService:      {models.CollectionServices},
	models.IntentCompareServices:  {models.CollectionServices},
	models.IntentFindCaseStudy:    {models.CollectionCaseStudies},
	models.IntentGeneralSearch:    models.AllCollections,
}

// Page is the caller's requested window.
type Page struct {
	Limit  int
	Offset int
}

// FilterBuilder turns entities and an intent into a SearchFilter.
type FilterBuilder struct {
	defaultLimit int
	strict       bool
}

// NewFilterBuilder creates a builder. A strict builder panics on an intent with
// no collection mapping instead of falling back to every collection.
func NewFilterBuilder(defaultLimit int, strict bool) *FilterBuilder {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &FilterBuilder{defaultLimit: defaultLimit, strict: strict}
}

// Build creates the filter for the normalized query q.
func (b *FilterBuilder) Build(q string, entities []models.Entity, intent models.Intent, page Page) models.SearchFilter {
	f := models.SearchFilter{
		FreeText:          freeText(q, entities),
		TargetCollections: b.targets(intent),
		Industries:        []string{},
		Regions:           []string{},
		Categories:        []string{},
		CompanySizes:      []string{},
		SortBy:            models.SortRelevance,
		SortOrder:         models.SortDesc,
		Limit:             page.Limit,
		Offset:            page.Offset,
	}
	if f.Limit <= 0 {
		f.Limit = b.defaultLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	for _, e := range entities {
		switch e.Kind {
		case models.EntityIndustry:
			f.Industries = appendUnique(f.Industries, e.Value)
		case models.EntityLocation:
			f.Regions = appendUnique(f.Regions, e.Value)
		case models.EntityCompanySize:
			f.CompanySizes = appendUnique(f.CompanySizes, e.Value)
		case models.EntityYear:
			// Last year wins when a query mentions several; the intended merge is unclear.
			minYear, maxYear := int(e.Number)-yearWindow, int(e.Number)+yearWindow
			f.EstablishedYearRange = models.YearRange{Min: &minYear, Max: &maxYear}
		case models.EntityPriceCeiling:
			// Last price wins, as with years.
			if e.Number > 0 {
				price := e.Number
				f.PriceCeiling = &price
			}
		}
	}

	switch intent {
	case models.IntentCompareServices:
		f.SortBy, f.SortOrder, f.Limit = models.SortName, models.SortAsc, compareLimit
	case models.IntentIndustryAnalysis:
		f.SortBy, f.SortOrder, f.Limit = models.SortName, models.SortAsc, analysisLimit
	case models.IntentFindCaseStudy:
		f.SortBy, f.SortOrder = models.SortUpdated, models.SortDesc
	}
	return f
}

// Refine appends caller-chosen categorical values after the entity-derived ones.
func Refine(f *models.SearchFilter, r *models.Refinement) {
	if r == nil {
		return
	}
	for _, v := range r.Industries {
		f.Industries = appendUnique(f.Industries, strings.TrimSpace(v))
	}
	for _, v := range r.Regions {
		f.Regions = appendUnique(f.Regions, strings.TrimSpace(v))
	}
	for _, v := range r.Categories {
		f.Categories = appendUnique(f.Categories, strings.TrimSpace(v))
	}
	for _, v := range r.CompanySizes {
		f.CompanySizes = appendUnique(f.CompanySizes, strings.TrimSpace(v))
	}
}

func (b *FilterBuilder) targets(intent models.Intent) []models.Collection {
	targets, ok := intentTargets[intent]
	if !ok {
		if b.strict {
			panic(fmt.Sprintf("query: no target collections for intent %v", intent))
		}
		targets = models.AllCollections
	}
	out := make([]models.Collection, len(targets))
	copy(out, targets)
	return out
}

// freeText strips everything already captured as structure from q.
func freeText(q string, entities []models.Entity) string {
	for _, e := range entities {
		if e.MatchedText != "" {
			q = strings.ReplaceAll(q, e.MatchedText, " ")
		}
	}
	for _, group := range [][]string{
		comparisonKeywords, industryKeywords, caseStudyKeywords,
		serviceKeywords, organizationKeywords, fillerWords, stopParticles,
	} {
		for _, w := range group {
			q = strings.ReplaceAll(q, w, " ")
		}
	}
	return collapseSpaces(q)
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
