package query

import (
	"github.com/hyperjump/kensaku/internal/models"
)

// Analysis is the understood form of one query.
type Analysis struct {
	Normalized string
	Entities   []models.Entity
	Intent     models.Intent
	Filter     models.SearchFilter
}

// Analyzer runs normalization, extraction, classification, and filter building.
type Analyzer struct {
	extractor  *Extractor
	classifier *Classifier
	builder    *FilterBuilder
}

// NewAnalyzer wires the query understanding stages together.
func NewAnalyzer(extractor *Extractor, classifier *Classifier, builder *FilterBuilder) *Analyzer {
	return &Analyzer{extractor: extractor, classifier: classifier, builder: builder}
}

// Analyze understands raw and builds its filter for page, then applies refine.
func (a *Analyzer) Analyze(raw string, page Page, refine *models.Refinement) *Analysis {
	normalized := Normalize(raw)
	entities := a.extractor.Extract(normalized)
	intent := a.classifier.Classify(normalized, entities)
	filter := a.builder.Build(normalized, entities, intent, page)
	Refine(&filter, refine)
	return &Analysis{
		Normalized: normalized,
		Entities:   entities,
		Intent:     intent,
		Filter:     filter,
	}
}
