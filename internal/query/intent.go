package query

import (
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
)

// Keywords that drive intent rules. They are also stripped from free text.
var (
	comparisonKeywords   = []string{"比較", "違い", "vs"}
	industryKeywords     = []string{"業界", "市場", "トレンド"}
	caseStudyKeywords    = []string{"事例", "導入", "成功例"}
	serviceKeywords      = []string{"サービス", "ツール", "システム"}
	organizationKeywords = []string{"企業", "会社", "法人"}
)

// Rule assigns Intent when Match reports true.
type Rule struct {
	Name   string
	Match  func(q string, entities []models.Entity) bool
	Intent models.Intent
}

// DefaultRules returns the intent rules in priority order. Explicit keywords
// outrank entity-derived signals.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "comparison", Match: containsAny(comparisonKeywords), Intent: models.IntentCompareServices},
		{Name: "industry", Match: containsAny(industryKeywords), Intent: models.IntentIndustryAnalysis},
		{Name: "case_study", Match: containsAny(caseStudyKeywords), Intent: models.IntentFindCaseStudy},
		{Name: "service", Match: containsAny(serviceKeywords), Intent: models.IntentFindService},
		{Name: "location", Match: hasEntity(models.EntityLocation), Intent: models.IntentLocationSearch},
		{Name: "company_size", Match: hasEntity(models.EntityCompanySize), Intent: models.IntentSizeBasedSearch},
		{Name: "organization", Match: containsAny(organizationKeywords), Intent: models.IntentFindOrganization},
	}
}

// Classifier picks the first matching rule's intent.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier. With no rules, DefaultRules is used.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the intent of the normalized query q.
func (c *Classifier) Classify(q string, entities []models.Entity) models.Intent {
	for _, r := range c.rules {
		if r.Match(q, entities) {
			return r.Intent
		}
	}
	return models.IntentGeneralSearch
}

func containsAny(keywords []string) func(string, []models.Entity) bool {
	return func(q string, _ []models.Entity) bool {
		for _, kw := range keywords {
			if strings.Contains(q, kw) {
				return true
			}
		}
		return false
	}
}

func hasEntity(kind models.EntityKind) func(string, []models.Entity) bool {
	return func(_ string, entities []models.Entity) bool {
		for _, e := range entities {
			if e.Kind == kind {
				return true
			}
		}
		return false
	}
}
