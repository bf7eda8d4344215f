package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kensaku/internal/models"
)

func build(t *testing.T, raw string, page Page) models.SearchFilter {
	t.Helper()
	q := Normalize(raw)
	entities := newTestExtractor().Extract(q)
	intent := NewClassifier().Classify(q, entities)
	return NewFilterBuilder(DefaultLimit, true).Build(q, entities, intent, page)
}

func TestFilterBuilder_Entities(t *testing.T) {
	f := build(t, "AI企業 東京", Page{})

	assert.Equal(t, []string{"AI・人工知能"}, f.Industries)
	assert.Equal(t, []string{"東京都"}, f.Regions)
	assert.Empty(t, f.CompanySizes)
	assert.Equal(t, []models.Collection{models.CollectionOrganizations}, f.TargetCollections)
	assert.Equal(t, "", f.FreeText)
	assert.Equal(t, models.SortRelevance, f.SortBy)
	assert.Equal(t, models.SortDesc, f.SortOrder)
	assert.Equal(t, 20, f.Limit)
}

func TestFilterBuilder_DeduplicatesValues(t *testing.T) {
	f := build(t, "AI 人工知能 機械学習", Page{})
	assert.Equal(t, []string{"AI・人工知能"}, f.Industries)
}

func TestFilterBuilder_YearRange(t *testing.T) {
	f := build(t, "2015年創業の中小企業", Page{})

	require.NotNil(t, f.EstablishedYearRange.Min)
	require.NotNil(t, f.EstablishedYearRange.Max)
	assert.Equal(t, 2010, *f.EstablishedYearRange.Min)
	assert.Equal(t, 2020, *f.EstablishedYearRange.Max)
	assert.Equal(t, []string{"small"}, f.CompanySizes)
	assert.Equal(t, "", f.FreeText)
}

func TestFilterBuilder_LastYearWins(t *testing.T) {
	f := build(t, "2001年 2019年", Page{})
	require.NotNil(t, f.EstablishedYearRange.Min)
	assert.Equal(t, 2014, *f.EstablishedYearRange.Min)
}

func TestFilterBuilder_Price(t *testing.T) {
	f := build(t, "crm 30万円", Page{})
	require.NotNil(t, f.PriceCeiling)
	assert.Equal(t, int64(300_000), *f.PriceCeiling)
	assert.Equal(t, "crm", f.FreeText)
}

func TestFilterBuilder_IntentOverrides(t *testing.T) {
	tests := []struct {
		query   string
		targets []models.Collection
		sortBy  models.SortBy
		order   models.SortOrder
		limit   int
	}{
		{"サービス 比較", []models.Collection{models.CollectionServices}, models.SortName, models.SortAsc, 10},
		{"saas 業界", []models.Collection{models.CollectionOrganizations}, models.SortName, models.SortAsc, 50},
		{"dx 事例", []models.Collection{models.CollectionCaseStudies}, models.SortUpdated, models.SortDesc, 20},
		{"", models.AllCollections, models.SortRelevance, models.SortDesc, 20},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			f := build(t, tt.query, Page{})
			assert.Equal(t, tt.targets, f.TargetCollections)
			assert.Equal(t, tt.sortBy, f.SortBy)
			assert.Equal(t, tt.order, f.SortOrder)
			assert.Equal(t, tt.limit, f.Limit)
		})
	}
}

func TestFilterBuilder_Page(t *testing.T) {
	f := build(t, "クラウド", Page{Limit: 5, Offset: 10})
	assert.Equal(t, 5, f.Limit)
	assert.Equal(t, 10, f.Offset)

	f = build(t, "クラウド 比較", Page{Limit: 5, Offset: -1})
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 0, f.Offset)
}

func TestFilterBuilder_FreeText(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"webサービス東京", "web"},
		{"東京の企業の事例", ""},
		{"kintone について", "kintone"},
		{"おすすめ 会計 ツール", "会計"},
		{"100万円以下のサービス", ""},
		{"予算1,000万円以内のツール", ""},
		{"2015年以降設立の企業", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, build(t, tt.query, Page{}).FreeText)
		})
	}
}

func TestFilterBuilder_UnmappedIntent(t *testing.T) {
	unknown := models.Intent(99)

	lenient := NewFilterBuilder(0, false)
	f := lenient.Build("", nil, unknown, Page{})
	assert.Equal(t, models.AllCollections, f.TargetCollections)

	strict := NewFilterBuilder(0, true)
	assert.Panics(t, func() { strict.Build("", nil, unknown, Page{}) })
}

func TestRefine(t *testing.T) {
	f := build(t, "AI企業 東京", Page{})
	Refine(&f, &models.Refinement{
		Industries:   []string{"AI・人工知能", "SaaS"},
		Regions:      []string{" 大阪府 "},
		Categories:   []string{"CRM"},
		CompanySizes: []string{""},
	})

	assert.Equal(t, []string{"AI・人工知能", "SaaS"}, f.Industries)
	assert.Equal(t, []string{"東京都", "大阪府"}, f.Regions)
	assert.Equal(t, []string{"CRM"}, f.Categories)
	assert.Empty(t, f.CompanySizes)

	Refine(&f, nil)
	assert.Equal(t, []string{"CRM"}, f.Categories)
}
