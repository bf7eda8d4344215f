package query

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kensaku/internal/models"
)

// MaxSuggestions caps the number of follow-up queries.
const MaxSuggestions = 8

var intentTemplates = map[models.Intent][]string{
	models.IntentFindOrganization: {"%s サービス", "%s 事例", "%s 比較"},
	models.IntentFindService:      {"%s 比較", "%s 導入事例", "%s 料金"},
	models.IntentFindCaseStudy:    {"%s 成功例", "%s サービス", "%s 企業"},
	models.IntentCompareServices:  {"%s 料金", "%s 評判", "%s 導入事例"},
	models.IntentIndustryAnalysis: {"%s 企業 一覧", "%s トレンド", "%s 事例"},
	models.IntentLocationSearch:   {"%s スタートアップ", "%s サービス", "%s 事例"},
	models.IntentSizeBasedSearch:  {"%s 事例", "%s サービス", "%s 比較"},
	models.IntentGeneralSearch:    {"%s 企業", "%s サービス", "%s 事例"},
}

var sizeLabels = map[string]string{
	models.SizeStartup:    "スタートアップ",
	models.SizeSmall:      "中小企業",
	models.SizeMedium:     "中堅企業",
	models.SizeLarge:      "大企業",
	models.SizeEnterprise: "エンタープライズ",
}

// SizeLabel returns the display label of a company size tag.
func SizeLabel(tag string) string {
	if l, ok := sizeLabels[tag]; ok {
		return l
	}
	return tag
}

// Suggest derives follow-up queries from the original query text, its intent
// and its entities. The result is de-duplicated, never contains the query
// itself, and holds at most MaxSuggestions entries.
func Suggest(original string, intent models.Intent, entities []models.Entity) []string {
	original = strings.TrimSpace(original)
	s := &suggestions{seen: map[string]bool{original: true}, out: []string{}}

	if original != "" {
		for _, tmpl := range intentTemplates[intent] {
			s.add(strings.Replace(tmpl, "%s", original, 1))
		}
	}

	for _, e := range entities {
		switch e.Kind {
		case models.EntityIndustry:
			s.add(e.Value + " 企業 一覧")
			s.add(e.Value + " サービス 比較")
			s.add(e.Value + " 市場 分析")
		case models.EntityLocation:
			s.add(e.Value + " IT企業")
			s.add(e.Value + " スタートアップ")
			s.add(e.Value + " 企業 一覧")
		case models.EntityCompanySize:
			label := SizeLabel(e.Value)
			s.add(label + " 事例")
			s.add(label + " 向け サービス")
		case models.EntityYear:
			s.add(e.Value + "年 設立 企業")
		case models.EntityPriceCeiling:
			s.add(strconv.FormatInt(e.Number/manYen, 10) + "万円以下 サービス")
		}
	}

	for _, token := range strings.Fields(original) {
		if utf8.RuneCountInString(token) <= 1 {
			continue
		}
		s.add(token + " 比較")
		s.add(token + " 導入")
		s.add(token + " 評判")
	}
	return s.out
}

type suggestions struct {
	seen map[string]bool
	out  []string
}

func (s *suggestions) add(q string) {
	q = collapseSpaces(q)
	if q == "" || s.seen[q] || len(s.out) >= MaxSuggestions {
		return
	}
	s.seen[q] = true
	s.out = append(s.out, q)
}
