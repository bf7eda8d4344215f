package query

import (
	"strconv"
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
)

var intentLabels = map[models.Intent]string{
	models.IntentGeneralSearch:    "一般検索",
	models.IntentFindOrganization: "企業検索",
	models.IntentFindService:      "サービス検索",
	models.IntentFindCaseStudy:    "事例検索",
	models.IntentCompareServices:  "サービス比較",
	models.IntentIndustryAnalysis: "業界分析",
	models.IntentLocationSearch:   "地域検索",
	models.IntentSizeBasedSearch:  "規模別検索",
}

var entityLabels = map[models.EntityKind]string{
	models.EntityIndustry:     "業界",
	models.EntityLocation:     "地域",
	models.EntityCompanySize:  "規模",
	models.EntityYear:         "設立年",
	models.EntityPriceCeiling: "予算上限",
}

// IntentLabel returns the Japanese display label of an intent.
func IntentLabel(intent models.Intent) string {
	if l, ok := intentLabels[intent]; ok {
		return l
	}
	return intent.String()
}

// Explain renders which intent and entities were detected, for display.
func Explain(intent models.Intent, entities []models.Entity) string {
	var b strings.Builder
	b.WriteString("検索意図: ")
	b.WriteString(IntentLabel(intent))
	if len(entities) == 0 {
		b.WriteString(" / 条件なし")
		return b.String()
	}
	parts := make([]string, 0, len(entities))
	for _, e := range entities {
		parts = append(parts, entityLabels[e.Kind]+"="+entityDisplay(e))
	}
	b.WriteString(" / 検出: ")
	b.WriteString(strings.Join(parts, ", "))
	return b.String()
}

func entityDisplay(e models.Entity) string {
	switch e.Kind {
	case models.EntityCompanySize:
		return SizeLabel(e.Value)
	case models.EntityYear:
		return e.Value + "年"
	case models.EntityPriceCeiling:
		return strconv.FormatInt(e.Number/manYen, 10) + "万円"
	default:
		return e.Value
	}
}
