package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/kensaku/internal/models"
)

const (
	confidenceIndustry    = 0.9
	confidenceLocation    = 0.9
	confidenceCompanySize = 0.8
	confidenceYear        = 0.95
	confidencePrice       = 0.8

	minYear = 1900
	manYen  = 10_000
)

var (
	yearPattern  = regexp.MustCompile(`(\d{4})年?`)
	pricePattern = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+|\d+)万円?`)
)

// Extractor finds typed entities in normalized query text.
type Extractor struct {
	dict *Dictionaries
	now  func() time.Time
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithClock sets the time source used to bound year entities.
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) { e.now = now }
}

// NewExtractor creates an extractor over dict. A nil dict uses the built-in tables.
func NewExtractor(dict *Dictionaries, opts ...ExtractorOption) *Extractor {
	if dict == nil {
		dict = DefaultDictionaries()
	}
	e := &Extractor{dict: dict, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns entities found in q, which must already be normalized.
// Entities are ordered by table (industry, location, company size, year, price)
// and then by dictionary or match order. Duplicates are kept.
func (e *Extractor) Extract(q string) []models.Entity {
	entities := []models.Entity{}
	if q == "" {
		return entities
	}
	entities = appendTerms(entities, q, e.dict.Industries, models.EntityIndustry, confidenceIndustry)
	entities = appendTerms(entities, q, e.dict.Locations, models.EntityLocation, confidenceLocation)
	entities = appendTerms(entities, q, e.dict.CompanySizes, models.EntityCompanySize, confidenceCompanySize)

	currentYear := e.now().Year()
	for _, loc := range yearPattern.FindAllStringSubmatchIndex(q, -1) {
		if !standaloneYear(q, loc[2], loc[3]) {
			continue
		}
		digits := q[loc[2]:loc[3]]
		year, err := strconv.Atoi(digits)
		if err != nil || year < minYear || year > currentYear {
			continue
		}
		entities = append(entities, models.Entity{
			Kind:        models.EntityYear,
			Value:       digits,
			Number:      int64(year),
			Confidence:  confidenceYear,
			MatchedText: q[loc[0]:loc[1]],
		})
	}

	for _, m := range pricePattern.FindAllStringSubmatch(q, -1) {
		n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
		if err != nil || n <= 0 || n > (1<<62)/manYen {
			continue
		}
		price := n * manYen
		entities = append(entities, models.Entity{
			Kind:        models.EntityPriceCeiling,
			Value:       strconv.FormatInt(price, 10),
			Number:      price,
			Confidence:  confidencePrice,
			MatchedText: m[0],
		})
	}
	return entities
}

func appendTerms(dst []models.Entity, q string, terms []Term, kind models.EntityKind, confidence float64) []models.Entity {
	for _, t := range terms {
		if strings.Contains(q, t.Keyword) {
			dst = append(dst, models.Entity{
				Kind:        kind,
				Value:       t.Value,
				Confidence:  confidence,
				MatchedText: t.Keyword,
			})
		}
	}
	return dst
}

// standaloneYear reports whether q[start:end] is a whole number that is not an
// amount of money, so "2000万円" and "12345" do not yield years.
func standaloneYear(q string, start, end int) bool {
	if start > 0 && isDigit(q[start-1]) {
		return false
	}
	if end < len(q) {
		if isDigit(q[end]) || strings.HasPrefix(q[end:], "万") {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
