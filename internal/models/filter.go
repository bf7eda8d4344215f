package models

// SortBy selects the ordering of collection results.
type SortBy string

const (
	// SortRelevance leaves ordering to the store's default; there is no scoring function.
	SortRelevance   SortBy = "relevance"
	SortName        SortBy = "name"
	SortEstablished SortBy = "established"
	SortUpdated     SortBy = "updated"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// YearRange bounds the founding year. Nil bounds are open.
type YearRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r YearRange) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// SearchFilter is the normalized, collection-agnostic query contract.
// It is built once per query and read concurrently by every collection searcher.
type SearchFilter struct {
	FreeText             string       `json:"free_text"`
	TargetCollections    []Collection `json:"target_collections"`
	Industries           []string     `json:"industries"`
	Regions              []string     `json:"regions"`
	Categories           []string     `json:"categories"`
	CompanySizes         []string     `json:"company_sizes"`
	EstablishedYearRange YearRange    `json:"established_year_range"`
	PriceCeiling         *int64       `json:"price_ceiling,omitempty"`
	SortBy               SortBy       `json:"sort_by"`
	SortOrder            SortOrder    `json:"sort_order"`
	Limit                int          `json:"limit"`
	Offset               int          `json:"offset"`
}

// Targets reports whether the filter includes collection c.
func (f *SearchFilter) Targets(c Collection) bool {
	for _, t := range f.TargetCollections {
		if t == c {
			return true
		}
	}
	return false
}

// Company size tags and their employee-count boundaries (inclusive).
const (
	SizeStartup    = "startup"
	SizeSmall      = "small"
	SizeMedium     = "medium"
	SizeLarge      = "large"
	SizeEnterprise = "enterprise"
)

// SizeBucket maps a company size tag to an employee-count range. Max 0 means unbounded.
type SizeBucket struct {
	Tag string
	Min int
	Max int
}

// SizeBuckets are the fixed company-size buckets, smallest first.
var SizeBuckets = []SizeBucket{
	{Tag: SizeStartup, Min: 0, Max: 10},
	{Tag: SizeSmall, Min: 11, Max: 50},
	{Tag: SizeMedium, Min: 51, Max: 200},
	{Tag: SizeLarge, Min: 201, Max: 1000},
	{Tag: SizeEnterprise, Min: 1001, Max: 0},
}

// LookupSizeBucket returns the bucket for tag.
func LookupSizeBucket(tag string) (SizeBucket, bool) {
	for _, b := range SizeBuckets {
		if b.Tag == tag {
			return b, true
		}
	}
	return SizeBucket{}, false
}

// SizeTagForEmployees returns the bucket tag an employee count falls into.
// Non-positive counts are unknown and return "".
func SizeTagForEmployees(n int) string {
	if n <= 0 {
		return ""
	}
	for _, b := range SizeBuckets {
		if n >= b.Min && (b.Max == 0 || n <= b.Max) {
			return b.Tag
		}
	}
	return ""
}
