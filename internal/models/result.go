package models

// CollectionResult is one page of a collection search.
type CollectionResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// EmptyResult returns a result with a non-nil, empty item list.
func EmptyResult[T any]() CollectionResult[T] {
	return CollectionResult[T]{Items: []T{}}
}

// FacetBucket is one value and its count.
type FacetBucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// FacetSet holds value distributions over the published directory.
type FacetSet struct {
	Industries   []FacetBucket `json:"industries"`
	Regions      []FacetBucket `json:"regions"`
	Categories   []FacetBucket `json:"categories"`
	CompanySizes []FacetBucket `json:"company_sizes"`
}

// SmartSearchResult is the response for a free-text directory search.
// TotalFound is always the sum of the three result slices.
type SmartSearchResult struct {
	Query           string          `json:"query"`
	Intent          Intent          `json:"intent"`
	Entities        []Entity        `json:"entities"`
	Filter          SearchFilter    `json:"filter"`
	ConfidenceScore float64         `json:"confidence_score"`
	Organizations   []*Organization `json:"organizations"`
	Services        []*Service      `json:"services"`
	CaseStudies     []*CaseStudy    `json:"case_studies"`
	Facets          FacetSet        `json:"facets"`
	Suggestions     []string        `json:"suggestions"`
	Explanation     string          `json:"explanation"`
	TotalFound      int             `json:"total_found"`
	ElapsedMs       int64           `json:"elapsed_ms"`
}
