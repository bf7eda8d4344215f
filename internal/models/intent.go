package models

import (
	"encoding/json"
	"fmt"
)

// Intent is the single classified purpose of a search query.
type Intent int

const (
	IntentGeneralSearch Intent = iota
	IntentFindOrganization
	IntentFindService
	IntentFindCaseStudy
	IntentCompareServices
	IntentIndustryAnalysis
	IntentLocationSearch
	IntentSizeBasedSearch
)

var intentNames = map[Intent]string{
	IntentGeneralSearch:    "general_search",
	IntentFindOrganization: "find_organization",
	IntentFindService:      "find_service",
	IntentFindCaseStudy:    "find_case_study",
	IntentCompareServices:  "compare_services",
	IntentIndustryAnalysis: "industry_analysis",
	IntentLocationSearch:   "location_search",
	IntentSizeBasedSearch:  "size_based_search",
}

// String returns the wire name of the intent.
func (i Intent) String() string {
	if s, ok := intentNames[i]; ok {
		return s
	}
	return "unknown"
}

// MarshalJSON encodes the intent by name.
func (i Intent) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON decodes an intent name.
func (i *Intent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for intent, name := range intentNames {
		if name == s {
			*i = intent
			return nil
		}
	}
	return fmt.Errorf("unknown intent %q", s)
}
