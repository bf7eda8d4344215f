package models

import (
	"encoding/json"
	"fmt"
)

// EntityKind is the type of a fragment extracted from query text.
type EntityKind int

const (
	EntityIndustry EntityKind = iota
	EntityLocation
	EntityCompanySize
	EntityYear
	EntityPriceCeiling
)

// String returns the wire name of the entity kind.
func (k EntityKind) String() string {
	switch k {
	case EntityIndustry:
		return "industry"
	case EntityLocation:
		return "location"
	case EntityCompanySize:
		return "company_size"
	case EntityYear:
		return "year"
	case EntityPriceCeiling:
		return "price_ceiling"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the kind by name.
func (k EntityKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind name.
func (k *EntityKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, candidate := range []EntityKind{EntityIndustry, EntityLocation, EntityCompanySize, EntityYear, EntityPriceCeiling} {
		if candidate.String() == s {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown entity kind %q", s)
}

// Entity is a typed, confidence-scored fragment of meaning found in a query.
// Value is the canonical label for categorical kinds; Number holds the parsed
// value for Year and PriceCeiling.
type Entity struct {
	Kind        EntityKind `json:"kind"`
	Value       string     `json:"value"`
	Number      int64      `json:"number,omitempty"`
	Confidence  float64    `json:"confidence"`
	MatchedText string     `json:"matched_text"`
}

// IsNumeric reports whether the entity carries a number rather than a label.
func (e Entity) IsNumeric() bool {
	return e.Kind == EntityYear || e.Kind == EntityPriceCeiling
}
