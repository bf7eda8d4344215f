// Package models defines directory records, query understanding types, and search results.
package models

import "time"

// Organization is a company listed in the directory.
type Organization struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Description     string    `json:"description,omitempty" yaml:"description"`
	Industry        string    `json:"industry,omitempty" yaml:"industry"`
	Region          string    `json:"region,omitempty" yaml:"region"`
	EmployeeCount   int       `json:"employee_count,omitempty" yaml:"employee_count"`
	EstablishedYear int       `json:"established_year,omitempty" yaml:"established_year"`
	Published       bool      `json:"published" yaml:"published"`
	Source          string    `json:"-" yaml:"-"`
	CreatedAt       time.Time `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"-"`
}

// Service is a product or service offered by an organization.
type Service struct {
	ID             string    `json:"id" yaml:"id"`
	OrganizationID string    `json:"organization_id,omitempty" yaml:"organization_id"`
	Name           string    `json:"name" yaml:"name"`
	Description    string    `json:"description,omitempty" yaml:"description"`
	Category       string    `json:"category,omitempty" yaml:"category"`
	Price          int64     `json:"price,omitempty" yaml:"price"`
	Published      bool      `json:"published" yaml:"published"`
	Source         string    `json:"-" yaml:"-"`
	CreatedAt      time.Time `json:"created_at" yaml:"-"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"-"`
}

// CaseStudy is a published adoption story.
type CaseStudy struct {
	ID             string    `json:"id" yaml:"id"`
	OrganizationID string    `json:"organization_id,omitempty" yaml:"organization_id"`
	ServiceID      string    `json:"service_id,omitempty" yaml:"service_id"`
	Title          string    `json:"title" yaml:"title"`
	Summary        string    `json:"summary,omitempty" yaml:"summary"`
	Industry       string    `json:"industry,omitempty" yaml:"industry"`
	Published      bool      `json:"published" yaml:"published"`
	Source         string    `json:"-" yaml:"-"`
	CreatedAt      time.Time `json:"created_at" yaml:"-"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"-"`
}

// Catalog is a batch of directory records, as read from a catalog file or request body.
type Catalog struct {
	Organizations []*Organization `json:"organizations" yaml:"organizations"`
	Services      []*Service      `json:"services" yaml:"services"`
	CaseStudies   []*CaseStudy    `json:"case_studies" yaml:"case_studies"`
}

// Len returns the total number of records in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Organizations) + len(c.Services) + len(c.CaseStudies)
}

// Collection names one of the three searchable record sets.
type Collection string

const (
	CollectionOrganizations Collection = "organizations"
	CollectionServices      Collection = "services"
	CollectionCaseStudies   Collection = "case_studies"
)

// AllCollections lists every collection in fan-out order.
var AllCollections = []Collection{CollectionOrganizations, CollectionServices, CollectionCaseStudies}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionOrganizations, CollectionServices, CollectionCaseStudies:
		return true
	}
	return false
}
