package indexer

import (
	"strings"
	"unicode"

	"github.com/hyperjump/kensaku/internal/models"
)

// Preprocess normalizes a text field for storage (trim, collapse whitespace).
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

func preprocessOrganization(o *models.Organization) {
	o.ID = strings.TrimSpace(o.ID)
	o.Name = Preprocess(o.Name)
	o.Description = Preprocess(o.Description)
	o.Industry = Preprocess(o.Industry)
	o.Region = Preprocess(o.Region)
}

func preprocessService(s *models.Service) {
	s.ID = strings.TrimSpace(s.ID)
	s.OrganizationID = strings.TrimSpace(s.OrganizationID)
	s.Name = Preprocess(s.Name)
	s.Description = Preprocess(s.Description)
	s.Category = Preprocess(s.Category)
}

func preprocessCaseStudy(c *models.CaseStudy) {
	c.ID = strings.TrimSpace(c.ID)
	c.OrganizationID = strings.TrimSpace(c.OrganizationID)
	c.ServiceID = strings.TrimSpace(c.ServiceID)
	c.Title = Preprocess(c.Title)
	c.Summary = Preprocess(c.Summary)
	c.Industry = Preprocess(c.Industry)
}
