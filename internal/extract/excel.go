package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/kensaku/internal/models"
)

type setter[T any] func(rec *T, v string) error

var organizationColumns = map[string]setter[models.Organization]{
	"id":          func(o *models.Organization, v string) error { o.ID = v; return nil },
	"name":        func(o *models.Organization, v string) error { o.Name = v; return nil },
	"description": func(o *models.Organization, v string) error { o.Description = v; return nil },
	"industry":    func(o *models.Organization, v string) error { o.Industry = v; return nil },
	"region":      func(o *models.Organization, v string) error { o.Region = v; return nil },
	"employee_count": func(o *models.Organization, v string) error {
		n, err := parseInt(v)
		o.EmployeeCount = int(n)
		return err
	},
	"established_year": func(o *models.Organization, v string) error {
		n, err := parseInt(v)
		o.EstablishedYear = int(n)
		return err
	},
	"published": func(o *models.Organization, v string) error {
		o.Published = parseBool(v)
		return nil
	},
}

var serviceColumns = map[string]setter[models.Service]{
	"id":              func(s *models.Service, v string) error { s.ID = v; return nil },
	"organization_id": func(s *models.Service, v string) error { s.OrganizationID = v; return nil },
	"name":            func(s *models.Service, v string) error { s.Name = v; return nil },
	"description":     func(s *models.Service, v string) error { s.Description = v; return nil },
	"category":        func(s *models.Service, v string) error { s.Category = v; return nil },
	"price": func(s *models.Service, v string) error {
		n, err := parseInt(v)
		s.Price = n
		return err
	},
	"published": func(s *models.Service, v string) error {
		s.Published = parseBool(v)
		return nil
	},
}

var caseStudyColumns = map[string]setter[models.CaseStudy]{
	"id":              func(c *models.CaseStudy, v string) error { c.ID = v; return nil },
	"organization_id": func(c *models.CaseStudy, v string) error { c.OrganizationID = v; return nil },
	"service_id":      func(c *models.CaseStudy, v string) error { c.ServiceID = v; return nil },
	"title":           func(c *models.CaseStudy, v string) error { c.Title = v; return nil },
	"summary":         func(c *models.CaseStudy, v string) error { c.Summary = v; return nil },
	"industry":        func(c *models.CaseStudy, v string) error { c.Industry = v; return nil },
	"published": func(c *models.CaseStudy, v string) error {
		c.Published = parseBool(v)
		return nil
	},
}

// extractExcel reads the organizations, services, and case_studies sheets.
// Missing sheets are treated as empty.
func extractExcel(content []byte) (*models.Catalog, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	catalog := &models.Catalog{}
	if catalog.Organizations, err = readSheet(f, string(models.CollectionOrganizations), organizationColumns); err != nil {
		return nil, err
	}
	if catalog.Services, err = readSheet(f, string(models.CollectionServices), serviceColumns); err != nil {
		return nil, err
	}
	if catalog.CaseStudies, err = readSheet(f, string(models.CollectionCaseStudies), caseStudyColumns); err != nil {
		return nil, err
	}
	return catalog, nil
}

func readSheet[T any](f *excelize.File, sheet string, columns map[string]setter[T]) ([]*T, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(cell(h))
	}

	var out []*T
	for r, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := new(T)
		for i, v := range row {
			if i >= len(header) {
				break
			}
			set, ok := columns[header[i]]
			if !ok {
				continue
			}
			if err := set(rec, cell(v)); err != nil {
				return nil, fmt.Errorf("sheet %q row %d column %q: %w", sheet, r+2, header[i], err)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseInt accepts thousands separators and whole-number floats such as "120.0".
func parseInt(v string) (int64, error) {
	v = strings.ReplaceAll(v, ",", "")
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("not an integer: %q", v)
	}
	return int64(f), nil
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes", "y", "公開", "○":
		return true
	}
	return false
}
