package extract

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

const sampleYAML = `
organizations:
  - id: o1
    name: Alpha AI
    industry: AI・人工知能
    region: 東京都
    employee_count: 8
    established_year: 2016
    published: true
services:
  - name: Chat Bot
    organization_id: o1
    category: AI
    price: 50000
    published: true
case_studies:
  - title: チャットボット導入
    industry: 小売・EC
`

func TestExtractBytes_yaml(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte(sampleYAML), ".yaml")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", got.Len())
	}
	o := got.Organizations[0]
	if o.ID != "o1" || o.Region != "東京都" || o.EmployeeCount != 8 || !o.Published {
		t.Errorf("organization = %+v", o)
	}
	if s := got.Services[0]; s.ID != "" || s.Price != 50000 {
		t.Errorf("service = %+v", s)
	}
	if c := got.CaseStudies[0]; c.Published {
		t.Error("published should default to false")
	}
}

func TestExtractBytes_json(t *testing.T) {
	e := NewExtractor()
	content := []byte(`{"services":[{"id":"s1","name":"Cloud DB","price":300000,"published":true}]}`)
	got, err := e.ExtractBytes(content, ".JSON")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(got.Services) != 1 || got.Services[0].Name != "Cloud DB" {
		t.Errorf("services = %+v", got.Services)
	}
	if len(got.Organizations) != 0 {
		t.Errorf("organizations = %+v", got.Organizations)
	}
}

func TestExtractBytes_empty(t *testing.T) {
	got, err := NewExtractor().ExtractBytes([]byte("  \n"), ".yml")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d", got.Len())
	}
}

func TestExtractBytes_malformed(t *testing.T) {
	_, err := NewExtractor().ExtractBytes([]byte("organizations: {name: [unclosed"), ".yaml")
	if err == nil {
		t.Error("expected decode error")
	}
}

func TestExtractBytes_unsupported(t *testing.T) {
	_, err := NewExtractor().ExtractBytes([]byte("raw content"), ".txt")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func newWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	if err := f.SetSheetName("Sheet1", "organizations"); err != nil {
		t.Fatal(err)
	}
	rows := [][]any{
		{"ID", "Name", "Industry", "Region", "Employee_Count", "Established_Year", "Published", "Memo"},
		{"o1", " Alpha AI ", "AI・人工知能", "東京都", "1,200", 2016, "公開", "ignored"},
		{},
		{"o2", "Beta Cloud", "クラウド", "大阪府", 120, 2005, "no"},
	}
	for i, row := range rows {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("organizations", cellRef, &row); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.NewSheet("services"); err != nil {
		t.Fatal(err)
	}
	_ = f.SetSheetRow("services", "A1", &[]any{"name", "category", "price", "published"})
	_ = f.SetSheetRow("services", "A2", &[]any{"Chat Bot", "AI", 50000, "true"})
	return f
}

func TestExtractBytes_excel(t *testing.T) {
	f := newWorkbook(t)
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(got.Organizations) != 2 {
		t.Fatalf("organizations = %d, want 2", len(got.Organizations))
	}
	o := got.Organizations[0]
	if o.Name != "Alpha AI" || o.EmployeeCount != 1200 || o.EstablishedYear != 2016 || !o.Published {
		t.Errorf("organization = %+v", o)
	}
	if got.Organizations[1].Published {
		t.Error("second organization should be unpublished")
	}
	if len(got.Services) != 1 || got.Services[0].Price != 50000 || !got.Services[0].Published {
		t.Errorf("services = %+v", got.Services)
	}
	if got.CaseStudies != nil {
		t.Errorf("missing sheet should be empty, got %+v", got.CaseStudies)
	}
}

func TestExtractBytes_excelBadNumber(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetSheetName("Sheet1", "services")
	_ = f.SetSheetRow("services", "A1", &[]any{"name", "price"})
	_ = f.SetSheetRow("services", "A2", &[]any{"Chat Bot", "応相談"})
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	if _, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx"); err == nil {
		t.Error("expected error for non-numeric price")
	}
}

func TestExtract_file(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Len() != 3 {
		t.Errorf("Len() = %d", got.Len())
	}
}

func TestExtract_nonexistent(t *testing.T) {
	if _, err := NewExtractor().Extract("/nonexistent/path/catalog.yaml"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"42", 42, false},
		{"1,200", 1200, false},
		{"120.0", 120, false},
		{"1.5", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseInt(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseInt(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseInt(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	if got := string(sanitize([]byte("hello\x80world"))); got != "hello�world" {
		t.Errorf("got %q", got)
	}
}
