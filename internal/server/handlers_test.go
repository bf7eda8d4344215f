package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/storage"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

// testServer returns a server backed by an in-memory SQLite store holding a small catalog.
func testServer(t *testing.T, watch WatchService, configPath string) (*Server, http.Handler) {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = ":memory:"

	idx := indexer.NewIndexer(store, nil)
	_, err = idx.ImportCatalog(context.Background(), &models.Catalog{
		Organizations: []*models.Organization{
			{ID: "o1", Name: "Alpha AI", Industry: "AI・人工知能", Region: "東京都", EmployeeCount: 8, Published: true},
			{ID: "o2", Name: "Beta Cloud", Industry: "クラウド", Region: "大阪府", EmployeeCount: 120, Published: true},
		},
		Services: []*models.Service{
			{ID: "s1", Name: "Chat Bot", Category: "AI", Price: 50000, Published: true},
		},
	}, "")
	if err != nil {
		t.Fatal(err)
	}

	engine := search.NewEngine(store, cfg.Search, search.WithClock(fixedNow))
	srv := NewServer(engine, idx, store, cfg, zap.NewNop(), watch, configPath)
	return srv, srv.Router()
}

func do(h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleSearch(t *testing.T) {
	_, h := testServer(t, nil, "")

	w := do(h, http.MethodPost, "/api/v1/search", []byte(`{"query":"AI企業 東京"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out models.SmartSearchResult
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Intent != models.IntentLocationSearch {
		t.Errorf("intent: got %v", out.Intent)
	}
	if len(out.Organizations) != 1 || out.Organizations[0].ID != "o1" {
		t.Errorf("organizations: got %+v", out.Organizations)
	}
	if out.TotalFound != 1 {
		t.Errorf("total_found: got %d", out.TotalFound)
	}
}

func TestHandleSearch_BadRequests(t *testing.T) {
	_, h := testServer(t, nil, "")

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"query":`},
		{"too long", `{"query":"` + strings.Repeat("あ", 300) + `"}`},
		{"control character", `{"query":"a\u0001b"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/api/v1/search", []byte(tt.body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleSearchGet(t *testing.T) {
	_, h := testServer(t, nil, "")

	w := do(h, http.MethodGet, "/api/v1/search?q=&limit=5&region=%E5%A4%A7%E9%98%AA%E5%BA%9C", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out models.SmartSearchResult
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Filter.Limit != 5 {
		t.Errorf("limit: got %d", out.Filter.Limit)
	}
	if len(out.Organizations) != 1 || out.Organizations[0].ID != "o2" {
		t.Errorf("organizations: got %+v", out.Organizations)
	}

	if w := do(h, http.MethodGet, "/api/v1/search?q=x&limit=ten", nil); w.Code != http.StatusBadRequest {
		t.Errorf("invalid limit: got %d, want 400", w.Code)
	}
}

func TestHandleFacets(t *testing.T) {
	_, h := testServer(t, nil, "")

	w := do(h, http.MethodGet, "/api/v1/facets", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.FacetSet
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Regions) != 2 || len(out.Categories) != 1 {
		t.Errorf("facets: got %+v", out)
	}
}

func TestHandleImportCatalog(t *testing.T) {
	_, h := testServer(t, nil, "")

	body := []byte(`{"organizations":[{"name":"Gamma","published":true}],"case_studies":[{"title":"導入事例","published":true}]}`)
	w := do(h, http.MethodPost, "/api/v1/catalog", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var counts indexer.Counts
	if err := json.NewDecoder(w.Body).Decode(&counts); err != nil {
		t.Fatal(err)
	}
	if counts != (indexer.Counts{Organizations: 1, CaseStudies: 1}) {
		t.Errorf("counts: got %+v", counts)
	}

	if w := do(h, http.MethodPost, "/api/v1/catalog", []byte(`{"services":[{"category":"AI"}]}`)); w.Code != http.StatusBadRequest {
		t.Errorf("record without name: got %d, want 400", w.Code)
	}
	if w := do(h, http.MethodPost, "/api/v1/catalog", []byte(`[]`)); w.Code != http.StatusBadRequest {
		t.Errorf("non-object body: got %d, want 400", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	_, h := testServer(t, &mockWatchService{dirs: []string{"/tmp/catalog"}}, "")

	w := do(h, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Collections map[string]int64  `json:"collections"`
		Config      map[string]string `json:"config"`
		Directories []string          `json:"directories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Collections["organizations"] != 2 || out.Collections["services"] != 1 || out.Collections["case_studies"] != 0 {
		t.Errorf("collections: got %v", out.Collections)
	}
	if out.Config["driver"] != config.DriverSQLite {
		t.Errorf("driver: got %q", out.Config["driver"])
	}
	if len(out.Directories) != 1 {
		t.Errorf("directories: got %v", out.Directories)
	}
}

func TestHandleHealthAndMetrics(t *testing.T) {
	_, h := testServer(t, nil, "")

	if w := do(h, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("health: got %d", w.Code)
	}
	w := do(h, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "kensaku_") {
		t.Error("metrics output should include kensaku collectors")
	}
}

func TestRequestID(t *testing.T) {
	_, h := testServer(t, nil, "")

	w := do(h, http.MethodGet, "/health", nil)
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("response should carry a generated request ID")
	}

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request ID: got %q, want caller's", got)
	}
}

func TestHandleWatchDirectoriesList(t *testing.T) {
	_, h := testServer(t, &mockWatchService{dirs: []string{"/tmp/catalog"}}, "")

	w := do(h, http.MethodGet, "/api/v1/catalog/directories", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Directories) != 1 || out.Directories[0] != "/tmp/catalog" {
		t.Errorf("directories: got %v", out.Directories)
	}
}

func TestHandleWatchDirectories_NotEnabled(t *testing.T) {
	_, h := testServer(t, nil, "")

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		w := do(h, method, "/api/v1/catalog/directories", []byte(`{"path":"/tmp"}`))
		if w.Code != http.StatusNotImplemented {
			t.Errorf("%s: got %d, want 501", method, w.Code)
		}
	}
}

func TestHandleWatchDirectoriesAddRemove_persists(t *testing.T) {
	catalogDir := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	mock := &mockWatchService{}
	_, h := testServer(t, mock, configPath)

	body, _ := json.Marshal(watchAddRequest{Path: catalogDir})
	w := do(h, http.MethodPost, "/api/v1/catalog/directories", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("add: got %d, body %s", w.Code, w.Body.String())
	}
	saved, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load saved config: %v", err)
	}
	if len(saved.Catalog.Directories) != 1 || saved.Catalog.Directories[0] != catalogDir {
		t.Errorf("saved directories: got %v", saved.Catalog.Directories)
	}

	w = do(h, http.MethodDelete, "/api/v1/catalog/directories?path="+catalogDir, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("remove: got %d", w.Code)
	}
	if len(mock.dirs) != 0 {
		t.Errorf("directories after remove: %v", mock.dirs)
	}
}

func TestHandleWatchDirectoriesAdd_validation(t *testing.T) {
	dir := t.TempDir()
	_, h := testServer(t, &mockWatchService{}, "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing path", `{}`, http.StatusBadRequest},
		{"not found", `{"path":"` + filepath.Join(dir, "missing") + `"}`, http.StatusNotFound},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/api/v1/catalog/directories", []byte(tt.body))
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d", w.Code, tt.want)
			}
		})
	}
}
