package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/{id}", "418"))
	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/{id}", "418"))

	if after-before != 1 {
		t.Errorf("request counter delta = %v, want 1", after-before)
	}
}

func TestObserveBranch(t *testing.T) {
	before := testutil.ToFloat64(searchBranchTotal.WithLabelValues("services", StatusError))
	ObserveBranch("services", StatusError, 10*time.Millisecond)
	after := testutil.ToFloat64(searchBranchTotal.WithLabelValues("services", StatusError))
	if after-before != 1 {
		t.Errorf("branch counter delta = %v, want 1", after-before)
	}
}

func TestObserveCatalogEvent(t *testing.T) {
	okBefore := testutil.ToFloat64(catalogEventsTotal.WithLabelValues("import", StatusOK))
	errBefore := testutil.ToFloat64(catalogEventsTotal.WithLabelValues("remove", StatusError))
	ObserveCatalogEvent("import", nil)
	ObserveCatalogEvent("remove", errors.New("boom"))
	if d := testutil.ToFloat64(catalogEventsTotal.WithLabelValues("import", StatusOK)) - okBefore; d != 1 {
		t.Errorf("import ok delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(catalogEventsTotal.WithLabelValues("remove", StatusError)) - errBefore; d != 1 {
		t.Errorf("remove error delta = %v, want 1", d)
	}
}
