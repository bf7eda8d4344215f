package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
)

// Client calls the HTTP API of a running kensaku server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Search runs a smart search.
func (c *Client) Search(ctx context.Context, req *models.SmartSearchRequest) (*models.SmartSearchResult, error) {
	var out models.SmartSearchResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Facets returns the facet counts over the published directory.
func (c *Client) Facets(ctx context.Context) (models.FacetSet, error) {
	var out models.FacetSet
	err := c.do(ctx, http.MethodGet, "/api/v1/facets", nil, http.StatusOK, &out)
	return out, err
}

// Status returns record counts and storage information.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportCatalog posts a catalog for import.
func (c *Client) ImportCatalog(ctx context.Context, catalog *models.Catalog) (indexer.Counts, error) {
	var out indexer.Counts
	err := c.do(ctx, http.MethodPost, "/api/v1/catalog", catalog, http.StatusCreated, &out)
	return out, err
}

// Directories lists the watched catalog directories.
func (c *Client) Directories(ctx context.Context) ([]string, error) {
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/catalog/directories", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

// AddDirectory starts watching path and imports the catalogs already in it.
func (c *Client) AddDirectory(ctx context.Context, path string) error {
	body := map[string]interface{}{"path": path, "sync": true}
	return c.do(ctx, http.MethodPost, "/api/v1/catalog/directories", body, http.StatusCreated, nil)
}

// RemoveDirectory stops watching path.
func (c *Client) RemoveDirectory(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/catalog/directories?path="+url.QueryEscape(path), nil, http.StatusOK, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
