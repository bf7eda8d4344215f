// Package server provides the HTTP API for kensaku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/metrics"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/storage"
)

const (
	maxSearchBody  = 64 << 10
	maxCatalogBody = 16 << 20
)

// WatchService manages the watched catalog directories. *watcher.Watcher implements it.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the kensaku API.
type Server struct {
	engine     *search.Engine
	indexer    *indexer.Indexer
	store      storage.Store
	cfg        *config.Config
	cfgMu      sync.Mutex
	configPath string
	watch      WatchService
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies. watch may be nil when
// no catalog directories are watched; configPath may be empty, in which case
// directory changes are not persisted.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	store storage.Store,
	cfg *config.Config,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:     engine,
		indexer:    idx,
		store:      store,
		cfg:        cfg,
		configPath: configPath,
		watch:      watch,
		logger:     logger,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/search", s.handleSearchGet)
		r.Get("/facets", s.handleFacets)
		r.Post("/catalog", s.handleImportCatalog)
		r.Get("/catalog/directories", s.handleWatchDirectoriesList)
		r.Post("/catalog/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/catalog/directories", s.handleWatchDirectoriesRemove)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	if s.cfg.Metrics.EnabledOrDefault() {
		path := s.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
