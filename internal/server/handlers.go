package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/storage"
	"github.com/hyperjump/kensaku/pkg/utils"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SmartSearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBody)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.search(w, r, &req)
}

// handleSearchGet accepts q, limit, offset and repeatable industry, region,
// category, and size refinements.
func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.SmartSearchRequest{Query: q.Get("q")}
	var err error
	if req.Limit, err = intParam(q.Get("limit")); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if req.Offset, err = intParam(q.Get("offset")); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	refine := &models.Refinement{
		Industries:   q["industry"],
		Regions:      q["region"],
		Categories:   q["category"],
		CompanySizes: q["size"],
	}
	if len(refine.Industries)+len(refine.Regions)+len(refine.Categories)+len(refine.CompanySizes) > 0 {
		req.Refine = refine
	}
	s.search(w, r, &req)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, req *models.SmartSearchRequest) {
	logger := utils.LoggerFromContext(r.Context(), s.logger)
	logger.Debug("search request", zap.String("query", req.Query), zap.Int("limit", req.Limit))

	result, err := s.engine.ExecuteSmartSearch(r.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidQuery) || errors.Is(err, models.ErrQueryTooLong) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Facets(r.Context()))
}

func (s *Server) handleImportCatalog(w http.ResponseWriter, r *http.Request) {
	logger := utils.LoggerFromContext(r.Context(), s.logger)
	var catalog models.Catalog
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCatalogBody)).Decode(&catalog); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	logger.Debug("import catalog request", zap.Int("records", catalog.Len()))
	counts, err := s.indexer.ImportCatalog(r.Context(), &catalog, "")
	if err != nil {
		if errors.Is(err, indexer.ErrInvalidRecord) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("catalog import failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, counts)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts := map[string]int64{}
	for _, c := range models.AllCollections {
		n, err := s.store.Count(ctx, c)
		if err != nil {
			utils.LoggerFromContext(ctx, s.logger).Error("status: count failed", zap.String("collection", string(c)), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		counts[string(c)] = n
	}
	resp := map[string]interface{}{
		"collections": counts,
	}

	s.cfgMu.Lock()
	st := s.cfg.Storage
	s.cfgMu.Unlock()
	configInfo := map[string]interface{}{
		"driver": st.Driver,
	}
	switch st.Driver {
	case config.DriverSQLite:
		configInfo["database_path"] = st.DatabasePath
		if n, err := storage.DiskUsageBytes(st.DatabasePath); err == nil {
			resp["disk_usage_bytes"] = n
		}
	case config.DriverBleve:
		configInfo["bleve_index_path"] = st.BleveIndexPath
		if n, err := storage.DiskUsageBytes(st.BleveIndexPath); err == nil {
			resp["disk_usage_bytes"] = n
		}
	}
	resp["config"] = configInfo
	if s.watch != nil {
		resp["directories"] = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	logger := utils.LoggerFromContext(r.Context(), s.logger)
	var req watchAddRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBody)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistDirectories(logger)
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	logger := utils.LoggerFromContext(r.Context(), s.logger)
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBody)).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistDirectories(logger)
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistDirectories writes the watched directories back to the config file.
func (s *Server) persistDirectories(logger *zap.Logger) {
	if s.configPath == "" {
		return
	}
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg.Catalog.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.cfg); err != nil {
		logger.Warn("failed to persist catalog directories", zap.Error(err))
	}
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
