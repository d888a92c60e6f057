package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docaudit/internal/compliance"
	"github.com/dgallion1/docaudit/internal/config"
	"github.com/dgallion1/docaudit/internal/model"
	"github.com/dgallion1/docaudit/internal/pipeline"
	"github.com/dgallion1/docaudit/internal/rationale"
	"github.com/dgallion1/docaudit/internal/report"
	"github.com/dgallion1/docaudit/internal/store"
)

// Services are the components the API exposes.
type Services struct {
	Store   *store.Store
	Ingest  *pipeline.Orchestrator
	Engine  *compliance.Engine
	Reports *report.Builder
	Claude  *rationale.ClaudeClient // nil when rationale generation is disabled
}

// Server is the HTTP API server for docaudit.
type Server struct {
	router chi.Router
	svc    Services
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(svc Services, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		svc: svc,
		log: log,
		cfg: cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DocauditAPIKey, s.log))

		r.Post("/api/documents", s.handleUpload)
		r.Post("/api/documents/batch", s.handleBatchUpload)
		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)

		r.Post("/api/regulatory/sources", s.handleCreateSource)
		r.Get("/api/regulatory/sources", s.handleListSources)
		r.Post("/api/regulatory/ingest/{sourceID}", s.handleIngestSource)

		r.Post("/api/compliance/run", s.handleRun)
		r.Get("/api/compliance/runs", s.handleListRuns)
		r.Get("/api/compliance/runs/{runID}", s.handleGetRun)

		r.Post("/api/reports", s.handleCreateReport)
		r.Get("/api/reports/{reportID}/download", s.handleDownloadReport)
		r.Get("/api/downloads/bundle", s.handleBundle)

		r.Get("/api/audit", s.handleListAudit)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Store.Ping(r.Context()); err != nil {
		jsonError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.svc.Ingest.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, model.ErrRunIncomplete), errors.Is(err, model.ErrInvalidTransition):
		code = http.StatusConflict
	}
	jsonError(w, err.Error(), code)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return model.InputErrorf("invalid JSON body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.InputErrorf("%s must be a positive integer", name)
	}
	return id, nil
}

// tenantParam reads the required tenant_id query or form value.
func tenantParam(value string) (int64, error) {
	if value == "" {
		return 0, model.InputErrorf("tenant_id is required")
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 0 {
		return 0, model.InputErrorf("tenant_id must be a non-negative integer")
	}
	return id, nil
}
