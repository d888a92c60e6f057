package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dgallion1/docaudit/internal/model"
	"github.com/dgallion1/docaudit/internal/pipeline"
)

type createSourceRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

func (req createSourceRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return model.InputErrorf("name is required")
	}
	if strings.TrimSpace(req.Category) == "" {
		return model.InputErrorf("category is required")
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.InputErrorf("url must be an absolute http(s) URL")
	}
	return nil
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var req createSourceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	src := &model.RegulatorySource{Name: req.Name, URL: req.URL, Category: pipeline.SanitizeFilename(req.Category)}
	if err := s.svc.Store.CreateRegulatorySource(r.Context(), src); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.svc.Store.ListRegulatorySources(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if sources == nil {
		sources = []model.RegulatorySource{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

// handleIngestSource queues a fetch-and-ingest job for a registered source.
func (s *Server) handleIngestSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "sourceID")
	if err != nil {
		writeError(w, err)
		return
	}
	src, err := s.svc.Store.GetRegulatorySource(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	job := pipeline.NewRegulatoryJob(src)
	if err := s.svc.Ingest.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, jobAccepted(job))
}
