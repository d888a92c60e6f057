package api

import (
	"net/http"

	"github.com/dgallion1/docaudit/internal/model"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.svc.Claude == nil || s.svc.Claude.Stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"model": s.svc.Claude.Model(),
		"stats": s.svc.Claude.Stats.Snapshot(),
	})
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantParam(r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := s.svc.Store.ListAuditEvents(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []model.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
