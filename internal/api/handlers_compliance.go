package api

import (
	"net/http"

	"github.com/dgallion1/docaudit/internal/compliance"
	"github.com/dgallion1/docaudit/internal/model"
)

// handleRun evaluates a requirement list synchronously and returns every
// result in request order.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req compliance.RunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := s.svc.Engine.StartRun(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantParam(r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	runs, err := s.svc.Store.ListRuns(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

type citationView struct {
	DocumentID    int64            `json:"document_id"`
	DocumentTitle string           `json:"document_title"`
	ChunkID       int64            `json:"chunk_id"`
	Page          *int             `json:"page_number"`
	Paragraph     *int             `json:"paragraph_index"`
	Confidence    model.Confidence `json:"confidence"`
	Score         int              `json:"score"`
}

type resultView struct {
	model.Result
	Evidence []citationView `json:"evidence"`
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "runID")
	if err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	run, err := s.svc.Store.GetRun(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := s.svc.Store.ListResults(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]resultView, 0, len(results))
	for _, res := range results {
		cites, err := s.svc.Store.ListCitations(ctx, res.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		v := resultView{Result: res, Evidence: make([]citationView, 0, len(cites))}
		for _, c := range cites {
			v.Evidence = append(v.Evidence, citationView{
				DocumentID:    c.Evidence.DocumentID,
				DocumentTitle: c.DocumentTitle,
				ChunkID:       c.Evidence.ChunkID,
				Page:          c.Page,
				Paragraph:     c.Paragraph,
				Confidence:    c.Evidence.Confidence,
				Score:         c.Evidence.Score,
			})
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run, "results": views})
}
