package api

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgallion1/docaudit/internal/report"
)

type createReportRequest struct {
	RunID  int64  `json:"run_id"`
	Title  string `json:"title"`
	Format string `json:"format"`
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rep, err := s.svc.Reports.Build(r.Context(), req.RunID, req.Title, req.Format)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           rep.ID,
		"run_id":       rep.RunID,
		"title":        rep.Title,
		"format":       rep.Format,
		"output_path":  rep.OutputPath,
		"content_hash": rep.ContentHash,
		"download_url": fmt.Sprintf("/api/reports/%d/download", rep.ID),
	})
}

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "reportID")
	if err != nil {
		writeError(w, err)
		return
	}
	rep, err := s.svc.Store.GetReport(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := os.Open(rep.OutputPath)
	if err != nil {
		jsonError(w, "report file unavailable", http.StatusGone)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		jsonError(w, "report file unavailable", http.StatusGone)
		return
	}

	name := filepath.Base(rep.OutputPath)
	w.Header().Set("Content-Type", report.ContentType(rep.Format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// handleBundle streams every file under the storage directory as a zip.
func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=compliance_bundle.zip")

	zw := zip.NewWriter(w)
	if err := addTree(zw, s.cfg.StorageDir); err != nil {
		// Headers are gone; the truncated archive is the only signal.
		s.log.Error("bundle failed", "error", err)
	}
	if err := zw.Close(); err != nil {
		s.log.Error("bundle close failed", "error", err)
	}
}

func addTree(zw *zip.Writer, root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		hdr := &zip.FileHeader{Name: filepath.ToSlash(rel), Method: zip.Deflate}
		dst, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(dst, src)
		return err
	})
}
