package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docaudit/internal/compliance"
	"github.com/dgallion1/docaudit/internal/config"
	"github.com/dgallion1/docaudit/internal/model"
	"github.com/dgallion1/docaudit/internal/pipeline"
	"github.com/dgallion1/docaudit/internal/rationale"
	"github.com/dgallion1/docaudit/internal/report"
	"github.com/dgallion1/docaudit/internal/store"
)

const testKey = "test-key"

type testEnv struct {
	srv   *Server
	store *store.Store
	cfg   config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	cfg := config.Config{
		DocauditAPIKey:     testKey,
		StorageDir:         filepath.Join(dir, "storage"),
		RationaleDisabled:  true,
		RunWorkers:         2,
		SnippetBudget:      600,
		SourceRetries:      1,
		RetryBase:          time.Millisecond,
		WorkerCount:        1,
		MaxQueueSize:       8,
		MaxUploadBytes:     1 << 20,
		MaxParagraphTokens: 1500,
		JobTTL:             time.Hour,
	}

	st, err := store.Open(filepath.Join(dir, "docaudit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	orch := pipeline.NewOrchestrator(cfg, st, log)
	orch.Start(context.Background())
	t.Cleanup(func() {
		orch.Stop()
		st.Close()
	})

	svc := Services{
		Store:   st,
		Ingest:  orch,
		Engine:  compliance.NewEngine(st, rationale.Disabled(cfg.SnippetBudget), compliance.OptionsFrom(cfg), log),
		Reports: report.NewBuilder(st, cfg.StorageDir, log),
	}
	return &testEnv{srv: NewServer(svc, log, cfg), store: st, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return e.do(t, http.MethodPost, path, bytes.NewReader(body), "application/json")
}

func (e *testEnv) upload(t *testing.T, tenant, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("tenant_id", tenant)
	mw.WriteField("title", "Q4 call report")
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return e.do(t, http.MethodPost, "/api/documents", &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// waitForJob polls the status endpoint until the job is terminal.
func (e *testEnv) waitForJob(t *testing.T, jobID string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := e.do(t, http.MethodGet, "/api/ingest/"+jobID+"/status", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status: expected 200, got %d", rec.Code)
		}
		snap := decode[pipeline.JobSnapshot](t, rec)
		if snap.Status.Terminal() {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", jobID)
	return pipeline.JobSnapshot{}
}

func TestHealth_Public(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name, header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + testKey},
		{"wrong key", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/audit?tenant_id=1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.srv.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestUploadRunReportFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.upload(t, "1", "q4.txt", "Total assets for Q4 were $1.2B\n\nTier 1 capital was $120,000,000")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("upload: expected 202, got %d: %s", rec.Code, rec.Body)
	}
	accepted := decode[map[string]any](t, rec)
	snap := env.waitForJob(t, accepted["job_id"].(string))
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed job, got %q (%v)", snap.Status, snap.Progress.Errors)
	}

	rec = env.postJSON(t, "/api/compliance/run", compliance.RunRequest{
		TenantID:     1,
		ReportType:   "FFIEC051",
		Requirements: []string{"total assets", "liquidity coverage"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("run: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	outcome := decode[compliance.RunOutcome](t, rec)
	if outcome.Run.Status != model.RunCompleted || len(outcome.Results) != 2 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Results[0].Result.Status != model.StatusPartial || outcome.Results[1].Result.Status != model.StatusFail {
		t.Errorf("unexpected statuses %q, %q", outcome.Results[0].Result.Status, outcome.Results[1].Result.Status)
	}

	runPath := "/api/compliance/runs/" + itoa(outcome.Run.ID)
	rec = env.do(t, http.MethodGet, runPath, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get run: expected 200, got %d", rec.Code)
	}
	detail := decode[struct {
		Results []struct {
			RequirementID string `json:"requirement_id"`
			Evidence      []struct {
				DocumentTitle string `json:"document_title"`
				Paragraph     *int   `json:"paragraph_index"`
			} `json:"evidence"`
		} `json:"results"`
	}](t, rec)
	if len(detail.Results) != 2 || len(detail.Results[0].Evidence) != 1 {
		t.Fatalf("unexpected run detail %s", rec.Body)
	}
	if ev := detail.Results[0].Evidence[0]; ev.DocumentTitle != "Q4 call report" || ev.Paragraph == nil || *ev.Paragraph != 1 {
		t.Errorf("unexpected evidence %+v", ev)
	}

	rec = env.postJSON(t, "/api/reports", map[string]any{"run_id": outcome.Run.ID, "title": "Q4 Review", "format": "txt"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("report: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	created := decode[map[string]any](t, rec)

	rec = env.do(t, http.MethodGet, created["download_url"].(string), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "Compliance Report\n=================\nRequirement: total assets") {
		t.Errorf("unexpected report body:\n%s", body)
	}
	if !strings.Contains(body, "- Q4 call report (page n/a, paragraph 1, confidence: medium)") {
		t.Errorf("missing citation in:\n%s", body)
	}

	rec = env.do(t, http.MethodGet, "/api/audit?tenant_id=1", nil, "")
	events := decode[struct {
		Events []model.AuditEvent `json:"events"`
	}](t, rec)
	var actions []string
	for _, ev := range events.Events {
		actions = append(actions, ev.Action)
	}
	if strings.Join(actions, ",") != "report.generate,compliance.run,document.upload" {
		t.Errorf("unexpected audit actions %v", actions)
	}

	rec = env.do(t, http.MethodGet, "/api/downloads/bundle", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("bundle: expected 200, got %d", rec.Code)
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	names := map[string]bool{}
	var reportEntry bool
	for _, f := range zr.File {
		names[f.Name] = true
		if strings.HasPrefix(f.Name, "reports/1_Q4_Review_") && strings.HasSuffix(f.Name, ".txt") {
			reportEntry = true
		}
	}
	if !reportEntry || !names["uploads/1/q4.txt"] {
		t.Errorf("unexpected bundle entries %v", names)
	}
}

func TestRun_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	rec := env.postJSON(t, "/api/compliance/run", compliance.RunRequest{TenantID: 1, ReportType: "FFIEC051"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	runs, err := env.store.ListRuns(context.Background(), 1)
	if err != nil || len(runs) != 0 {
		t.Errorf("no run should be created, got %d (%v)", len(runs), err)
	}

	rec = env.do(t, http.MethodPost, "/api/compliance/run", strings.NewReader("{"), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: expected 400, got %d", rec.Code)
	}
}

func TestCreateReport_Errors(t *testing.T) {
	env := newTestEnv(t)
	pending, err := env.store.CreateRun(context.Background(), 1, "FFIEC051")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"unknown run", map[string]any{"run_id": 99, "title": "Q4"}, http.StatusNotFound},
		{"incomplete run", map[string]any{"run_id": pending.ID, "title": "Q4"}, http.StatusConflict},
		{"bad format", map[string]any{"run_id": pending.ID, "title": "Q4", "format": "xlsx"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postJSON(t, "/api/reports", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body)
			}
		})
	}
}

func TestUpload_Rejects(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name, tenant, filename string
	}{
		{"regulatory tenant", "0", "a.txt"},
		{"missing tenant", "", "a.txt"},
		{"unsupported type", "1", "a.exe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.upload(t, tt.tenant, tt.filename, "content")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestRegulatoryIngestVisibleToTenants(t *testing.T) {
	env := newTestEnv(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Banks must report total assets quarterly.")
	}))
	defer upstream.Close()

	rec := env.postJSON(t, "/api/regulatory/sources", map[string]string{
		"name": "Call report instructions", "url": upstream.URL + "/instructions.txt", "category": "ffiec",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create source: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	src := decode[model.RegulatorySource](t, rec)

	rec = env.do(t, http.MethodPost, "/api/regulatory/ingest/"+itoa(src.ID), nil, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("ingest: expected 202, got %d: %s", rec.Code, rec.Body)
	}
	snap := env.waitForJob(t, decode[map[string]any](t, rec)["job_id"].(string))
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed job, got %q (%v)", snap.Status, snap.Progress.Errors)
	}

	rec = env.postJSON(t, "/api/compliance/run", compliance.RunRequest{TenantID: 7, ReportType: "FFIEC051", Requirements: []string{"total assets"}})
	outcome := decode[compliance.RunOutcome](t, rec)
	if len(outcome.Results) != 1 || outcome.Results[0].Result.Status != model.StatusPartial {
		t.Errorf("expected regulatory evidence for tenant 7, got %s", rec.Body)
	}

	rec = env.do(t, http.MethodGet, "/api/regulatory/sources", nil, "")
	listed := decode[struct {
		Sources []model.RegulatorySource `json:"sources"`
	}](t, rec)
	if len(listed.Sources) != 1 || listed.Sources[0].LastIngestedAt == nil {
		t.Errorf("expected ingested source, got %s", rec.Body)
	}
}

func TestCreateSource_Validation(t *testing.T) {
	env := newTestEnv(t)
	rec := env.postJSON(t, "/api/regulatory/sources", map[string]string{"name": "x", "url": "ftp://example.com/a", "category": "c"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/regulatory/ingest/12", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown source, got %d", rec.Code)
	}
}

func TestLLMStats_Unavailable(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/stats/llm", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
