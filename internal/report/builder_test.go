package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"

	"github.com/dgallion1/docaudit/internal/model"
	"github.com/dgallion1/docaudit/internal/parser"
	"github.com/dgallion1/docaudit/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "docaudit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedRun stores a run with one supported and one unsupported requirement
// and leaves it in the given status.
func seedRun(t *testing.T, s *store.Store, status model.RunStatus) *model.Run {
	t.Helper()
	ctx := context.Background()

	doc := &model.Document{TenantID: 1, Title: "Q4 call report", StoragePath: "uploads/1/q4.pdf"}
	chunks := []model.Chunk{{Page: model.IntPtr(2), Paragraph: model.IntPtr(1), Content: "Total assets for Q4 were $1.2B"}}
	if err := s.CreateDocument(ctx, doc, chunks); err != nil {
		t.Fatalf("create document: %v", err)
	}

	run, err := s.CreateRun(ctx, 1, "FFIEC051")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if status == model.RunPending {
		return run
	}
	if err := s.TransitionRun(ctx, run.ID, model.RunPending, model.RunRunning); err != nil {
		t.Fatalf("start run: %v", err)
	}

	results := []struct {
		req string
		st  model.Status
		ev  []model.Evidence
	}{
		{"total assets", model.StatusPartial, []model.Evidence{{DocumentID: doc.ID, ChunkID: chunks[0].ID, Confidence: model.ConfidenceMedium, Score: 2}}},
		{"liquidity coverage", model.StatusFail, nil},
	}
	for _, r := range results {
		res := &model.Result{RunID: run.ID, RequirementID: r.req, Status: r.st, Rationale: "Requirement: " + r.req}
		if err := s.SaveResult(ctx, res, r.ev); err != nil {
			t.Fatalf("save result: %v", err)
		}
	}

	if status != model.RunRunning {
		if err := s.TransitionRun(ctx, run.ID, model.RunRunning, status); err != nil {
			t.Fatalf("finish run: %v", err)
		}
	}
	return run
}

func TestBuild_Idempotent(t *testing.T) {
	s := openStore(t)
	run := seedRun(t, s, model.RunCompleted)
	b := NewBuilder(s, t.TempDir(), testLogger())
	ctx := context.Background()

	for _, format := range []string{"txt", "md", "html", "pdf"} {
		t.Run(format, func(t *testing.T) {
			first, err := b.Build(ctx, run.ID, "Q4 Compliance", format)
			if err != nil {
				t.Fatalf("first build: %v", err)
			}
			firstBytes, err := os.ReadFile(first.OutputPath)
			if err != nil {
				t.Fatalf("read first: %v", err)
			}

			second, err := b.Build(ctx, run.ID, "Q4 Compliance", format)
			if err != nil {
				t.Fatalf("second build: %v", err)
			}
			secondBytes, err := os.ReadFile(second.OutputPath)
			if err != nil {
				t.Fatalf("read second: %v", err)
			}

			if first.ID == second.ID {
				t.Error("each build must record its own report")
			}
			if first.Content != second.Content || first.ContentHash != second.ContentHash {
				t.Error("content differs between builds")
			}
			if !bytes.Equal(firstBytes, secondBytes) {
				t.Error("rendered files differ between builds")
			}
		})
	}
}

func TestBuild_WritesTextAndRecordsReport(t *testing.T) {
	s := openStore(t)
	run := seedRun(t, s, model.RunCompleted)
	dir := t.TempDir()
	b := NewBuilder(s, dir, testLogger())
	ctx := context.Background()

	r, err := b.Build(ctx, run.ID, "Q4 Compliance", "TXT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantPath := filepath.Join(dir, "reports", fmt.Sprintf("%d_Q4_Compliance_%s.txt", run.ID, r.ContentHash[:12]))
	if r.OutputPath != wantPath {
		t.Errorf("expected path %q, got %q", wantPath, r.OutputPath)
	}
	if r.Format != "txt" {
		t.Errorf("expected format %q, got %q", "txt", r.Format)
	}

	data, err := os.ReadFile(r.OutputPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(data) != r.Content {
		t.Error("text report must equal the stored content")
	}
	if !strings.Contains(r.Content, "- Q4 call report (page 2, paragraph 1, confidence: medium)") {
		t.Errorf("missing citation in:\n%s", r.Content)
	}
	if !strings.Contains(r.Content, "Requirement: liquidity coverage\nStatus: fail\nRationale:\nRequirement: liquidity coverage\nEvidence:\n- No evidence found") {
		t.Errorf("missing no-evidence section in:\n%s", r.Content)
	}

	stored, err := s.GetReport(ctx, r.ID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if stored.ContentHash != r.ContentHash || stored.Content != r.Content {
		t.Error("stored report differs from returned report")
	}

	events, err := s.ListAuditEvents(ctx, 1)
	if err != nil {
		t.Fatalf("list audit events: %v", err)
	}
	if len(events) == 0 || events[0].Action != "report.generate" {
		t.Errorf("expected report.generate audit event, got %+v", events)
	}
}

func TestBuild_RejectsIncompleteRuns(t *testing.T) {
	for _, status := range []model.RunStatus{model.RunPending, model.RunRunning, model.RunFailed} {
		t.Run(string(status), func(t *testing.T) {
			s := openStore(t)
			run := seedRun(t, s, status)
			dir := t.TempDir()
			b := NewBuilder(s, dir, testLogger())

			_, err := b.Build(context.Background(), run.ID, "Draft", "txt")
			if !errors.Is(err, model.ErrRunIncomplete) {
				t.Fatalf("expected ErrRunIncomplete, got %v", err)
			}
			if _, err := os.Stat(filepath.Join(dir, "reports")); !os.IsNotExist(err) {
				t.Error("no report file should be written for an incomplete run")
			}
		})
	}
}

func TestBuild_InputErrors(t *testing.T) {
	s := openStore(t)
	run := seedRun(t, s, model.RunCompleted)
	b := NewBuilder(s, t.TempDir(), testLogger())

	tests := []struct {
		name, title, format string
	}{
		{"blank title", "  ", "txt"},
		{"unknown format", "Q4", "xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(context.Background(), run.ID, tt.title, tt.format)
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestBuild_UnknownRun(t *testing.T) {
	s := openStore(t)
	b := NewBuilder(s, t.TempDir(), testLogger())
	_, err := b.Build(context.Background(), 42, "Q4", "txt")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBuild_RenderErrorWhenStorageUnwritable(t *testing.T) {
	s := openStore(t)
	run := seedRun(t, s, model.RunCompleted)

	blocker := filepath.Join(t.TempDir(), "storage")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(s, blocker, testLogger())

	_, err := b.Build(context.Background(), run.ID, "Q4", "txt")
	var renderErr *model.RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
	if base := filepath.Base(renderErr.Path); !strings.HasPrefix(base, fmt.Sprintf("%d_Q4_", run.ID)) || filepath.Ext(base) != ".txt" {
		t.Errorf("unexpected path %q", renderErr.Path)
	}

	results, err := s.ListResults(context.Background(), run.ID)
	if err != nil || len(results) != 2 {
		t.Errorf("results must be untouched, got %d (%v)", len(results), err)
	}
}

func TestBuild_DefaultFormatIsPDF(t *testing.T) {
	s := openStore(t)
	run := seedRun(t, s, model.RunCompleted)
	b := NewBuilder(s, t.TempDir(), testLogger())

	r, err := b.Build(context.Background(), run.ID, "Q4", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Format != "pdf" || filepath.Ext(r.OutputPath) != ".pdf" {
		t.Errorf("expected pdf output, got format %q path %q", r.Format, r.OutputPath)
	}

	data, err := os.ReadFile(r.OutputPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) || !bytes.Contains(data, []byte("%%EOF")) {
		t.Error("output is not a PDF")
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("pdf reader: %v", err)
	}
	if reader.NumPage() != 1 {
		t.Errorf("expected 1 page, got %d", reader.NumPage())
	}
}

func TestBuild_DOCXReadsBack(t *testing.T) {
	s := openStore(t)
	run := seedRun(t, s, model.RunCompleted)
	b := NewBuilder(s, t.TempDir(), testLogger())

	r, err := b.Build(context.Background(), run.ID, "Q4 Compliance", "docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := os.Open(r.OutputPath)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()

	tree, err := (&parser.DOCXParser{}).Parse(f, filepath.Base(r.OutputPath))
	if err != nil {
		t.Fatalf("parse docx: %v", err)
	}
	if len(tree.Children) == 0 || tree.Children[0].Text != "Compliance Report" {
		t.Fatalf("unexpected first paragraph in %+v", tree.Children)
	}
	var found bool
	for _, n := range tree.Children {
		if n.Text == "- Q4 call report (page 2, paragraph 1, confidence: medium)" {
			found = true
		}
	}
	if !found {
		t.Error("citation paragraph missing from docx")
	}
}

func TestBuild_HTML(t *testing.T) {
	s := openStore(t)
	run := seedRun(t, s, model.RunCompleted)
	b := NewBuilder(s, t.TempDir(), testLogger())

	r, err := b.Build(context.Background(), run.ID, "Q4 <draft>", "html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(r.OutputPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	html := string(data)
	for _, want := range []string{
		"<title>Q4 &lt;draft&gt;</title>",
		"<h1>Compliance Report</h1>",
		"<li>Q4 call report (page 2, paragraph 1, confidence: medium)</li>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in:\n%s", want, html)
		}
	}
}

func TestBuild_SameTitleKeepsEachRunsFile(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	b := NewBuilder(s, t.TempDir(), testLogger())

	first := seedRun(t, s, model.RunCompleted)
	r1, err := b.Build(ctx, first.ID, "Q4 report", "txt")
	if err != nil {
		t.Fatalf("first build: %v", err)
	}

	second, err := s.CreateRun(ctx, 2, "FFIEC051")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := s.TransitionRun(ctx, second.ID, model.RunPending, model.RunRunning); err != nil {
		t.Fatalf("start run: %v", err)
	}
	res := &model.Result{RunID: second.ID, RequirementID: "liquidity", Status: model.StatusFail, Rationale: "Requirement: liquidity"}
	if err := s.SaveResult(ctx, res, nil); err != nil {
		t.Fatalf("save result: %v", err)
	}
	if err := s.TransitionRun(ctx, second.ID, model.RunRunning, model.RunCompleted); err != nil {
		t.Fatalf("complete run: %v", err)
	}
	r2, err := b.Build(ctx, second.ID, "Q4 report", "txt")
	if err != nil {
		t.Fatalf("second build: %v", err)
	}

	if r1.OutputPath == r2.OutputPath {
		t.Fatalf("reports share %q", r1.OutputPath)
	}
	for _, r := range []*model.Report{r1, r2} {
		data, err := os.ReadFile(r.OutputPath)
		if err != nil {
			t.Fatalf("read report %d: %v", r.ID, err)
		}
		if string(data) != r.Content {
			t.Errorf("report %d: file does not match its stored content:\n%s", r.ID, data)
		}
	}
	if strings.Contains(r1.Content, "Requirement: liquidity\n") {
		t.Errorf("report %d picked up another run's results", r1.ID)
	}
}

func TestOutputName(t *testing.T) {
	got := OutputName(3, "Q4 Compliance", "0123456789abcdef0123", "pdf")
	if got != "3_Q4_Compliance_0123456789ab.pdf" {
		t.Errorf("expected %q, got %q", "3_Q4_Compliance_0123456789ab.pdf", got)
	}
}

func TestFilename(t *testing.T) {
	tests := map[string]string{
		"Q4 Compliance": "Q4_Compliance",
		"a/b\\c":        "a_b_c",
		"..":            "report",
	}
	for in, want := range tests {
		if got := Filename(in); got != want {
			t.Errorf("Filename(%q): expected %q, got %q", in, want, got)
		}
	}
}
