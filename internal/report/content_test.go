package report

import (
	"context"
	"errors"
	"testing"

	"github.com/dgallion1/docaudit/internal/model"
)

type fakeSource struct {
	results   []model.Result
	citations map[int64][]model.Citation
	err       error
}

func (f *fakeSource) GetRun(_ context.Context, id int64) (*model.Run, error) {
	return &model.Run{ID: id, Status: model.RunCompleted}, nil
}

func (f *fakeSource) ListResults(context.Context, int64) ([]model.Result, error) {
	return f.results, f.err
}

func (f *fakeSource) ListCitations(_ context.Context, resultID int64) ([]model.Citation, error) {
	return f.citations[resultID], nil
}

func citation(title string, page, para *int, conf model.Confidence) model.Citation {
	return model.Citation{Evidence: model.Evidence{Confidence: conf}, DocumentTitle: title, Page: page, Paragraph: para}
}

func TestBuildContent(t *testing.T) {
	src := &fakeSource{
		results: []model.Result{
			{ID: 1, RequirementID: "total assets", Status: model.StatusPass, Rationale: "Balance sheet supports it."},
			{ID: 2, RequirementID: "liquidity coverage", Status: model.StatusFail, Rationale: "Requirement: liquidity coverage\nEvidence missing."},
		},
		citations: map[int64][]model.Citation{
			1: {
				citation("Q4 call report", nil, model.IntPtr(2), model.ConfidenceHigh),
				citation("Annual filing", model.IntPtr(3), nil, model.ConfidenceLow),
			},
		},
	}

	got, err := BuildContent(context.Background(), src, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Compliance Report\n" +
		"=================\n" +
		"Requirement: total assets\n" +
		"Status: pass\n" +
		"Rationale:\n" +
		"Balance sheet supports it.\n" +
		"Evidence:\n" +
		"- Q4 call report (page n/a, paragraph 2, confidence: high)\n" +
		"- Annual filing (page 3, paragraph n/a, confidence: low)\n" +
		"\n" +
		"Requirement: liquidity coverage\n" +
		"Status: fail\n" +
		"Rationale:\n" +
		"Requirement: liquidity coverage\n" +
		"Evidence missing.\n" +
		"Evidence:\n" +
		"- No evidence found\n"
	if got != want {
		t.Errorf("content mismatch\nexpected:\n%s\ngot:\n%s", want, got)
	}
}

func TestBuildContent_NoResults(t *testing.T) {
	got, err := BuildContent(context.Background(), &fakeSource{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Compliance Report\n=================" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestBuildContent_SourceError(t *testing.T) {
	boom := errors.New("database is closed")
	_, err := BuildContent(context.Background(), &fakeSource{err: boom}, 1)
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped source error, got %v", err)
	}
}

func TestFormatCitation_ZeroLocatorIsNA(t *testing.T) {
	got := FormatCitation(citation("Policy", model.IntPtr(0), model.IntPtr(4), model.ConfidenceMedium))
	want := "- Policy (page n/a, paragraph 4, confidence: medium)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
