// Package report renders a completed run's stored results into a
// citation-annotated document.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/docaudit/internal/model"
)

// Source reads the committed rows a report is built from.
type Source interface {
	GetRun(ctx context.Context, id int64) (*model.Run, error)
	ListResults(ctx context.Context, runID int64) ([]model.Result, error)
	ListCitations(ctx context.Context, resultID int64) ([]model.Citation, error)
}

const (
	heading          = "Compliance Report"
	headingUnderline = "================="
	noEvidence       = "- No evidence found"
)

// BuildContent produces the plain-text body of a run's report. The output
// depends only on stored rows, so repeated calls yield identical bytes.
func BuildContent(ctx context.Context, src Source, runID int64) (string, error) {
	results, err := src.ListResults(ctx, runID)
	if err != nil {
		return "", fmt.Errorf("list results: %w", err)
	}

	lines := []string{heading, headingUnderline}
	for _, r := range results {
		lines = append(lines,
			"Requirement: "+r.RequirementID,
			"Status: "+string(r.Status),
			"Rationale:",
			r.Rationale,
			"Evidence:",
		)

		cites, err := src.ListCitations(ctx, r.ID)
		if err != nil {
			return "", fmt.Errorf("list citations for result %d: %w", r.ID, err)
		}
		if len(cites) == 0 {
			lines = append(lines, noEvidence)
		}
		for _, c := range cites {
			lines = append(lines, FormatCitation(c))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n"), nil
}

// FormatCitation renders one evidence line, e.g.
// "- Q4 call report (page 3, paragraph n/a, confidence: high)".
func FormatCitation(c model.Citation) string {
	return fmt.Sprintf("- %s (%s, %s, confidence: %s)",
		c.DocumentTitle, locator("page", c.Page), locator("paragraph", c.Paragraph), c.Evidence.Confidence)
}

func locator(name string, n *int) string {
	if n == nil || *n <= 0 {
		return name + " n/a"
	}
	return fmt.Sprintf("%s %d", name, *n)
}
