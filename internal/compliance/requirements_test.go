package compliance

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dgallion1/docaudit/internal/model"
)

func TestLoadRequirements(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		reportType string
		reqs       []string
	}{
		{
			name:  "bare list",
			input: "- total assets\n- tier 1 capital\n",
			reqs:  []string{"total assets", "tier 1 capital"},
		},
		{
			name:       "mapping",
			input:      "report_type: FFIEC051\nrequirements:\n  - total assets\n  - past due loans\n",
			reportType: "FFIEC051",
			reqs:       []string{"total assets", "past due loans"},
		},
		{
			name:       "json",
			input:      `{"report_type": "FR Y-9C", "requirements": ["total assets"]}`,
			reportType: "FR Y-9C",
			reqs:       []string{"total assets"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf, err := LoadRequirements(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rf.ReportType != tt.reportType {
				t.Errorf("expected report type %q, got %q", tt.reportType, rf.ReportType)
			}
			if diff := cmp.Diff(tt.reqs, rf.Requirements); diff != "" {
				t.Errorf("requirements mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadRequirements_Rejects(t *testing.T) {
	for name, input := range map[string]string{
		"empty file":   "",
		"empty list":   "[]\n",
		"scalar":       "total assets\n",
		"no entries":   "report_type: FFIEC051\n",
		"wrong shapes": "requirements: {a: b}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRequirements(strings.NewReader(input))
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRequirementFile_Request(t *testing.T) {
	rf := &RequirementFile{ReportType: "FFIEC051", Requirements: []string{"total assets"}}

	if got := rf.Request(3, "").ReportType; got != "FFIEC051" {
		t.Errorf("expected file report type, got %q", got)
	}
	req := rf.Request(3, "FR Y-9C")
	if req.ReportType != "FR Y-9C" || req.TenantID != 3 {
		t.Errorf("unexpected request %+v", req)
	}
}
