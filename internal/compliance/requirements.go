package compliance

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docaudit/internal/model"
)

// RequirementFile is a requirement list on disk. It is either a bare
// sequence of strings or a mapping with report_type and requirements.
// JSON input parses too.
type RequirementFile struct {
	ReportType   string   `yaml:"report_type"`
	Requirements []string `yaml:"requirements"`
}

// LoadRequirements decodes a requirement file. Empty files and empty lists
// are input errors.
func LoadRequirements(r io.Reader) (*RequirementFile, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, model.InputErrorf("requirement file is empty")
		}
		return nil, model.InputErrorf("parse requirement file: %v", err)
	}

	var rf RequirementFile
	doc := &node
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&rf.Requirements); err != nil {
			return nil, model.InputErrorf("decode requirements: %v", err)
		}
	case yaml.MappingNode:
		if err := doc.Decode(&rf); err != nil {
			return nil, model.InputErrorf("decode requirement file: %v", err)
		}
	default:
		return nil, model.InputErrorf("requirement file must be a list or a mapping")
	}

	if len(rf.Requirements) == 0 {
		return nil, model.InputErrorf("requirement file lists no requirements")
	}
	return &rf, nil
}

// Request builds a run request, preferring reportType when it is set.
func (rf *RequirementFile) Request(tenantID int64, reportType string) RunRequest {
	if reportType == "" {
		reportType = rf.ReportType
	}
	return RunRequest{TenantID: tenantID, ReportType: reportType, Requirements: rf.Requirements}
}
