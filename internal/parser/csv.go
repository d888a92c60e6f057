package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docaudit/internal/doctree"
)

// CSVParser handles CSV files.
type CSVParser struct{}

// Parse renders each data row as "header: value" pairs. The paragraph
// locator is the record number, counting the header as 1.
func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, ".csv"),
	}
	if len(records) == 0 {
		return tree, nil
	}

	headers := records[0]
	for i, row := range records[1:] {
		var text strings.Builder
		for j, cell := range row {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			if text.Len() > 0 {
				text.WriteString(", ")
			}
			if j < len(headers) && headers[j] != "" {
				text.WriteString(headers[j] + ": ")
			}
			text.WriteString(cell)
		}
		if text.Len() == 0 {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Text:      text.String(),
			Paragraph: i + 2,
		})
	}

	return tree, nil
}
