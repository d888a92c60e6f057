package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docaudit/internal/doctree"
)

// TextParser handles plain text files.
type TextParser struct{}

// Parse treats blank-line separated blocks as paragraphs, numbered from 1.
func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, ".txt"),
	}

	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Text:      current.String(),
			Paragraph: len(tree.Children) + 1,
		})
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return tree, nil
}
