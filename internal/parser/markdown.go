package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/docaudit/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

// Parse nests blocks under their headings. Every heading and non-empty
// block is one paragraph, numbered in document order.
func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(strings.TrimSuffix(filename, ".md"), ".markdown"),
	}
	sections := newSectionStack(tree.Title)

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			sections.heading(string(node.Text(src)), node.Level)
		default:
			sections.block(extractText(n, src))
		}
	}

	tree.Children = sections.root.Children
	return tree, nil
}

// sectionStack builds a heading hierarchy while numbering paragraphs.
type sectionStack struct {
	root      *doctree.DocNode
	stack     []sectionEntry
	paragraph int
}

type sectionEntry struct {
	node  *doctree.DocNode
	level int
}

func newSectionStack(title string) *sectionStack {
	root := &doctree.DocNode{Title: title}
	return &sectionStack{root: root, stack: []sectionEntry{{node: root, level: 0}}}
}

// heading opens a section at level; its title is itself a paragraph.
func (s *sectionStack) heading(title string, level int) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	s.paragraph++
	node := &doctree.DocNode{Title: title, Text: title, Paragraph: s.paragraph}

	// Pop until the top is a shallower section.
	for len(s.stack) > 1 && s.stack[len(s.stack)-1].level >= level {
		s.stack = s.stack[:len(s.stack)-1]
	}
	parent := s.stack[len(s.stack)-1].node
	parent.Children = append(parent.Children, node)
	s.stack = append(s.stack, sectionEntry{node: node, level: level})
}

// block adds a paragraph to the current section.
func (s *sectionStack) block(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.paragraph++
	top := s.stack[len(s.stack)-1].node
	top.Children = append(top.Children, &doctree.DocNode{Text: text, Paragraph: s.paragraph})
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
