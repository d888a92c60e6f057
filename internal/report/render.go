package report

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/yuin/goldmark"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

// DefaultFormat is used when a request names none.
const DefaultFormat = "pdf"

type renderFunc func(w io.Writer, title, content string) error

type format struct {
	ext         string
	contentType string
	render      renderFunc
}

var formats = map[string]format{
	"pdf":  {"pdf", "application/pdf", renderPDF},
	"docx": {"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", renderDOCX},
	"md":   {"md", "text/markdown; charset=utf-8", renderText},
	"html": {"html", "text/html; charset=utf-8", renderHTML},
	"txt":  {"txt", "text/plain; charset=utf-8", renderText},
}

// Formats lists the supported output formats.
func Formats() []string {
	return []string{"pdf", "docx", "md", "html", "txt"}
}

// ContentType returns the MIME type served for a stored report format.
func ContentType(name string) string {
	if f, ok := formats[name]; ok {
		return f.contentType
	}
	return "application/octet-stream"
}

// The plain-text body is already valid Markdown: a setext heading followed
// by paragraphs and bullet lists.
func renderText(w io.Writer, _ string, content string) error {
	_, err := io.WriteString(w, content)
	return err
}

var markdown = goldmark.New(goldmark.WithRendererOptions(ghtml.WithHardWraps()))

func renderHTML(w io.Writer, title, content string) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(content), &body); err != nil {
		return fmt.Errorf("convert markdown: %w", err)
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(title), body.String())
	return err
}

func renderDOCX(w io.Writer, _ string, content string) error {
	doc := docx.New().WithDefaultTheme()
	for _, line := range strings.Split(content, "\n") {
		p := doc.AddParagraph()
		if line != "" {
			p.AddText(line)
		}
	}
	_, err := doc.WriteTo(w)
	return err
}
