package chunker

import (
	"strings"

	"github.com/dgallion1/docaudit/internal/doctree"
)

// Config controls chunking behavior.
type Config struct {
	MaxParagraphTokens int // Paragraphs above this are split on sentence boundaries.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxParagraphTokens: 1500}
}

// ChunkTree walks a DocTree and produces one chunk per paragraph.
//
// Nodes that carry their own paragraph locator (PDF, DOCX) keep it. Text of
// other nodes is split on blank lines and numbered in document order. An
// oversized paragraph becomes several chunks sharing the same locators.
func ChunkTree(tree *doctree.DocTree, cfg Config) []doctree.Chunk {
	if cfg.MaxParagraphTokens <= 0 {
		cfg.MaxParagraphTokens = 1500
	}

	w := &walker{cfg: cfg}
	for _, child := range tree.Children {
		w.walk(child)
	}
	return w.chunks
}

type walker struct {
	cfg       Config
	chunks    []doctree.Chunk
	paragraph int // last sequential paragraph number handed out
}

func (w *walker) walk(node *doctree.DocNode) {
	if node.Text != "" {
		if node.Paragraph > 0 {
			w.emit(strings.TrimSpace(node.Text), node.Page, node.Paragraph)
		} else {
			for _, para := range splitByParagraphs(node.Text) {
				w.paragraph++
				w.emit(para, node.Page, w.paragraph)
			}
		}
	}

	for _, child := range node.Children {
		w.walk(child)
	}
}

func (w *walker) emit(text string, page, paragraph int) {
	if text == "" {
		return
	}
	parts := []string{text}
	if EstimateTokens(text) > w.cfg.MaxParagraphTokens {
		parts = splitBySentences(text, w.cfg.MaxParagraphTokens)
	}
	for _, part := range parts {
		w.chunks = append(w.chunks, doctree.Chunk{
			Text:      part,
			Index:     len(w.chunks),
			Page:      page,
			Paragraph: paragraph,
		})
	}
}

// splitByParagraphs splits on double-newlines.
func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitBySentences breaks a large paragraph into sentence-based pieces.
func splitBySentences(text string, targetTokens int) []string {
	sentences := splitSentences(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range sentences {
		sentTokens := EstimateTokens(sent)

		if currentTokens+sentTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())
			current.Reset()
			currentTokens = 0
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitSentences does basic sentence splitting.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
