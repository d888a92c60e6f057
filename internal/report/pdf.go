package report

import (
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// A4 portrait, 10pt Helvetica, 5mm leading.
const (
	pdfFontSize   = 10
	pdfLineHeight = 5
)

// Fixed document dates keep output byte-identical across builds.
var pdfEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// renderPDF writes content one line per cell, wrapped to the page width.
// Text is encoded as cp1252 so currency symbols such as € survive.
func renderPDF(w io.Writer, title string, content string) error {
	doc := newPDF(title)
	toWinAnsi := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			doc.Ln(pdfLineHeight)
			continue
		}
		doc.MultiCell(0, pdfLineHeight, toWinAnsi(line), "", "L", false)
	}
	return doc.Output(w)
}

func newPDF(title string) *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCreationDate(pdfEpoch)
	doc.SetModificationDate(pdfEpoch)
	doc.SetCatalogSort(true)
	doc.SetTitle(title, true)
	doc.SetCreator("docaudit", true)
	doc.SetFont("Helvetica", "", pdfFontSize)
	return doc
}
