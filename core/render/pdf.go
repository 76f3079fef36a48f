// PDF renderer.
// Converts Markdown into a styled PDF using gofpdf. Headings, paragraphs,
// code blocks and lists are laid out line by line; bold spans are set in
// the bold face. Images are not rendered.

package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/mdmend/core"
	"github.com/gaurav-prasanna/mdmend/core/boldspace"
)

const (
	bodyFont = "Helvetica"
	bodySize = 10.0
	lineH    = 5.0
)

var (
	inlineItalic = regexp.MustCompile(`(^|\s)\*([^*]+)\*(\s|$)`)
	inlineLink   = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
	headingSizes = map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}
)

// PDFRenderer renders Markdown content as a PDF document.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render converts Markdown into PDF bytes.
func (r *PDFRenderer) Render(markdown string, meta core.PageMetadata) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	// Core fonts are cp1252; translate UTF-8 input before drawing.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if meta.Title != "" {
		pdf.SetFont(bodyFont, "B", 18)
		pdf.MultiCell(0, 8, tr(meta.Title), "", "L", false)
		pdf.Ln(4)
	}
	if meta.URL != "" {
		pdf.SetFont(bodyFont, "I", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(0, 5, tr("Source: "+meta.URL), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(6)
	}

	inCode := false
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inCode = !inCode
			pdf.Ln(2)
			continue
		}
		if inCode {
			pdf.SetFont("Courier", "", 9)
			pdf.SetFillColor(245, 245, 245)
			pdf.MultiCell(0, 4.5, tr(line), "", "L", true)
			continue
		}

		switch {
		case trimmed == "":
			pdf.Ln(3)
		case strings.HasPrefix(trimmed, "#"):
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			renderHeading(pdf, tr, strings.TrimSpace(trimmed[level:]), level)
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			writeRich(pdf, tr, "• "+strings.TrimSpace(trimmed[2:]))
		default:
			writeRich(pdf, tr, trimmed)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("laying out PDF: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func renderHeading(pdf *gofpdf.Fpdf, tr func(string) string, text string, level int) {
	size, ok := headingSizes[level]
	if !ok {
		size = bodySize
	}
	pdf.Ln(4)
	pdf.SetFont(bodyFont, "B", size)
	pdf.MultiCell(0, size*0.6, tr(stripBoldMarkers(cleanInline(text))), "", "L", false)
	pdf.Ln(2)
}

// writeRich writes one line of flowing text, switching to the bold face
// for every well-formed bold span.
func writeRich(pdf *gofpdf.Fpdf, tr func(string) string, line string) {
	for _, seg := range segments(line) {
		style := ""
		if seg.bold {
			style = "B"
		}
		pdf.SetFont(bodyFont, style, bodySize)
		pdf.Write(lineH, tr(cleanInline(seg.text)))
	}
	pdf.Ln(lineH)
}

type segment struct {
	text string
	bold bool
}

// segments splits line into alternating plain and bold runs.
func segments(line string) []segment {
	var out []segment
	pos := 0
	for _, sp := range boldspace.Spans(line) {
		if sp.Start > pos {
			out = append(out, segment{text: line[pos:sp.Start]})
		}
		out = append(out, segment{text: sp.Text, bold: true})
		pos = sp.End
	}
	if pos < len(line) {
		out = append(out, segment{text: line[pos:]})
	}
	return out
}

// cleanInline strips italic, code and link syntax. Surrounding spaces are
// kept so adjacent runs stay separated.
func cleanInline(text string) string {
	text = inlineItalic.ReplaceAllString(text, "$1$2$3")
	text = codeRegex.ReplaceAllString(text, "$1")
	text = inlineLink.ReplaceAllString(text, "$1")
	return text
}

func stripBoldMarkers(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	return strings.ReplaceAll(text, "__", "")
}
