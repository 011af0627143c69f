package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidthLandscape = 277.0
	minColumnWidth     = 14.0
	rowHeight          = 7.0
)

// PDFExporter renders datasets into a landscape table. Rows sharing the value of
// GroupBy are separated by a thicker rule, which keeps one weekday per block.
type PDFExporter struct {
	GroupBy string
	now     func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// Render creates a PDF document with a title, generation stamp and table body. The
// header row repeats on every page.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	if title == "" {
		title = data.Title
	}
	now := e.now
	if now == nil {
		now = time.Now
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	widths := columnWidths(data)

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, "Generated "+now().UTC().Format(time.RFC3339), "", 1, "C", false, 0, "")
	pdf.Ln(3)
	header()

	previous := ""
	for i, row := range data.Rows {
		if e.GroupBy != "" {
			current := row[e.GroupBy]
			if i > 0 && current != previous {
				x, y := pdf.GetXY()
				pdf.SetLineWidth(0.6)
				pdf.Line(x, y, x+sum(widths), y)
				pdf.SetLineWidth(0.2)
			}
			previous = current
		}
		for j, h := range data.Headers {
			pdf.CellFormat(widths[j], rowHeight, tr(fit(pdf, row[h], widths[j])), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths shares the printable width in proportion to the longest value per column.
func columnWidths(data Dataset) []float64 {
	weights := make([]float64, len(data.Headers))
	total := 0.0
	for i, h := range data.Headers {
		longest := len(h)
		for _, v := range data.Column(h) {
			if len(v) > longest {
				longest = len(v)
			}
		}
		weights[i] = float64(longest)
		total += weights[i]
	}
	widths := make([]float64, len(weights))
	for i, w := range weights {
		widths[i] = pageWidthLandscape * w / total
		if widths[i] < minColumnWidth {
			widths[i] = minColumnWidth
		}
	}
	if s := sum(widths); s > pageWidthLandscape {
		for i := range widths {
			widths[i] *= pageWidthLandscape / s
		}
	}
	return widths
}

// fit truncates text that would overflow its cell.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}
