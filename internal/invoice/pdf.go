package invoice

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin = 20.0
	lineHeight = 8.0
	labelWidth = 45.0
)

// PDFRenderer renders a Layout as a single A4 page.
type PDFRenderer struct {
	font string
}

// NewPDFRenderer creates a PDFRenderer using a core font.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{font: "Helvetica"}
}

// Render implements Renderer.
func (r *PDFRenderer) Render(l Layout) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetTitle(l.Title, true)
	pdf.SetCreator(l.Shop.Name, true)
	pdf.SetCreationDate(l.IssuedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	width, _ := pdf.GetPageSize()
	content := width - 2*pageMargin

	if l.Shop.Name != "" {
		pdf.SetFont(r.font, "B", 14)
		pdf.CellFormat(content, lineHeight, tr(l.Shop.Name), "", 1, "C", false, 0, "")
		pdf.SetFont(r.font, "", 10)
		for _, line := range []string{l.Shop.Address, l.Shop.Phone} {
			if line != "" {
				pdf.CellFormat(content, 5, tr(line), "", 1, "C", false, 0, "")
			}
		}
		pdf.Ln(6)
	}

	pdf.SetFont(r.font, "B", 20)
	pdf.CellFormat(content, 12, tr(l.Title), "B", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(r.font, "", 10)
	pdf.CellFormat(content/2, 6, tr("No. "+l.InvoiceNo), "", 0, "L", false, 0, "")
	pdf.CellFormat(content/2, 6, l.IssuedAt.Format("2006-01-02"), "", 1, "R", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Customer", l.CustomerName},
		{"Phone", l.Phone},
		{"Device", l.Device},
		{"Status", l.Status},
	}
	for _, row := range rows {
		pdf.SetFont(r.font, "B", 12)
		pdf.CellFormat(labelWidth, lineHeight, tr(row[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont(r.font, "", 12)
		pdf.CellFormat(content-labelWidth, lineHeight, tr(row[1]), "", 1, "L", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont(r.font, "B", 12)
	pdf.CellFormat(content, lineHeight, "Problem:", "", 1, "L", false, 0, "")
	pdf.SetFont(r.font, "", 12)
	pdf.MultiCell(content, 6, tr(l.Problem), "1", "L", false)

	pdf.Ln(12)
	pdf.SetFont(r.font, "I", 12)
	pdf.CellFormat(content, lineHeight, tr(l.Closing), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
