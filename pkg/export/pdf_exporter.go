package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Column widths in mm, tuned for the three roster columns on A4 portrait.
const (
	studentColWidth    = 90.0
	statusColWidth     = 40.0
	registeredColWidth = 60.0
)

// PDFExporter renders course rosters as a tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a one-table PDF document titled after the course.
func (e *PDFExporter) Render(rows []RosterRow, title string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(studentColWidth, 8, "Student", "1", 0, "C", false, 0, "")
	pdf.CellFormat(statusColWidth, 8, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(registeredColWidth, 8, "Registered At", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		pdf.CellFormat(studentColWidth, 7, row.Student, "1", 0, "", false, 0, "")
		pdf.CellFormat(statusColWidth, 7, row.Status, "1", 0, "C", false, 0, "")
		pdf.CellFormat(registeredColWidth, 7, row.RegisteredAt, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render roster pdf: %w", err)
	}
	return buf.Bytes(), nil
}
