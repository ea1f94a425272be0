package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 277.0
	staffWidth = 45.0
)

// Column is one day heading of the grid.
type Column struct {
	Day  string
	Date string
}

// PDFExporter renders a staff x day grid on a landscape A4 page.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays out one row per staff member, in first-seen order, and one column per day.
func (e *PDFExporter) Render(title string, columns []Column, records []Record) ([]byte, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one day column")
	}

	var staffOrder []string
	cells := make(map[string]map[string]string)
	for _, rec := range records {
		row, ok := cells[rec.Staff]
		if !ok {
			row = make(map[string]string, len(columns))
			cells[rec.Staff] = row
			staffOrder = append(staffOrder, rec.Staff)
		}
		row[rec.Date] = rec.Label()
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	colWidth := (pageWidth - staffWidth) / float64(len(columns))
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(staffWidth, 10, "Staff", "1", 0, "C", true, 0, "")
	for _, col := range columns {
		pdf.CellFormat(colWidth, 10, fmt.Sprintf("%s %s", col.Day[:3], col.Date), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	if len(staffOrder) == 0 {
		pdf.CellFormat(pageWidth, 8, "No staff scheduled", "1", 1, "C", false, 0, "")
	}
	for _, staff := range staffOrder {
		pdf.CellFormat(staffWidth, 8, staff, "1", 0, "", false, 0, "")
		for _, col := range columns {
			label, ok := cells[staff][col.Date]
			if !ok {
				label = LabelNotSet
			}
			fill := label == LabelOff
			if fill {
				pdf.SetFillColor(245, 222, 222)
			}
			pdf.CellFormat(colWidth, 8, label, "1", 0, "C", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
