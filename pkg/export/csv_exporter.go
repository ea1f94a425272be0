package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

var csvHeaders = []string{"staff_name", "day_of_week", "date", "status", "start_time", "end_time", "label"}

// CSVExporter renders records as one CSV line per staff/day.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV bytes. Absent times are left empty.
func (e *CSVExporter) Render(records []Record) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, rec := range records {
		row := []string{rec.Staff, rec.Day, rec.Date, rec.Status(), deref(rec.StartTime), deref(rec.EndTime), rec.Label()}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
