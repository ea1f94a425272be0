package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func sampleRecords() []Record {
	return []Record{
		{Staff: "Bea", Day: "Sunday", Date: "2025-01-05", IsWorking: boolPtr(true), StartTime: strPtr("10:00"), EndTime: strPtr("18:00")},
		{Staff: "Bea", Day: "Monday", Date: "2025-01-06", IsWorking: boolPtr(false)},
		{Staff: "Bea", Day: "Tuesday", Date: "2025-01-07", IsWorking: boolPtr(true)},
		{Staff: "Bea", Day: "Wednesday", Date: "2025-01-08"},
	}
}

func TestRecordLabel(t *testing.T) {
	records := sampleRecords()
	assert.Equal(t, "10:00-18:00", records[0].Label())
	assert.Equal(t, LabelOff, records[1].Label())
	assert.Equal(t, LabelNotSet, records[2].Label())
	assert.Equal(t, LabelNotSet, records[3].Label())
	assert.Equal(t, "not_set", records[3].Status())
}

func TestCSVExporterKeepsGaps(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleRecords())
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, csvHeaders, rows[0])
	assert.Equal(t, []string{"Bea", "Wednesday", "2025-01-08", "not_set", "", "", "Not Set"}, rows[4])
}

func TestPDFExporterRendersGrid(t *testing.T) {
	columns := []Column{{Day: "Sunday", Date: "2025-01-05"}, {Day: "Monday", Date: "2025-01-06"}}
	out, err := NewPDFExporter().Render("Sun 05 Jan - Sat 11 Jan 2025", columns, sampleRecords())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRequiresColumns(t *testing.T) {
	_, err := NewPDFExporter().Render("x", nil, nil)
	assert.Error(t, err)
}
