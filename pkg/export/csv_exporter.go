package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// RosterRow is one enrollment line in an exported course roster.
type RosterRow struct {
	Student      string
	Status       string
	RegisteredAt string
}

var rosterHeaders = []string{"Student", "Status", "Registered At"}

// CSVExporter renders course rosters as CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV bytes for the roster. An empty roster still renders
// the header line.
func (e *CSVExporter) Render(rows []RosterRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(rosterHeaders); err != nil {
		return nil, fmt.Errorf("write roster headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write([]string{row.Student, row.Status, row.RegisteredAt}); err != nil {
			return nil, fmt.Errorf("write roster row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush roster csv: %w", err)
	}
	return buf.Bytes(), nil
}
