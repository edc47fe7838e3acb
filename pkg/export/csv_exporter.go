package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Cell is one flattened timetable slot prepared for export.
type Cell struct {
	Day         string
	Hour        string
	Subject     string
	Teacher     string
	Group       string
	Room        string
	ActivityTag string
}

var headers = []string{"Day", "Hour", "Subject", "Teacher", "Group", "Room", "Type"}

// CSVExporter renders timetable cells into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the timetable cells.
func (e *CSVExporter) Render(cells []Cell) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, cell := range cells {
		record := []string{cell.Day, cell.Hour, cell.Subject, cell.Teacher, cell.Group, cell.Room, cell.ActivityTag}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
