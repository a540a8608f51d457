package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"soilhub/internal/exceedance"
)

// utf8BOM lets spreadsheet applications detect UTF-8
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes the overview rows followed by the detailed rows, each
// tagged with its phase in the leading 조사구분 column
type CSVWriter struct{}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// Format implements Writer
func (w *CSVWriter) Format() string { return FormatCSV }

// ContentType implements Writer
func (w *CSVWriter) ContentType() string { return "text/csv; charset=utf-8" }

// Write implements Writer
func (w *CSVWriter) Write(out io.Writer, r *exceedance.PhaseReport) error {
	if _, err := out.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(out)

	header := append([]string{PhaseColumn}, Header(r.Levels)...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, section := range Sections(r, false) {
		for i, row := range section.Table {
			record := append([]string{section.Label}, Record(row, r.Levels)...)
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write %s record %d: %w", section.Label, i, err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}
