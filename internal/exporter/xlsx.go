package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"soilhub/internal/exceedance"
)

// XLSXWriter writes one sheet per phase table: 개황(A), 정밀(B) and 통합
type XLSXWriter struct{}

// NewXLSXWriter creates a new workbook writer
func NewXLSXWriter() *XLSXWriter {
	return &XLSXWriter{}
}

// Format implements Writer
func (w *XLSXWriter) Format() string { return FormatXLSX }

// ContentType implements Writer
func (w *XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Write implements Writer
func (w *XLSXWriter) Write(out io.Writer, r *exceedance.PhaseReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	defaultSheet := f.GetSheetName(0)
	header := Header(r.Levels)

	for i, section := range Sections(r, true) {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, section.Label); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", section.Label, err)
			}
		} else if _, err := f.NewSheet(section.Label); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", section.Label, err)
		}

		if err := writeRow(f, section.Label, 1, toAny(header)); err != nil {
			return err
		}
		for j, row := range section.Table {
			if err := writeRow(f, section.Label, j+2, Cells(row, r.Levels)); err != nil {
				return err
			}
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// writeRow sets the cells of one sheet row. nil cells stay empty.
func writeRow(f *excelize.File, sheet string, rowNum int, cells []any) error {
	for c, v := range cells {
		if v == nil {
			continue
		}
		name, err := excelize.CoordinatesToCellName(c+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, name, v); err != nil {
			return fmt.Errorf("failed to set %s!%s: %w", sheet, name, err)
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
