package exporter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"soilhub/internal/exceedance"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrUnknownFormat is returned by ForFormat for formats without a writer
var ErrUnknownFormat = errors.New("unknown export format")

// Writer renders a PhaseReport in one file format
type Writer interface {
	Format() string
	ContentType() string
	Write(out io.Writer, r *exceedance.PhaseReport) error
}

// ForFormat returns the writer for "csv" or "xlsx". An empty format means csv.
func ForFormat(format string) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return NewCSVWriter(), nil
	case FormatXLSX:
		return NewXLSXWriter(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Filename returns the download name of an export, e.g. 20240131_093000_analysis.csv
func Filename(datasetID string, w Writer) string {
	return datasetID + "_analysis." + w.Format()
}

// WriteFile renders r into path, creating parent directories. The file is
// written next to path first and renamed, so a failed export leaves no
// truncated file behind.
func WriteFile(path string, w Writer, r *exceedance.PhaseReport) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = w.Write(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
