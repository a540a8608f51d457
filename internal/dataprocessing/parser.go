package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"soilhub/internal/exceedance"
)

// Supported source formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Text encodings recognised in CSV sources
const (
	EncodingUTF8  = "utf-8"
	EncodingCP949 = "cp949"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoHeader is returned when the source has no header row
	ErrNoHeader = errors.New("no header row")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SourceTable is a table read from disk together with how it was read
type SourceTable struct {
	exceedance.Table
	Format   string
	Encoding string
	Sheet    string
	Stats    CleanStats
}

// FormatOf returns the source format implied by the file extension
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadTable reads a survey or standards file by extension. The first row is
// the header; rows are padded or trimmed to the header width.
func ReadTable(path string) (*SourceTable, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	var src *SourceTable
	switch format {
	case FormatCSV:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		src, err = ParseCSV(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	case FormatXLSX:
		src, err = ReadXLSX(path)
		if err != nil {
			return nil, err
		}
	}
	return src, nil
}

// ParseCSV decodes CSV bytes. UTF-8 is tried first (a byte order mark is
// dropped); input that is not valid UTF-8 is decoded as cp949.
func ParseCSV(data []byte) (*SourceTable, error) {
	text, encoding, err := DecodeText(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	table, stats := Clean(records[0], records[1:])
	return &SourceTable{
		Table:    table,
		Format:   FormatCSV,
		Encoding: encoding,
		Stats:    stats,
	}, nil
}

// DecodeText returns data as UTF-8 and the name of the encoding it was in
func DecodeText(data []byte) ([]byte, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, EncodingUTF8, nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), korean.EUCKR.NewDecoder()))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", EncodingCP949, err)
	}
	return decoded, EncodingCP949, nil
}

// ReadXLSX reads the first worksheet of a workbook
func ReadXLSX(path string) (*SourceTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoHeader)
	}
	sheet := sheets[0]

	// Raw values: a number format such as "0.00" must not round measurements.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoHeader)
	}

	table, stats := Clean(rows[0], rows[1:])
	return &SourceTable{
		Table:    table,
		Format:   FormatXLSX,
		Encoding: EncodingUTF8,
		Sheet:    sheet,
		Stats:    stats,
	}, nil
}
