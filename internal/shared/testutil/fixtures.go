package testutil

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
)

// SampleHeader is the header of the survey fixture used across packages
var SampleHeader = []string{"조사구분", "지목", "시료명", "Cd", "Pb", "TPH"}

// SampleRows holds six records:
//   - S1 has two overview samples in 1지역
//   - S2 is an overview sample in 2지역 with a blank TPH cell
//   - S3 is a detailed sample in 3지역 above every concern standard
//   - S4 is a detailed sample in 1지역 with a non-detect Cd cell
//   - S5 has an unrecognized phase label and is never aggregated
var SampleRows = [][]string{
	{"개황조사", "1지역", "S1", "5", "250", "100"},
	{"개황조사", "1지역", "S1", "2", "100", "600"},
	{"개황조사", "2지역", "S2", "0.5", "50", ""},
	{"정밀조사", "3지역", "S3", "70", "1,000", "3000"},
	{"정밀조사", "1지역", "S4", "ND", "20", "10"},
	{"재조사", "1지역", "S5", "100", "1", "1"},
}

// SampleStandardsCSV is a standards table matching SampleHeader's items
const SampleStandardsCSV = "지역,기준,Cd,Pb,TPH\n" +
	"1지역,우려기준40%,1.6,80,200\n" +
	"1지역,우려기준,4,200,500\n" +
	"2지역,우려기준40%,4,160,320\n" +
	"2지역,우려기준,10,400,800\n" +
	"3지역,우려기준40%,24,280,800\n" +
	"3지역,우려기준,60,700,2000\n"

// CSVBytes encodes header and rows as UTF-8 CSV with a byte order mark
func CSVBytes(t testing.TB, header []string, rows [][]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	return buf.Bytes()
}

// WriteFile writes content under dir and returns the path
func WriteFile(t testing.TB, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// WriteCSV writes a UTF-8 CSV fixture and returns its path
func WriteCSV(t testing.TB, dir, name string, header []string, rows [][]string) string {
	t.Helper()
	return WriteFile(t, dir, name, CSVBytes(t, header, rows))
}

// WriteCP949CSV writes a CSV fixture in the legacy Korean code page
func WriteCP949CSV(t testing.TB, dir, name string, header []string, rows [][]string) string {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))

	encoded, err := korean.EUCKR.NewEncoder().Bytes(buf.Bytes())
	require.NoError(t, err)
	return WriteFile(t, dir, name, encoded)
}

// WriteXLSX writes header and rows to the first sheet of a new workbook
func WriteXLSX(t testing.TB, dir, name string, header []string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	all := append([][]string{header}, rows...)
	for r, row := range all {
		for c, v := range row {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cellName, v))
		}
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}
