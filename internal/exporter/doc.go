// Package exporter renders analysis reports as downloadable files.
//
// CSVWriter reproduces the single-sheet download: a UTF-8 file with a byte
// order mark whose rows are the overview table followed by the detailed
// table, told apart by the leading 조사구분 column. XLSXWriter writes one
// sheet per table (개황(A), 정밀(B), 통합). Both use the same columns:
//
//	항목 | {region}_지점수 | {region}_시료수 | {region}_최고 | {region}_{level}_초과지점수 | {region}_{level}_초과시료수
//
// for the regions 1지역, 2지역 and 3지역 and the report's criteria levels.
// A region without any measured value has an empty 최고 cell.
//
// Example usage:
//
//	writer, err := exporter.ForFormat("xlsx")
//	if err != nil {
//		return err
//	}
//	rw.Header().Set("Content-Type", writer.ContentType())
//	err = writer.Write(rw, report)
package exporter
