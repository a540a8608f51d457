// Package dataprocessing reads soil survey and standards sources into
// rectangular tables for the exceedance engine.
//
// # Sources
//
//   - CSV: UTF-8 with or without a byte order mark; files that are not valid
//     UTF-8 are decoded as cp949, the legacy Korean code page many survey
//     spreadsheets are still exported in
//   - XLSX: the first worksheet, read with excelize
//
// # Cleanup
//
// Clean normalizes header cells (trimmed, line breaks removed, blanks named
// "Unnamed: N", duplicates suffixed ".1") and pads ragged rows so that every
// row has one cell per column. Fully blank rows are dropped.
//
// # Usage
//
//	src, err := dataprocessing.ReadTable("uploads/20240131_093000_survey.csv")
//	if err != nil {
//	    return err
//	}
//	ds, err := exceedance.Classify(src.Table, tax)
//
// Profile and Preview back the dataset preview endpoint.
package dataprocessing
