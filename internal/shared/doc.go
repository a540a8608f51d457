// Package shared holds code used by more than one layer of the service that
// does not belong to any of them.
//
// The testutil subpackage provides a capturing slog handler and survey
// fixtures (CSV, legacy-encoded CSV and XLSX writers plus a matching
// standards table) for package tests:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteCSV(t, t.TempDir(), "survey.csv",
//	        testutil.SampleHeader, testutil.SampleRows)
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
