// Package shared holds code used across packages that belongs to no single
// layer. Today that is only the testutil subpackage:
//
//   - BufferedSlogHandler / NewTestLogger capture slog records for assertions
//   - SampleCSV and WriteSampleCSV provide a small case table fixture
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteSampleCSV(t)
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
