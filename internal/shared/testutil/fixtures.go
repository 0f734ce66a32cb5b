package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleCSV is a small case table in the countries-aggregated layout.
// Thailand never passes the default confirmed filter, Italy has blank
// recovered/deaths cells on 2020-01-23 and the 2020-01-23 block is
// deliberately out of order.
const SampleCSV = `Date,Country,Confirmed,Recovered,Deaths
2020-01-22,China,548,28,17
2020-01-22,Thailand,2,0,0
2020-01-24,China,920,36,26
2020-01-24,Italy,300,10,5
2020-01-24,US,101,0,0
2020-01-23,China,643,30,18
2020-01-23,Italy,150,,
`

// SampleCountries lists the countries of SampleCSV that survive filtering, in first-appearance order
var SampleCountries = []string{"China", "Italy", "US"}

// WriteSampleCSV writes SampleCSV into a temp dir and returns its path
func WriteSampleCSV(t *testing.T) string {
	t.Helper()
	return WriteFile(t, "countries-aggregated.csv", SampleCSV)
}

// WriteFile writes content into a temp dir and returns its path
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", name, err)
	}
	return path
}
