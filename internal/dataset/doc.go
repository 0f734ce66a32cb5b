// Package dataset loads the aggregated per-country case table and reshapes it
// into one columnar snapshot per date.
//
// The input is a CSV file, an .xlsx workbook or a CSV served over HTTP with the
// columns Date, Country, Confirmed, Recovered and Deaths. Rows at or below the
// confirmed-case threshold are dropped, every remaining row gets a bubble
// Radius derived from its deaths and a RecoveredRatio, and the rows are grouped
// by date:
//
//	ds, err := dataset.Load(ctx, "data/countries-aggregated.csv", dataset.Options{MinConfirmed: 100})
//	date, frame, err := ds.At(0)
//
// Snapshots never carry the Date column; the date is the snapshot's key.
package dataset
