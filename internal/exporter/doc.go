// Package exporter writes the derived per-date snapshots to disk.
//
// CSVWriter: Core CSV writing with optional UTF-8 BOM for Excel and a
// streaming writer for large outputs.
//
// SnapshotExporter: Writes a dataset in one of three layouts:
//
//	exp := exporter.NewSnapshotExporter(paths, 0, logger)
//
//	// One long CSV with a Date column
//	res, err := exp.Export(ctx, ds, exporter.ModeLong, "covid_snapshots.csv")
//
//	// snapshot_YYYY-MM-DD.csv per date, written concurrently
//	res, err = exp.Export(ctx, ds, exporter.ModeDates, "snapshots")
//
//	// One workbook, one sheet per date
//	res, err = exp.Export(ctx, ds, exporter.ModeWorkbook, "covid_snapshots.xlsx")
package exporter
