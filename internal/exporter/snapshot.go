package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"covidpulse/internal/config"
	"covidpulse/internal/dataset"
)

// Mode selects the export layout
type Mode string

const (
	// ModeLong writes every snapshot into one CSV with a Date column
	ModeLong Mode = "long"
	// ModeDates writes one CSV per date
	ModeDates Mode = "dates"
	// ModeWorkbook writes one .xlsx workbook with one sheet per date
	ModeWorkbook Mode = "xlsx"
)

// ErrUnknownMode is returned by ParseMode
var ErrUnknownMode = errors.New("unknown export mode")

// ParseMode parses a mode name
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLong, ModeDates, ModeWorkbook:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Result describes what an export wrote
type Result struct {
	Mode     Mode          `json:"mode"`
	Files    []string      `json:"files"`
	Dates    int           `json:"dates"`
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration"`
}

// SnapshotExporter writes derived snapshots to disk
type SnapshotExporter struct {
	csvWriter   *CSVWriter
	paths       *config.Paths
	logger      *slog.Logger
	concurrency int
}

// NewSnapshotExporter creates an exporter. Concurrency bounds the number of
// per-date files written at once; zero means GOMAXPROCS.
func NewSnapshotExporter(paths *config.Paths, concurrency int, logger *slog.Logger) *SnapshotExporter {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	logger = logger.With(slog.String("component", "exporter"))
	return &SnapshotExporter{
		csvWriter:   NewCSVWriter(paths, logger),
		paths:       paths,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Headers returns the exported column names
func Headers(withDate bool) []string {
	cols := []string{"Country", "Confirmed", "Recovered", "Deaths", "Radius", "RecoveredRatio"}
	if withDate {
		return append([]string{"Date"}, cols...)
	}
	return cols
}

// Export writes ds in the given mode. dest is a file for ModeLong and
// ModeWorkbook and a directory for ModeDates.
func (e *SnapshotExporter) Export(ctx context.Context, ds *dataset.Dataset, mode Mode, dest string) (*Result, error) {
	start := time.Now()

	var (
		files []string
		err   error
	)
	switch mode {
	case ModeLong:
		var path string
		path, err = e.ExportLong(ctx, ds, dest)
		files = []string{path}
	case ModeDates:
		files, err = e.ExportPerDate(ctx, ds, dest)
	case ModeWorkbook:
		var path string
		path, err = e.ExportWorkbook(ctx, ds, dest)
		files = []string{path}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		Mode:     mode,
		Files:    files,
		Dates:    ds.Len(),
		Rows:     countRows(ds),
		Duration: time.Since(start),
	}
	e.logger.InfoContext(ctx, "Snapshots exported",
		slog.String("mode", string(mode)),
		slog.Int("files", len(files)),
		slog.Int("dates", res.Dates),
		slog.Int("rows", res.Rows),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// ExportLong writes every snapshot, dates ascending, into a single CSV
func (e *SnapshotExporter) ExportLong(ctx context.Context, ds *dataset.Dataset, path string) (string, error) {
	stream, err := e.csvWriter.CreateStreamWriter(path, Headers(true), false)
	if err != nil {
		return "", err
	}

	for _, date := range ds.Dates {
		if err := ctx.Err(); err != nil {
			stream.Close()
			return "", err
		}
		snap := ds.Snapshots[date]
		for i := 0; i < snap.Len(); i++ {
			if err := stream.WriteRecord(recordRow(snap.Row(date, i), true)); err != nil {
				stream.Close()
				return "", fmt.Errorf("failed to write record: %w", err)
			}
		}
	}

	if err := stream.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return stream.Path(), nil
}

// ExportPerDate writes snapshot_YYYY-MM-DD.csv for every date into dir.
// Files are written concurrently; the returned paths follow date order.
func (e *SnapshotExporter) ExportPerDate(ctx context.Context, ds *dataset.Dataset, dir string) ([]string, error) {
	paths := make([]string, len(ds.Dates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, date := range ds.Dates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path, err := e.writeDate(filepath.Join(dir, DateFileName(date)), date, ds.Snapshots[date])
			if err != nil {
				return fmt.Errorf("failed to write snapshot for %s: %w", date, err)
			}
			paths[i] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (e *SnapshotExporter) writeDate(path string, date dataset.DateKey, snap dataset.ColumnData) (string, error) {
	records := make([][]string, 0, snap.Len())
	for i := 0; i < snap.Len(); i++ {
		records = append(records, recordRow(snap.Row(date, i), false))
	}
	if err := e.csvWriter.WriteCSV(path, WriteOptions{
		Headers:   Headers(false),
		Records:   records,
		BOMPrefix: true,
	}); err != nil {
		return "", err
	}
	return e.csvWriter.resolvePath(path), nil
}

// ExportWorkbook writes one sheet per date, named YYYY-MM-DD
func (e *SnapshotExporter) ExportWorkbook(ctx context.Context, ds *dataset.Dataset, path string) (string, error) {
	fullPath := e.csvWriter.resolvePath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	headers := Headers(false)
	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}

	for i, date := range ds.Dates {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		sheet := date.String()
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}

		if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
			return "", err
		}

		snap := ds.Snapshots[date]
		for r := 0; r < snap.Len(); r++ {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return "", err
			}
			row := []interface{}{
				snap.Country[r],
				snap.Confirmed[r],
				snap.Recovered[r],
				snap.Deaths[r],
				snap.Radius[r],
				snap.RecoveredRatio[r],
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return "", fmt.Errorf("failed to write row %d of %s: %w", r, sheet, err)
			}
		}
	}

	if len(ds.Dates) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return "", err
		}
	}

	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return fullPath, nil
}

// DateFileName is the per-date CSV name
func DateFileName(date dataset.DateKey) string {
	return fmt.Sprintf("snapshot_%s.csv", date)
}

func recordRow(r dataset.Record, withDate bool) []string {
	row := make([]string, 0, 7)
	if withDate {
		row = append(row, r.Date.String())
	}
	return append(row,
		r.Country,
		formatInt(r.Confirmed),
		formatInt(r.Recovered),
		formatInt(r.Deaths),
		formatFloat(r.Radius),
		formatFloat(r.RecoveredRatio),
	)
}

func countRows(ds *dataset.Dataset) int {
	n := 0
	for _, snap := range ds.Snapshots {
		n += snap.Len()
	}
	return n
}
