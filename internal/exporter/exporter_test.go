package exporter

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"covidpulse/internal/config"
	"covidpulse/internal/dataset"
	"covidpulse/internal/shared/testutil"
)

func sampleDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load(context.Background(), testutil.WriteSampleCSV(t), dataset.Options{
		MinConfirmed: dataset.DefaultMinConfirmed,
	})
	require.NoError(t, err)
	return ds
}

func newTestExporter(t *testing.T) (*SnapshotExporter, *config.Paths) {
	t.Helper()
	paths := config.NewPaths(t.TempDir())
	logger, _ := testutil.NewTestLogger(t)
	return NewSnapshotExporter(paths, 2, logger), paths
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "long", want: ModeLong},
		{in: " Dates ", want: ModeDates},
		{in: "XLSX", want: ModeWorkbook},
		{in: "parquet", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "3", formatFloat(3))
	assert.Equal(t, "0.5", formatFloat(0.5))
	assert.Equal(t, "650000", formatInt(650000))
}

func TestCSVWriterResolvesIntoExportsDir(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	w := NewCSVWriter(paths, nil)

	require.NoError(t, w.WriteCSV("out.csv", WriteOptions{
		Headers: []string{"a", "b"},
		Records: [][]string{{"1", "2"}},
	}))
	require.NoError(t, w.WriteCSV("out.csv", WriteOptions{
		Records: [][]string{{"3", "4"}},
		Append:  true,
	}))

	rows := readCSVFile(t, filepath.Join(paths.ExportsDir, "out.csv"))
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}, {"3", "4"}}, rows)
}

func TestCSVWriterBOM(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(nil, nil)
	path := filepath.Join(dir, "bom.csv")

	require.NoError(t, w.WriteCSV(path, WriteOptions{Headers: []string{"x"}, BOMPrefix: true}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\ufeff"))
}

func TestExportLong(t *testing.T) {
	exp, paths := newTestExporter(t)
	ds := sampleDataset(t)

	res, err := exp.Export(context.Background(), ds, ModeLong, "long.csv")
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, filepath.Join(paths.ExportsDir, "long.csv"), res.Files[0])
	assert.Equal(t, 3, res.Dates)
	assert.Equal(t, 6, res.Rows)

	rows := readCSVFile(t, res.Files[0])
	require.Len(t, rows, 7)
	assert.Equal(t, Headers(true), rows[0])
	assert.Equal(t, []string{"2020-01-22", "China", "548", "28", "17"}, rows[1][:5])

	// Dates ascending, so the out-of-order 2020-01-23 block comes second
	assert.Equal(t, "2020-01-23", rows[2][0])
	assert.Equal(t, []string{"2020-01-23", "Italy", "150", "0", "0", "3", "0"}, rows[3])
	assert.Equal(t, "2020-01-24", rows[6][0])
}

func TestExportPerDate(t *testing.T) {
	exp, paths := newTestExporter(t)
	ds := sampleDataset(t)

	res, err := exp.Export(context.Background(), ds, ModeDates, "snapshots")
	require.NoError(t, err)
	require.Len(t, res.Files, 3)

	for i, date := range ds.Dates {
		assert.Equal(t, filepath.Join(paths.ExportsDir, "snapshots", DateFileName(date)), res.Files[i])
		rows := readCSVFile(t, res.Files[i])
		assert.Equal(t, Headers(false), rows[0])
		assert.Len(t, rows, ds.Snapshots[date].Len()+1)
	}

	rows := readCSVFile(t, res.Files[2])
	assert.Equal(t, []string{"US", "101", "0", "0", "3", "0"}, rows[3])
}

func TestExportPerDateCancelled(t *testing.T) {
	exp, _ := newTestExporter(t)
	ds := sampleDataset(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exp.ExportPerDate(ctx, ds, "cancelled")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportWorkbook(t *testing.T) {
	exp, _ := newTestExporter(t)
	ds := sampleDataset(t)

	res, err := exp.Export(context.Background(), ds, ModeWorkbook, "book.xlsx")
	require.NoError(t, err)

	f, err := excelize.OpenFile(res.Files[0])
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"2020-01-22", "2020-01-23", "2020-01-24"}, f.GetSheetList())

	rows, err := f.GetRows("2020-01-24")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Headers(false), rows[0])
	assert.Equal(t, "China", rows[1][0])
	assert.Equal(t, "920", rows[1][1])
}

func TestExportUnknownMode(t *testing.T) {
	exp, _ := newTestExporter(t)
	_, err := exp.Export(context.Background(), sampleDataset(t), Mode("pdf"), "x")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
