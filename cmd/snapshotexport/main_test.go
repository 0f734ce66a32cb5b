package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"covidpulse/internal/exporter"
	"covidpulse/internal/shared/testutil"
)

func runExport(t *testing.T, args ...string) (*exporter.Result, string) {
	t.Helper()
	t.Setenv("COVIDPULSE_LOGGING_OUTPUT", "console")

	base := t.TempDir()
	args = append([]string{"-base", base, "-source", testutil.WriteSampleCSV(t)}, args...)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), args, &out))

	var res exporter.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	return &res, base
}

func TestRun_LongCSV(t *testing.T) {
	res, base := runExport(t)

	assert.Equal(t, exporter.ModeLong, res.Mode)
	assert.Equal(t, 3, res.Dates)
	assert.Equal(t, 6, res.Rows)
	require.Len(t, res.Files, 1)
	assert.Equal(t, filepath.Join(base, "data", "exports", "snapshots.csv"), res.Files[0])

	content, err := os.ReadFile(res.Files[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "Date,Country,Confirmed,Recovered,Deaths,Radius,RecoveredRatio")
	assert.Contains(t, string(content), "2020-01-23,Italy,150,0,0")
	assert.NotContains(t, string(content), "Thailand")
}

func TestRun_PerDate(t *testing.T) {
	res, base := runExport(t, "-mode", "dates", "-concurrency", "2")

	assert.Equal(t, exporter.ModeDates, res.Mode)
	require.Len(t, res.Files, 3)
	for _, f := range res.Files {
		assert.Equal(t, filepath.Join(base, "data", "exports", "snapshots"), filepath.Dir(f))
		assert.FileExists(t, f)
	}
}

func TestRun_Workbook(t *testing.T) {
	res, _ := runExport(t, "-mode", "xlsx", "-out", "frames.xlsx")

	require.Len(t, res.Files, 1)
	assert.Equal(t, "frames.xlsx", filepath.Base(res.Files[0]))

	f, err := excelize.OpenFile(res.Files[0])
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"2020-01-22", "2020-01-23", "2020-01-24"}, f.GetSheetList())
}

func TestRun_MinConfirmedOverride(t *testing.T) {
	res, _ := runExport(t, "-min-confirmed", "500")

	// China on every date, nothing else
	assert.Equal(t, 3, res.Dates)
	assert.Equal(t, 3, res.Rows)
}

func TestRun_Errors(t *testing.T) {
	t.Setenv("COVIDPULSE_LOGGING_OUTPUT", "console")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown mode", []string{"-mode", "parquet"}},
		{"unknown flag", []string{"-bogus"}},
		{"missing source", []string{"-base", t.TempDir(), "-source", filepath.Join(t.TempDir(), "missing.csv")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(context.Background(), tt.args, &out))
			assert.Empty(t, out.String())
		})
	}
}

func TestDefaultOutput(t *testing.T) {
	assert.Equal(t, "snapshots.csv", defaultOutput(exporter.ModeLong))
	assert.Equal(t, "snapshots", defaultOutput(exporter.ModeDates))
	assert.Equal(t, "snapshots.xlsx", defaultOutput(exporter.ModeWorkbook))
}
