package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apierrors "covidpulse/internal/errors"
)

// Required column names, matched case-insensitively
const (
	ColumnDate      = "Date"
	ColumnCountry   = "Country"
	ColumnConfirmed = "Confirmed"
	ColumnRecovered = "Recovered"
	ColumnDeaths    = "Deaths"
)

// DefaultMinConfirmed is the confirmed-case threshold rows must exceed
const DefaultMinConfirmed = 100

var requiredColumns = []string{ColumnDate, ColumnCountry, ColumnConfirmed, ColumnRecovered, ColumnDeaths}

var (
	// ErrMissingColumn is returned when the header lacks a required column
	ErrMissingColumn = errors.New("missing required column")

	// ErrUnsupportedSource is returned for files that are neither CSV nor xlsx
	ErrUnsupportedSource = errors.New("unsupported dataset source")
)

// ParseError describes a cell that could not be read
type ParseError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %s: cannot parse %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options controls loading
type Options struct {
	// MinConfirmed is the exclusive lower bound on Confirmed
	MinConfirmed int64
	// HTTPClient fetches URL sources; a client with FetchTimeout is used when nil
	HTTPClient   *http.Client
	FetchTimeout time.Duration
	Logger       *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Load reads source, filters it and builds the per-date snapshots
func Load(ctx context.Context, source string, opts Options) (*Dataset, error) {
	logger := opts.logger().With(slog.String("component", "dataset"))
	start := time.Now()

	records, err := ReadRecords(ctx, source, opts)
	if err != nil {
		return nil, err
	}

	kept := Filter(records, opts.MinConfirmed)
	ds, err := Build(kept)
	if err != nil {
		return nil, fmt.Errorf("build dataset from %s: %w", source, err)
	}

	logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", source),
		slog.Int("rows_read", len(records)),
		slog.Int("rows_kept", len(kept)),
		slog.Int("dates", ds.Len()),
		slog.Int("countries", len(ds.Countries)),
		slog.Duration("duration", time.Since(start)),
	)
	return ds, nil
}

// ReadRecords reads every row of source without filtering or deriving metrics
func ReadRecords(ctx context.Context, source string, opts Options) ([]Record, error) {
	rows, err := readTable(ctx, source, opts)
	if err != nil {
		return nil, err
	}
	return parseRows(rows)
}

func readTable(ctx context.Context, source string, opts Options) ([][]string, error) {
	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"):
		return fetchCSV(ctx, source, opts)
	case strings.HasSuffix(lower, ".xlsx"):
		return readWorkbook(source)
	case strings.HasSuffix(lower, ".csv"), filepath.Ext(lower) == "":
		f, err := os.Open(source)
		if err != nil {
			return nil, apierrors.NewStorageError("failed to open dataset", err).WithContext("source", source)
		}
		defer f.Close()
		return readCSV(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apierrors.NewParsingError("failed to read CSV", err)
	}
	return rows, nil
}

func fetchCSV(ctx context.Context, url string, opts Options) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apierrors.NewNetworkError("failed to build dataset request", err).WithContext("url", url)
	}
	req.Header.Set("Accept", "text/csv, */*")

	opts.logger().DebugContext(ctx, "fetching dataset", slog.String("url", url))

	resp, err := opts.client().Do(req)
	if err != nil {
		return nil, apierrors.NewNetworkError("failed to fetch dataset", err).WithContext("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apierrors.NewNetworkError(
			fmt.Sprintf("unexpected status fetching dataset: %s", resp.Status), nil,
		).WithContext("url", url).WithContext("status", resp.StatusCode)
	}

	return readCSV(resp.Body)
}

// readWorkbook returns the rows of the first sheet whose first row carries the required header
func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apierrors.NewStorageError("failed to open workbook", err).WithContext("source", path)
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil || len(rows) == 0 {
			continue
		}
		if _, err := columnIndex(rows[0]); err == nil {
			return rows, nil
		}
	}
	return nil, apierrors.NewParsingError("no sheet with the required header", ErrMissingColumn).
		WithContext("source", path)
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(requiredColumns))
	for i, name := range header {
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		for _, col := range requiredColumns {
			if strings.EqualFold(name, col) {
				if _, dup := idx[col]; !dup {
					idx[col] = i
				}
			}
		}
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return idx, nil
}

func parseRows(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, apierrors.NewParsingError("dataset has no header row", ErrMissingColumn)
	}

	idx, err := columnIndex(rows[0])
	if err != nil {
		return nil, apierrors.NewParsingError("invalid header", err)
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if isBlankRow(row) {
			continue
		}

		cell := func(col string) string {
			if j := idx[col]; j < len(row) {
				return strings.TrimSpace(row[j])
			}
			return ""
		}

		var rec Record
		var err error
		if rec.Date, err = parseDate(cell(ColumnDate)); err != nil {
			return nil, &ParseError{Line: line, Column: ColumnDate, Value: cell(ColumnDate), Err: err}
		}
		rec.Country = cell(ColumnCountry)
		for _, c := range []struct {
			name string
			dst  *int64
		}{
			{ColumnConfirmed, &rec.Confirmed},
			{ColumnRecovered, &rec.Recovered},
			{ColumnDeaths, &rec.Deaths},
		} {
			if *c.dst, err = parseCount(cell(c.name)); err != nil {
				return nil, &ParseError{Line: line, Column: c.name, Value: cell(c.name), Err: err}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseDate accepts YYYY-MM-DD, YYYYMMDD and Excel serial dates
func parseDate(s string) (DateKey, error) {
	if d, err := ParseDateKey(s); err == nil {
		return d, nil
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return 0, err
		}
		return DateKeyFromTime(t), nil
	}
	return ParseDateKey(s)
}

// parseCount reads a case count. Blank cells count as zero; thousands
// separators are ignored; fractional values are rejected.
func parseCount(s string) (int64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("not a whole number")
	}
	return int64(f), nil
}
