package dataset

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmptyDataset is returned when no row survives filtering
	ErrEmptyDataset = errors.New("dataset has no rows above the confirmed threshold")

	// ErrDateNotFound is returned when a date has no snapshot
	ErrDateNotFound = errors.New("date not found in dataset")

	// ErrIndexOutOfRange is returned for a snapshot index outside [0, Len())
	ErrIndexOutOfRange = errors.New("snapshot index out of range")
)

// ColumnData is the columnar form of one date's rows. All slices have the same length.
type ColumnData struct {
	Country        []string  `json:"Country"`
	Confirmed      []int64   `json:"Confirmed"`
	Recovered      []int64   `json:"Recovered"`
	Deaths         []int64   `json:"Deaths"`
	Radius         []float64 `json:"Radius"`
	RecoveredRatio []float64 `json:"RecoveredRatio"`
}

// Len returns the number of rows
func (c ColumnData) Len() int {
	return len(c.Country)
}

func (c *ColumnData) append(r Record) {
	c.Country = append(c.Country, r.Country)
	c.Confirmed = append(c.Confirmed, r.Confirmed)
	c.Recovered = append(c.Recovered, r.Recovered)
	c.Deaths = append(c.Deaths, r.Deaths)
	c.Radius = append(c.Radius, r.Radius)
	c.RecoveredRatio = append(c.RecoveredRatio, r.RecoveredRatio)
}

// Row returns row i as a Record dated date
func (c ColumnData) Row(date DateKey, i int) Record {
	return Record{
		Date:           date,
		Country:        c.Country[i],
		Confirmed:      c.Confirmed[i],
		Recovered:      c.Recovered[i],
		Deaths:         c.Deaths[i],
		Radius:         c.Radius[i],
		RecoveredRatio: c.RecoveredRatio[i],
	}
}

// Dataset holds the per-date snapshots
type Dataset struct {
	// Countries in order of first appearance
	Countries []string
	// Dates ascending
	Dates     []DateKey
	Snapshots map[DateKey]ColumnData
}

// Build derives the metrics of every record and groups the rows by date.
// Row order inside a snapshot follows the input order.
func Build(records []Record) (*Dataset, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	ds := &Dataset{Snapshots: make(map[DateKey]ColumnData)}
	seen := make(map[string]struct{})

	for _, r := range records {
		r.Derive()

		if _, ok := seen[r.Country]; !ok {
			seen[r.Country] = struct{}{}
			ds.Countries = append(ds.Countries, r.Country)
		}

		snap, ok := ds.Snapshots[r.Date]
		if !ok {
			ds.Dates = append(ds.Dates, r.Date)
		}
		snap.append(r)
		ds.Snapshots[r.Date] = snap
	}

	sort.Slice(ds.Dates, func(i, j int) bool { return ds.Dates[i] < ds.Dates[j] })
	return ds, nil
}

// Len returns the number of dates
func (d *Dataset) Len() int {
	return len(d.Dates)
}

// Snapshot returns the rows of one date
func (d *Dataset) Snapshot(date DateKey) (ColumnData, error) {
	snap, ok := d.Snapshots[date]
	if !ok {
		return ColumnData{}, fmt.Errorf("%w: %s", ErrDateNotFound, date)
	}
	return snap, nil
}

// At returns the date and rows at a slider position
func (d *Dataset) At(index int) (DateKey, ColumnData, error) {
	if index < 0 || index >= len(d.Dates) {
		return 0, ColumnData{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(d.Dates))
	}
	date := d.Dates[index]
	return date, d.Snapshots[date], nil
}

// Index returns the slider position of date
func (d *Dataset) Index(date DateKey) (int, bool) {
	i := sort.Search(len(d.Dates), func(i int) bool { return d.Dates[i] >= date })
	if i < len(d.Dates) && d.Dates[i] == date {
		return i, true
	}
	return -1, false
}

// Records flattens the dataset back into rows, ordered by date
func (d *Dataset) Records() []Record {
	var out []Record
	for _, date := range d.Dates {
		snap := d.Snapshots[date]
		for i := 0; i < snap.Len(); i++ {
			out = append(out, snap.Row(date, i))
		}
	}
	return out
}
