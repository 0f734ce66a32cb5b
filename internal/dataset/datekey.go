package dataset

import (
	"fmt"
	"strings"
	"time"
)

// DateKey is a calendar date stored as the integer YYYYMMDD
type DateKey int

// DateKeyFromTime converts the calendar date of t
func DateKeyFromTime(t time.Time) DateKey {
	return DateKey(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// ParseDateKey accepts YYYY-MM-DD and YYYYMMDD
func ParseDateKey(s string) (DateKey, error) {
	s = strings.TrimSpace(s)
	layout := "2006-01-02"
	if !strings.Contains(s, "-") {
		layout = "20060102"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateKeyFromTime(t), nil
}

// Year returns the four digit year
func (d DateKey) Year() int { return int(d) / 10000 }

// Month returns the month number
func (d DateKey) Month() int { return int(d) / 100 % 100 }

// Day returns the day of month
func (d DateKey) Day() int { return int(d) % 100 }

// Time returns midnight UTC of the date
func (d DateKey) Time() time.Time {
	return time.Date(d.Year(), time.Month(d.Month()), d.Day(), 0, 0, 0, 0, time.UTC)
}

// String renders the date as YYYY-MM-DD
func (d DateKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), d.Month(), d.Day())
}

// Compact renders the date as YYYYMMDD, handy for file names
func (d DateKey) Compact() string {
	return fmt.Sprintf("%08d", int(d))
}

// MarshalText implements encoding.TextMarshaler so DateKeys serialise as YYYY-MM-DD
func (d DateKey) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *DateKey) UnmarshalText(text []byte) error {
	parsed, err := ParseDateKey(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
