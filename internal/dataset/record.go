package dataset

import "math"

const (
	// MinRadius is the smallest bubble drawn, also used when deaths are unknown
	MinRadius = 3.0

	// radiusScale divides sqrt(deaths/pi) to get the bubble radius
	radiusScale = 0.4
)

// Record is one row of the case table plus its derived metrics
type Record struct {
	Date      DateKey
	Country   string
	Confirmed int64
	Recovered int64
	Deaths    int64

	Radius         float64
	RecoveredRatio float64
}

// Radius maps a death count to a bubble radius: sqrt(deaths/pi)/0.4, never below MinRadius
func Radius(deaths float64) float64 {
	r := math.Sqrt(deaths/math.Pi) / radiusScale
	if math.IsNaN(r) || r < MinRadius {
		return MinRadius
	}
	return r
}

// RecoveredRatio is recovered/confirmed, with undefined or infinite results reported as 0
func RecoveredRatio(recovered, confirmed float64) float64 {
	ratio := recovered / confirmed
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}
	return ratio
}

// Derive fills in Radius and RecoveredRatio from the raw counts
func (r *Record) Derive() {
	r.Radius = Radius(float64(r.Deaths))
	r.RecoveredRatio = RecoveredRatio(float64(r.Recovered), float64(r.Confirmed))
}

// Filter keeps records with strictly more than minConfirmed confirmed cases
func Filter(records []Record, minConfirmed int64) []Record {
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Confirmed > minConfirmed {
			kept = append(kept, r)
		}
	}
	return kept
}
