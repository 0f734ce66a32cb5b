package chart

import (
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
)

// IntervalTicks places a tick at every multiple of interval inside [min, max].
// Both bounds always get a tick so go-chart keeps the full range; a bound that
// is not a multiple of interval gets an empty label.
func IntervalTicks(min, max, interval float64, format func(float64) string) []chart.Tick {
	if format == nil {
		format = FormatPlain
	}
	if interval <= 0 || max <= min {
		return []chart.Tick{{Value: min, Label: format(min)}, {Value: max, Label: format(max)}}
	}

	var ticks []chart.Tick
	first := math.Ceil(min/interval-1e-9) * interval
	if first-min > 1e-9*interval {
		ticks = append(ticks, chart.Tick{Value: min})
	}

	n := int(math.Floor((max-first)/interval + 1e-9))
	for i := 0; i <= n; i++ {
		v := first + float64(i)*interval
		// 3*0.05 is 0.15000000000000002
		v = math.Round(v*1e9) / 1e9
		ticks = append(ticks, chart.Tick{Value: v, Label: format(v)})
	}

	if last := ticks[len(ticks)-1].Value; max-last > 1e-9*interval {
		ticks = append(ticks, chart.Tick{Value: max})
	}
	return ticks
}

// FormatPlain renders v without scientific notation
func FormatPlain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatFixed2 renders v with two decimals, for ratio axes
func FormatFixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// valueFormatter adapts a float formatter to go-chart's ValueFormatter
func valueFormatter(format func(float64) string) chart.ValueFormatter {
	return func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return format(f)
		}
		return chart.FloatValueFormatter(v)
	}
}
