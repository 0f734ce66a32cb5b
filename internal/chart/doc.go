// Package chart describes the scatter view and renders single frames of it.
//
// PlotSpec carries everything the browser needs to draw the plot (ranges,
// tickers, axis labels, glyph styling, hover tooltips). ColorMapper assigns
// each country a colour from a shuffled Inferno palette. Renderer draws one
// snapshot to SVG or PNG with go-chart for exports and headless captures.
package chart
