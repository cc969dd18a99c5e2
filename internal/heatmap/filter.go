// Package heatmap turns sparse dated entries into the dense cell sequence of
// a calendar-year grid.
//
// The pipeline is EntriesForYear -> FillEntriesWithIntensity -> BuildGrid,
// with ResolveColors choosing the ramp. Nothing in this package performs I/O
// or reads the wall clock.
package heatmap

import (
	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/model"
)

// EntriesForYear keeps the entries whose date is valid and falls in year,
// preserving input order. Invalid dates are dropped silently.
func EntriesForYear(entries []model.Entry, year int) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		d, err := calendar.ParseDate(e.Date)
		if err != nil {
			continue
		}
		if d.Year() == year {
			out = append(out, e)
		}
	}
	return out
}
