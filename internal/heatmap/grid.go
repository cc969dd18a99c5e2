package heatmap

import (
	"fmt"
	"strings"
	"time"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/model"
)

// monthGapCells is one full week column, so weeks after a gap stay aligned.
const monthGapCells = 7

// GridOptions are the per-tracker switches the grid builder consults.
type GridOptions struct {
	ShowCurrentDayBorder bool
	SeparateMonths       bool

	// Today is the date marked IsToday. The zero time marks nothing.
	Today time.Time
}

// PrefilledCells returns n filler cells.
func PrefilledCells(n int) ([]model.Cell, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: got %d", calendar.ErrInvalidPadding, n)
	}
	cells := make([]model.Cell, n)
	for i := range cells {
		cells[i] = model.Cell{IsSpaceBetweenBox: true}
	}
	return cells, nil
}

// MonthTag is the lowercase style hook for the month of d, e.g. "month-jan".
func MonthTag(d time.Time) string {
	return "month-" + strings.ToLower(d.UTC().Format("Jan"))
}

// BuildGrid lays out year as a flat cell sequence consumed column-major
// (weeks as columns, weekdays as rows): leading fillers, then every day of
// the year, with a week of fillers before each month after January when
// months are separated. byDay is the output of FillEntriesWithIntensity.
func BuildGrid(year int, byDay map[int]model.Entry, colors model.ColorsList, opts GridOptions, weekStartDay int) ([]model.Cell, error) {
	leading, err := calendar.EmptyDaysBeforeYearStart(year, weekStartDay)
	if err != nil {
		return nil, err
	}
	cells, err := PrefilledCells(leading)
	if err != nil {
		return nil, err
	}

	daysInYear := calendar.DaysInYear(year)
	gaps := 0
	if opts.SeparateMonths {
		gaps = 11 * monthGapCells
	}
	out := make([]model.Cell, 0, len(cells)+daysInYear+gaps)
	out = append(out, cells...)

	for day := 1; day <= daysInYear; day++ {
		date := calendar.DateOfYearDay(year, day)

		if opts.SeparateMonths && day > 31 && date.Day() == 1 {
			gap, _ := PrefilledCells(monthGapCells)
			out = append(out, gap...)
		}

		cell := model.Cell{
			Name: MonthTag(date),
			Date: calendar.FormatISO(date),
		}

		if !opts.Today.IsZero() && calendar.IsSameDate(date, opts.Today) {
			cell.IsToday = true
			cell.ShowBorder = opts.ShowCurrentDayBorder
		}

		if entry, ok := byDay[day]; ok {
			cell.HasData = true
			cell.Content = entry.Content
			cell.Metadata = entry.Metadata
			cell.BackgroundColor = cellColor(entry, colors)
		}

		out = append(out, cell)
	}
	return out, nil
}

// cellColor applies the precedence customColor > ramp color > none.
func cellColor(e model.Entry, colors model.ColorsList) string {
	if e.CustomColor != "" {
		return e.CustomColor
	}
	if e.Intensity == nil {
		return ""
	}
	idx := *e.Intensity - 1
	if idx < 0 || idx >= len(colors) {
		return ""
	}
	return colors[idx]
}
