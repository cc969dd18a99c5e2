// Package tracker runs the heatmap pipeline for one tracker: year filter,
// intensity buckets, color ramp, grid, streaks and insights, producing a
// View that renderers and the API consume.
package tracker

import (
	"fmt"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/heatmap"
	appLog "heatmaptracker/internal/log"
	"heatmaptracker/internal/model"
	"heatmaptracker/internal/stats"
)

// View is everything needed to draw one tracker year.
type View struct {
	ID       string `json:"id"`
	Year     int    `json:"year"`
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Today    string `json:"today"`

	WeekStartDay  int                  `json:"week_start_day"`
	WeekdayLabels []string             `json:"weekday_labels"`
	MonthLabels   []string             `json:"month_labels"`
	Colors        model.ColorsList     `json:"colors"`
	Legend        []heatmap.LegendItem `json:"legend"`
	Cells         []model.Cell         `json:"cells"`

	Streaks           model.StreakResult `json:"streaks"`
	CurrentStreakText string             `json:"current_streak_text"`
	LongestStreakText string             `json:"longest_streak_text"`
	Insights          []stats.Result     `json:"insights"`

	TotalTrackingDaysThisYear int `json:"total_tracking_days_this_year"`
	TotalTrackingDays         int `json:"total_tracking_days"`

	Tabs map[string]bool `json:"tabs,omitempty"`
}

// Options carry the per-call inputs that are not part of the tracker data.
type Options struct {
	ID string

	// Year overrides TrackerData.Year when non-zero.
	Year int

	// Clock supplies today. Nil means the system clock.
	Clock calendar.Clock

	// Insights resolves TrackerData.Insights. Nil means the built-ins.
	Insights *stats.Registry
}

var defaultInsights = stats.DefaultRegistry()

// ResolveYear picks the year to render: the override, else the tracker's
// year, else the clock's current year.
func ResolveYear(data model.TrackerData, override int, clock calendar.Clock) int {
	switch {
	case override != 0:
		return override
	case data.Year != 0:
		return data.Year
	default:
		return clock.Today().Year()
	}
}

// Compute runs the full pipeline. It fails without a partial View when the
// year or the week start day is invalid.
func Compute(data model.TrackerData, settings model.Settings, opts Options) (*View, error) {
	today := opts.Clock.Today()
	year := ResolveYear(data, opts.Year, opts.Clock)
	if err := calendar.ValidateYear(year); err != nil {
		return nil, fmt.Errorf("tracker %q: %w", opts.ID, err)
	}

	weekdays, err := heatmap.WeekdayLabels(settings.WeekStartDay, settings.WeekDisplayMode)
	if err != nil {
		return nil, fmt.Errorf("tracker %q: %w", opts.ID, err)
	}

	colors := heatmap.ResolveColors(data.ColorScheme, settings.Palettes)
	yearEntries := heatmap.EntriesForYear(data.Entries, year)
	byDay := heatmap.FillEntriesWithIntensity(yearEntries, data.IntensityConfig, colors)

	separate := settings.SeparateMonths
	if data.SeparateMonths != nil {
		separate = *data.SeparateMonths
	}
	cells, err := heatmap.BuildGrid(year, byDay, colors, heatmap.GridOptions{
		ShowCurrentDayBorder: data.ShowCurrentDayBorder,
		SeparateMonths:       separate,
		Today:                today,
	}, settings.WeekStartDay)
	if err != nil {
		return nil, fmt.Errorf("tracker %q: %w", opts.ID, err)
	}

	registry := opts.Insights
	if registry == nil {
		registry = defaultInsights
	}
	filled := heatmap.EntriesInDayOrder(byDay)
	insights, missing := registry.Compute(data.Insights, filled)
	if len(missing) > 0 {
		appLog.Warn("unknown insights ignored", "tracker", opts.ID, "names", missing)
	}

	streaks := stats.CalculateStreaks(data.Entries, today)

	v := &View{
		ID:                        opts.ID,
		Year:                      year,
		Title:                     data.HeatmapTitle,
		Subtitle:                  data.HeatmapSubtitle,
		Today:                     calendar.FormatISO(today),
		WeekStartDay:              settings.WeekStartDay,
		WeekdayLabels:             weekdays,
		MonthLabels:               heatmap.MonthLabels(),
		Colors:                    colors,
		Legend:                    heatmap.Legend(heatmap.RawIntensities(yearEntries), data.IntensityConfig, colors),
		Cells:                     cells,
		Streaks:                   streaks,
		CurrentStreakText:         stats.FormatStreak(streaks.CurrentStreak, streaks.CurrentStreakStart, streaks.CurrentStreakEnd),
		LongestStreakText:         stats.FormatStreak(streaks.LongestStreak, streaks.LongestStreakStart, streaks.LongestStreakEnd),
		Insights:                  insights,
		TotalTrackingDaysThisYear: len(byDay),
		TotalTrackingDays:         len(data.Entries),
		Tabs:                      settings.ViewTabsVisibility,
	}

	appLog.Debug("tracker computed",
		"tracker", opts.ID,
		"year", year,
		"entries", len(data.Entries),
		"year_entries", len(yearEntries),
		"filled_days", len(byDay),
		"cells", len(cells),
	)
	return v, nil
}

// TabVisible reports whether the named view tab should be shown. Tabs not
// mentioned in the settings are visible.
func (v *View) TabVisible(name string) bool {
	if v.Tabs == nil {
		return true
	}
	visible, ok := v.Tabs[name]
	return !ok || visible
}
