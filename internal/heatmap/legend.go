package heatmap

import (
	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/model"
)

// LegendItem pairs a ramp color with the raw range it stands for.
type LegendItem struct {
	Color     string  `json:"color"`
	Intensity int     `json:"intensity"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
}

// Legend describes every bucket of the ramp for the given raw values.
func Legend(raw []float64, cfg model.IntensityConfig, colors model.ColorsList) []LegendItem {
	start, end := ScaleBounds(raw, cfg)
	ranges := BucketRanges(len(colors), start, end)
	items := make([]LegendItem, len(ranges))
	for i, r := range ranges {
		items[i] = LegendItem{Color: colors[i], Intensity: r.Intensity, Min: r.Min, Max: r.Max}
	}
	return items
}

var (
	weekdaysShort = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	monthsShort   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// MonthLabels returns the twelve short month names.
func MonthLabels() []string {
	out := make([]string, len(monthsShort))
	copy(out, monthsShort)
	return out
}

// WeekdayLabels returns the seven row labels starting at weekStartDay, with
// rows hidden by mode replaced by "". Rows are 0-based: "odd" keeps 1, 3, 5
// and "even" keeps 0, 2, 4, 6. Unknown modes behave like "all".
func WeekdayLabels(weekStartDay int, mode model.WeekDisplayMode) ([]string, error) {
	labels, err := calendar.ShiftWeekdays(weekdaysShort, weekStartDay)
	if err != nil {
		return nil, err
	}
	for i := range labels {
		switch mode {
		case model.WeekDisplayNone:
			labels[i] = ""
		case model.WeekDisplayOdd:
			if i%2 == 0 {
				labels[i] = ""
			}
		case model.WeekDisplayEven:
			if i%2 == 1 {
				labels[i] = ""
			}
		}
	}
	return labels, nil
}
