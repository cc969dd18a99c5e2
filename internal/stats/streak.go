// Package stats derives aggregate figures from a tracker's entries: streaks
// of consecutive days and named insight values.
package stats

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/model"
)

// CurrentStreakGrace is the largest gap in days between the last entry and
// today for which the streak ending at that entry still counts as current.
// With 1, an entry made yesterday keeps the streak alive for today.
const CurrentStreakGrace = 1

// CalculateStreaks finds the longest run of calendar-consecutive days that
// have an entry, and the run still active relative to today. Entries may be
// in any order; invalid dates are ignored and several entries on one day
// count once.
func CalculateStreaks(entries []model.Entry, today time.Time) model.StreakResult {
	days := entryDays(entries)
	if len(days) == 0 {
		return model.StreakResult{}
	}

	run := 1
	runStart := days[0]
	longest := 1
	longestStart, longestEnd := days[0], days[0]

	for i := 1; i < len(days); i++ {
		switch calendar.DaysBetween(days[i-1], days[i]) {
		case 0:
			continue
		case 1:
			run++
		default:
			run = 1
			runStart = days[i]
		}
		if run > longest {
			longest = run
			longestStart, longestEnd = runStart, days[i]
		}
	}

	res := model.StreakResult{
		LongestStreak:      longest,
		LongestStreakStart: timePtr(longestStart),
		LongestStreakEnd:   timePtr(longestEnd),
	}

	last := days[len(days)-1]
	if calendar.DaysBetween(last, calendar.StartOfDay(today)) <= CurrentStreakGrace {
		res.CurrentStreak = run
		res.CurrentStreakStart = timePtr(runStart)
		res.CurrentStreakEnd = timePtr(last)
	}
	return res
}

// entryDays returns the UTC midnights of all valid entry dates, ascending.
func entryDays(entries []model.Entry) []time.Time {
	days := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		t, err := calendar.ParseDate(e.Date)
		if err != nil {
			continue
		}
		days = append(days, t)
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func timePtr(t time.Time) *time.Time { return &t }

// FormatStreak renders a streak length with its bounds, e.g.
// "3 (2024-01-01 - 2024-01-03)". Without bounds only the length is shown.
func FormatStreak(n int, start, end *time.Time) string {
	if start == nil || end == nil {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%d (%s - %s)", n, calendar.FormatISO(*start), calendar.FormatISO(*end))
}
