// Package calendar holds the UTC date arithmetic used to lay out a year grid.
//
// Every function here works on UTC fields only. Local time zones never take
// part in day counting or date comparison, so a grid computed on a machine in
// Seoul and one computed in Los Angeles are identical.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ISOLayout is the calendar-date layout exchanged with callers.
const ISOLayout = "2006-01-02"

var (
	ErrInvalidWeekStartDay = errors.New("weekStartDay must be a number between 0 and 6")
	ErrInvalidYear         = errors.New("year must be a number between 1 and 9999")
	ErrInvalidPadding      = errors.New("padding count must be a non-negative number")
	ErrInvalidDate         = errors.New("invalid calendar date")
)

// Layouts accepted by ParseDate, tried in order. Anything carrying a zone
// offset is converted to UTC before the calendar date is taken.
var parseLayouts = []string{
	ISOLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"20060102",
}

// ParseDate parses s into a UTC midnight time.Time.
func ParseDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrInvalidDate)
	}
	for _, layout := range parseLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return StartOfDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// IsValidDate reports whether s parses to a real calendar date.
// "2023-02-30" is rejected.
func IsValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// StartOfDay truncates t to 00:00 UTC of its UTC calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayOfYear returns the 1-based ordinal day of t within its UTC year.
func DayOfYear(t time.Time) int {
	return t.UTC().YearDay()
}

// IsLeapYear reports whether year has 366 days.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns 365 or 366.
func DaysInYear(year int) int {
	return DayOfYear(LastDayOfYear(year))
}

func FirstDayOfYear(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func LastDayOfYear(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// DateOfYearDay returns the UTC date of the given 1-based day within year.
// Day values past the end of the year roll into the next one.
func DateOfYearDay(year, day int) time.Time {
	return time.Date(year, time.January, day, 0, 0, 0, 0, time.UTC)
}

// ValidateYear rejects years that cannot be rendered as a four-digit ISO date.
func ValidateYear(year int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: got %d", ErrInvalidYear, year)
	}
	return nil
}

// ValidateWeekStartDay rejects anything outside 0 (Sunday) .. 6 (Saturday).
func ValidateWeekStartDay(weekStartDay int) error {
	if weekStartDay < 0 || weekStartDay > 6 {
		return fmt.Errorf("%w: got %d", ErrInvalidWeekStartDay, weekStartDay)
	}
	return nil
}

// EmptyDaysBeforeYearStart returns how many filler cells precede January 1st
// so that it lands in the right weekday row when weeks start on weekStartDay.
func EmptyDaysBeforeYearStart(year, weekStartDay int) (int, error) {
	if err := ValidateWeekStartDay(weekStartDay); err != nil {
		return 0, err
	}
	if err := ValidateYear(year); err != nil {
		return 0, err
	}
	firstWeekday := int(FirstDayOfYear(year).Weekday())
	return (firstWeekday - weekStartDay + 7) % 7, nil
}

// ShiftWeekdays rotates a Sunday-first list of seven labels so that it starts
// at weekStartDay.
func ShiftWeekdays(labels []string, weekStartDay int) ([]string, error) {
	if err := ValidateWeekStartDay(weekStartDay); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return []string{}, nil
	}
	shift := weekStartDay % len(labels)
	out := make([]string, 0, len(labels))
	out = append(out, labels[shift:]...)
	out = append(out, labels[:shift]...)
	return out, nil
}

// FormatISO formats t as YYYY-MM-DD using its UTC date. The zero time stands
// in for "no date" and formats as the empty string.
func FormatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(ISOLayout)
}

// FormatISOPtr is FormatISO for optional dates.
func FormatISOPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatISO(*t)
}

// NormalizeISO parses s and re-formats it as YYYY-MM-DD.
func NormalizeISO(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return FormatISO(t), nil
}

// IsSameDate compares the UTC calendar dates of a and b.
func IsSameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the whole number of UTC calendar days from a to b.
// It is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}

// FullYear returns the UTC year of the date in s, or 0 when s is not a date.
func FullYear(s string) int {
	t, err := ParseDate(s)
	if err != nil {
		return 0
	}
	return t.Year()
}
