package calendar

import (
	"errors"
	"testing"
	"time"
)

func TestDayOfYearLastDay(t *testing.T) {
	for year := 1899; year <= 2101; year++ {
		want := 365
		if IsLeapYear(year) {
			want = 366
		}
		if got := DayOfYear(LastDayOfYear(year)); got != want {
			t.Fatalf("DayOfYear(LastDayOfYear(%d)) = %d, want %d", year, got, want)
		}
		if got := DaysInYear(year); got != want {
			t.Fatalf("DaysInYear(%d) = %d, want %d", year, got, want)
		}
	}
}

func TestDayOfYearUsesUTC(t *testing.T) {
	// 2024-01-01 02:00 in UTC+9 is still 2023-12-31 in UTC.
	loc := time.FixedZone("KST", 9*60*60)
	d := time.Date(2024, 1, 1, 2, 0, 0, 0, loc)
	if got := DayOfYear(d); got != 365 {
		t.Errorf("DayOfYear = %d, want 365", got)
	}
}

func TestIsValidDate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2024-02-29", true},
		{"2023-02-29", false},
		{"2023-13-01", false},
		{"2023-01-01T10:00:00Z", true},
		{"2023-01-01T10:00:00+09:00", true},
		{"2023/01/05", true},
		{"", false},
		{"not a date", false},
	}
	for _, tt := range tests {
		if got := IsValidDate(tt.in); got != tt.want {
			t.Errorf("IsValidDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDateOffsetConvertsToUTC(t *testing.T) {
	got, err := ParseDate("2024-01-01T02:00:00+09:00")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if FormatISO(got) != "2023-12-31" {
		t.Errorf("got %s, want 2023-12-31", FormatISO(got))
	}
}

func TestEmptyDaysBeforeYearStart(t *testing.T) {
	got, err := EmptyDaysBeforeYearStart(2021, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Errorf("EmptyDaysBeforeYearStart(2021, 0) = %d, want 5", got)
	}

	for year := 1990; year <= 2040; year++ {
		for w := 0; w <= 6; w++ {
			n, err := EmptyDaysBeforeYearStart(year, w)
			if err != nil {
				t.Fatalf("year %d week start %d: %v", year, w, err)
			}
			if n < 0 || n > 6 {
				t.Fatalf("year %d week start %d: %d out of range", year, w, n)
			}
			isStart := int(FirstDayOfYear(year).Weekday()) == w
			if (n == 0) != isStart {
				t.Fatalf("year %d week start %d: got %d, first weekday %v", year, w, n, FirstDayOfYear(year).Weekday())
			}
		}
	}
}

func TestEmptyDaysBeforeYearStartErrors(t *testing.T) {
	for _, w := range []int{-1, 7, 100} {
		if _, err := EmptyDaysBeforeYearStart(2024, w); !errors.Is(err, ErrInvalidWeekStartDay) {
			t.Errorf("week start %d: got %v, want ErrInvalidWeekStartDay", w, err)
		}
	}
	if _, err := EmptyDaysBeforeYearStart(0, 1); !errors.Is(err, ErrInvalidYear) {
		t.Errorf("year 0: got %v, want ErrInvalidYear", err)
	}
}

func TestShiftWeekdays(t *testing.T) {
	days := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	got, err := ShiftWeekdays(days, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ShiftWeekdays(1) = %v, want %v", got, want)
		}
	}
	if _, err := ShiftWeekdays(days, 7); !errors.Is(err, ErrInvalidWeekStartDay) {
		t.Errorf("expected ErrInvalidWeekStartDay, got %v", err)
	}
}

func TestFormatISO(t *testing.T) {
	if got := FormatISO(time.Time{}); got != "" {
		t.Errorf("FormatISO(zero) = %q, want empty", got)
	}
	if got := FormatISOPtr(nil); got != "" {
		t.Errorf("FormatISOPtr(nil) = %q, want empty", got)
	}
	for _, s := range []string{"2024-02-29", "1999-12-31", "2021-01-01", "1900-03-01"} {
		d, err := ParseDate(s)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", s, err)
		}
		if got := FormatISO(d); got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 2, 28, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 2 {
		t.Errorf("DaysBetween = %d, want 2", got)
	}
	if got := DaysBetween(b, a); got != -2 {
		t.Errorf("DaysBetween reversed = %d, want -2", got)
	}
}

func TestClockToday(t *testing.T) {
	c := FixedClock(time.Date(2024, 5, 6, 23, 59, 0, 0, time.UTC))
	if got := FormatISO(c.Today()); got != "2024-05-06" {
		t.Errorf("Today = %s", got)
	}
}
