package calendar

import "time"

// Clock supplies "now". Anything that marks today or decides whether a
// streak is still running takes a Clock instead of calling time.Now.
type Clock func() time.Time

// SystemClock reads the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns t. Useful in tests and for rendering a past day.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// Today returns the UTC midnight of the clock's current date. A nil clock
// falls back to SystemClock.
func (c Clock) Today() time.Time {
	if c == nil {
		return StartOfDay(SystemClock())
	}
	return StartOfDay(c())
}
