package heatmap

import (
	"math"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/model"
)

// Scale used when no entry in the year carries a value.
const (
	DefaultScaleStart = 1.0
	DefaultScaleEnd   = 5.0
)

// BucketRange is one color bucket: raw values in [Min, Max] map to Intensity.
type BucketRange struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Intensity int     `json:"intensity"`
}

// Clamp limits x to [lo, hi]. NaN passes through unchanged.
func Clamp(x, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// MapRange linearly maps current from [inMin, inMax] onto [outMin, outMax]
// and clamps the result. A degenerate input range yields NaN (or a clamped
// infinity) rather than a panic.
func MapRange(current, inMin, inMax, outMin, outMax float64) float64 {
	mapped := (current-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
	return Clamp(mapped, outMin, outMax)
}

// rawValue is the caller's value for e, with the legacy Intensity field as a
// fallback. ok is false when neither is set.
func rawValue(e model.Entry) (float64, bool) {
	if e.Value != nil {
		return *e.Value, true
	}
	if e.Intensity != nil {
		return float64(*e.Intensity), true
	}
	return 0, false
}

// RawIntensities returns the non-zero raw values of entries in entry order.
func RawIntensities(entries []model.Entry) []float64 {
	out := make([]float64, 0, len(entries))
	for _, e := range entries {
		v, ok := rawValue(e)
		if !ok || v == 0 || math.IsNaN(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ScaleBounds returns the (start, end) pair used for bucketing: the
// configured scale where set, otherwise the min/max of raw, otherwise the
// default 1..5 scale.
func ScaleBounds(raw []float64, cfg model.IntensityConfig) (float64, float64) {
	start, end := DefaultScaleStart, DefaultScaleEnd
	if len(raw) > 0 {
		start, end = raw[0], raw[0]
		for _, v := range raw[1:] {
			start = math.Min(start, v)
			end = math.Max(end, v)
		}
	}
	if cfg.ScaleStart != nil {
		start = *cfg.ScaleStart
	}
	if cfg.ScaleEnd != nil {
		end = *cfg.ScaleEnd
	}
	return start, end
}

// BucketRanges splits the range between start and end into n equal-width
// buckets numbered 1..n. The pair is treated as unordered, so buckets always
// increase. When start == end every bucket is the single point start.
func BucketRanges(n int, start, end float64) []BucketRange {
	if n <= 0 {
		return []BucketRange{}
	}
	lo, hi := math.Min(start, end), math.Max(start, end)
	lerp := func(i int) float64 {
		if i == n {
			return hi
		}
		return float64(i)*(hi-lo)/float64(n) + lo
	}
	ranges := make([]BucketRange, n)
	for i := 0; i < n; i++ {
		ranges[i] = BucketRange{Min: lerp(i), Max: lerp(i + 1), Intensity: i + 1}
	}
	return ranges
}

// AssignBucket finds the bucket containing raw. A value on a shared boundary
// belongs to the lower bucket. Values outside every bucket get ok == false,
// unless showOutOfRange is set, in which case they are remapped onto 1..N and
// rounded to the nearest bucket.
func AssignBucket(raw float64, ranges []BucketRange, showOutOfRange bool) (intensity int, ok bool) {
	if len(ranges) == 0 || math.IsNaN(raw) {
		return 0, false
	}
	for _, r := range ranges {
		if raw >= r.Min && raw <= r.Max {
			return r.Intensity, true
		}
	}
	if !showOutOfRange {
		return 0, false
	}
	n := len(ranges)
	lo, hi := ranges[0].Min, ranges[n-1].Max
	mapped := MapRange(raw, lo, hi, 1, float64(n))
	if math.IsNaN(mapped) {
		// Single-point scale with one bucket: snap to whichever side raw is on.
		if raw < lo {
			return 1, true
		}
		return n, true
	}
	return int(math.Round(mapped)), true
}

// FillEntriesWithIntensity assigns each entry its bucket and indexes the
// results by 1-based day of year. Entries sharing a day overwrite earlier
// ones. Entries without a raw value use cfg.DefaultIntensity; entries whose
// value falls outside the scale keep a nil Intensity unless
// cfg.ShowOutOfRange is set.
func FillEntriesWithIntensity(entries []model.Entry, cfg model.IntensityConfig, colors model.ColorsList) map[int]model.Entry {
	byDay := make(map[int]model.Entry, len(entries))

	raw := RawIntensities(entries)
	start, end := ScaleBounds(raw, cfg)
	ranges := BucketRanges(len(colors), start, end)

	for _, e := range entries {
		d, err := calendar.ParseDate(e.Date)
		if err != nil {
			continue
		}
		v, ok := rawValue(e)
		if !ok {
			v = cfg.DefaultIntensity
		}

		filled := e
		filled.Intensity = nil
		if bucket, ok := AssignBucket(v, ranges, cfg.ShowOutOfRange); ok {
			filled.Intensity = model.Int(bucket)
		}
		byDay[calendar.DayOfYear(d)] = filled
	}
	return byDay
}

// SortedDays returns the keys of byDay in ascending order.
func SortedDays(byDay map[int]model.Entry) []int {
	days := make([]int, 0, len(byDay))
	for day := 1; day <= 366 && len(days) < len(byDay); day++ {
		if _, ok := byDay[day]; ok {
			days = append(days, day)
		}
	}
	return days
}

// EntriesInDayOrder flattens byDay into a slice ordered by day of year.
func EntriesInDayOrder(byDay map[int]model.Entry) []model.Entry {
	days := SortedDays(byDay)
	out := make([]model.Entry, 0, len(days))
	for _, d := range days {
		out = append(out, byDay[d])
	}
	return out
}
