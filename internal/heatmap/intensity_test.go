package heatmap

import (
	"math"
	"testing"

	"heatmaptracker/internal/model"
)

var testColors = model.ColorsList{"#ebedf0", "#9be9a8", "#40c463", "#30a14e", "#216e39"}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBucketRangesScenario(t *testing.T) {
	got := BucketRanges(5, 1, 10)
	want := []BucketRange{
		{1, 2.8, 1}, {2.8, 4.6, 2}, {4.6, 6.4, 3}, {6.4, 8.2, 4}, {8.2, 10, 5},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !approx(got[i].Min, want[i].Min) || !approx(got[i].Max, want[i].Max) || got[i].Intensity != want[i].Intensity {
			t.Errorf("bucket %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBucketRangesProperties(t *testing.T) {
	tests := []struct {
		n          int
		start, end float64
	}{
		{1, 0, 10},
		{3, 0, 100},
		{5, 10, 0},
		{4, -3, 3},
		{6, 7, 7},
	}
	for _, tt := range tests {
		got := BucketRanges(tt.n, tt.start, tt.end)
		if len(got) != tt.n {
			t.Fatalf("BucketRanges(%d, %v, %v) len = %d", tt.n, tt.start, tt.end, len(got))
		}
		for i, r := range got {
			if r.Intensity != i+1 {
				t.Errorf("bucket %d intensity = %d", i, r.Intensity)
			}
			if r.Min > r.Max {
				t.Errorf("BucketRanges(%d, %v, %v)[%d] not increasing: %+v", tt.n, tt.start, tt.end, i, r)
			}
			if tt.start == tt.end && (r.Min != tt.start || r.Max != tt.start) {
				t.Errorf("degenerate bucket %d = %+v, want point %v", i, r, tt.start)
			}
			if i > 0 && got[i-1].Max != r.Min {
				t.Errorf("buckets %d and %d are not contiguous", i-1, i)
			}
		}
	}
	if got := BucketRanges(0, 1, 5); len(got) != 0 {
		t.Errorf("BucketRanges(0) = %v, want empty", got)
	}
}

func TestBucketRangesReversedMatchesForward(t *testing.T) {
	fwd := BucketRanges(4, 0, 8)
	rev := BucketRanges(4, 8, 0)
	for i := range fwd {
		if fwd[i] != rev[i] {
			t.Errorf("bucket %d: forward %+v reversed %+v", i, fwd[i], rev[i])
		}
	}
}

func TestMapRangeDegenerate(t *testing.T) {
	if got := MapRange(5, 5, 5, 0, 100); !math.IsNaN(got) {
		t.Errorf("MapRange(5,5,5,0,100) = %v, want NaN", got)
	}
	if got := MapRange(7, 5, 5, 0, 100); got != 100 {
		t.Errorf("MapRange(7,5,5,0,100) = %v, want 100", got)
	}
	if got := MapRange(50, 0, 100, 1, 5); got != 3 {
		t.Errorf("MapRange(50,0,100,1,5) = %v, want 3", got)
	}
	if got := MapRange(200, 0, 100, 1, 5); got != 5 {
		t.Errorf("MapRange clamps high: got %v", got)
	}
}

func TestAssignBucket(t *testing.T) {
	ranges := BucketRanges(5, 0, 10)
	tests := []struct {
		name  string
		raw   float64
		show  bool
		want  int
		found bool
	}{
		{"lower bound", 0, false, 1, true},
		{"shared boundary goes low", 2, false, 1, true},
		{"inside", 5, false, 3, true},
		{"upper bound", 10, false, 5, true},
		{"above hidden", 20, false, 0, false},
		{"below hidden", -4, false, 0, false},
		{"above clamped", 20, true, 5, true},
		{"below clamped", -4, true, 1, true},
		{"nan", math.NaN(), true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AssignBucket(tt.raw, ranges, tt.show)
			if ok != tt.found || got != tt.want {
				t.Errorf("AssignBucket(%v) = (%d, %v), want (%d, %v)", tt.raw, got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestAssignBucketSinglePointScale(t *testing.T) {
	ranges := BucketRanges(1, 3, 3)
	if got, ok := AssignBucket(9, ranges, true); !ok || got != 1 {
		t.Errorf("got (%d, %v), want (1, true)", got, ok)
	}
	if _, ok := AssignBucket(9, ranges, false); ok {
		t.Error("expected no bucket when out of range is hidden")
	}
}

func TestRawIntensities(t *testing.T) {
	entries := []model.Entry{
		{Date: "2023-05-15", Value: model.Float(5)},
		{Date: "2023-05-16", Intensity: model.Int(3)},
		{Date: "2023-05-17", Value: model.Float(0)},
		{Date: "2023-05-18"},
		{Date: "2023-05-19", Value: model.Float(2)},
	}
	got := RawIntensities(entries)
	want := []float64{5, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("RawIntensities = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RawIntensities = %v, want %v", got, want)
		}
	}
}

func TestScaleBounds(t *testing.T) {
	s, e := ScaleBounds(nil, model.IntensityConfig{})
	if s != DefaultScaleStart || e != DefaultScaleEnd {
		t.Errorf("empty = (%v, %v), want default", s, e)
	}
	s, e = ScaleBounds([]float64{4, 9, 2}, model.IntensityConfig{})
	if s != 2 || e != 9 {
		t.Errorf("derived = (%v, %v), want (2, 9)", s, e)
	}
	s, e = ScaleBounds([]float64{4, 9, 2}, model.IntensityConfig{ScaleEnd: model.Float(20)})
	if s != 2 || e != 20 {
		t.Errorf("partial override = (%v, %v), want (2, 20)", s, e)
	}
}

func TestFillEntriesWithIntensity(t *testing.T) {
	cfg := model.IntensityConfig{
		ScaleStart:       model.Float(0),
		ScaleEnd:         model.Float(10),
		DefaultIntensity: 1,
		ShowOutOfRange:   false,
	}
	entries := []model.Entry{
		{Date: "2023-01-01", Value: model.Float(10)},
		{Date: "2023-01-02"},
		{Date: "2023-01-03", Value: model.Float(50)},
		{Date: "bogus", Value: model.Float(3)},
		{Date: "2023-04-10", Value: model.Float(5), Metadata: map[string]any{"documentCount": 2}},
	}
	got := FillEntriesWithIntensity(entries, cfg, testColors)

	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if e := got[1]; e.Intensity == nil || *e.Intensity != 5 {
		t.Errorf("day 1 intensity = %v, want 5", e.Intensity)
	}
	if e := got[2]; e.Intensity == nil || *e.Intensity != 1 {
		t.Errorf("day 2 (default intensity) = %v, want 1", e.Intensity)
	}
	if e := got[3]; e.Intensity != nil {
		t.Errorf("day 3 out of range = %v, want nil", *e.Intensity)
	}
	md, ok := got[100].Metadata.(map[string]any)
	if !ok || md["documentCount"] != 2 {
		t.Errorf("metadata not passed through: %#v", got[100].Metadata)
	}
}

func TestFillEntriesWithIntensityLastWriteWins(t *testing.T) {
	cfg := model.IntensityConfig{DefaultIntensity: 1, ShowOutOfRange: true}
	entries := []model.Entry{
		{Date: "2023-03-01", Value: model.Float(1), Content: "first"},
		{Date: "2023-03-01T18:00:00Z", Value: model.Float(5), Content: "second"},
	}
	got := FillEntriesWithIntensity(entries, cfg, testColors)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[60].Content != "second" {
		t.Errorf("content = %v, want second", got[60].Content)
	}
}

func TestFillEntriesWithIntensityNoValues(t *testing.T) {
	cfg := model.IntensityConfig{DefaultIntensity: 4, ShowOutOfRange: true}
	entries := []model.Entry{{Date: "2023-06-01"}, {Date: "2023-06-02"}}
	got := FillEntriesWithIntensity(entries, cfg, testColors)
	// Default scale 1..5 with five colors puts 4 in bucket 4.
	for day, e := range got {
		if e.Intensity == nil || *e.Intensity != 4 {
			t.Errorf("day %d intensity = %v, want 4", day, e.Intensity)
		}
	}
}

func TestFillEntriesDoesNotMutateInput(t *testing.T) {
	in := []model.Entry{{Date: "2023-06-01", Intensity: model.Int(3)}}
	FillEntriesWithIntensity(in, model.IntensityConfig{ScaleStart: model.Float(0), ScaleEnd: model.Float(100)}, testColors)
	if *in[0].Intensity != 3 {
		t.Errorf("input mutated: %d", *in[0].Intensity)
	}
}

func TestEntriesInDayOrder(t *testing.T) {
	byDay := map[int]model.Entry{
		40:  {Date: "2023-02-09"},
		2:   {Date: "2023-01-02"},
		365: {Date: "2023-12-31"},
	}
	got := EntriesInDayOrder(byDay)
	if len(got) != 3 || got[0].Date != "2023-01-02" || got[2].Date != "2023-12-31" {
		t.Errorf("EntriesInDayOrder = %v", got)
	}
}
