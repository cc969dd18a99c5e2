package stats

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	moremath "github.com/aclements/go-moremath/stats"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/model"
)

// ErrDuplicateLabel is returned by Register when another insight already
// carries the label.
var ErrDuplicateLabel = errors.New("duplicate insight label")

// Insight is a named aggregate computed over one year's normalized entries.
type Insight struct {
	// Name is the key trackers use to select the insight.
	Name string
	// Label is the human readable heading shown next to the value.
	Label     string
	Calculate func(entries []model.Entry) string
}

// Result is one evaluated insight.
type Result struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Registry holds insights by name. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	insights map[string]Insight
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{insights: make(map[string]Insight)}
}

// DefaultRegistry returns a registry with every built-in insight.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, in := range BuiltinInsights() {
		_ = r.Register(in)
	}
	return r
}

// Register adds in, replacing any insight with the same name. Labels are
// unique across names so ComputeMap never folds two insights together.
func (r *Registry) Register(in Insight) error {
	if in.Name == "" {
		return fmt.Errorf("insight name is required")
	}
	if in.Calculate == nil {
		return fmt.Errorf("insight %q has no calculate function", in.Name)
	}
	if in.Label == "" {
		in.Label = in.Name
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, other := range r.insights {
		if name != in.Name && other.Label == in.Label {
			return fmt.Errorf("%w: %q is already used by %q", ErrDuplicateLabel, in.Label, name)
		}
	}
	r.insights[in.Name] = in
	return nil
}

// Lookup returns the insight registered under name.
func (r *Registry) Lookup(name string) (Insight, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.insights[name]
	return in, ok
}

// Names lists registered insight names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.insights))
	for name := range r.insights {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Compute evaluates the named insights over entries in the order given.
// Names that are not registered are skipped and returned in missing.
func (r *Registry) Compute(names []string, entries []model.Entry) (results []Result, missing []string) {
	results = make([]Result, 0, len(names))
	for _, name := range names {
		in, ok := r.Lookup(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		results = append(results, Result{Name: in.Name, Label: in.Label, Value: in.Calculate(entries)})
	}
	return results, missing
}

// ComputeMap is Compute keyed by label. Register keeps labels unique, so
// every computed insight has its own key.
func (r *Registry) ComputeMap(names []string, entries []model.Entry) map[string]string {
	results, _ := r.Compute(names, entries)
	out := make(map[string]string, len(results))
	for _, res := range results {
		out[res.Label] = res.Value
	}
	return out
}

// Names of the built-in insights.
const (
	InsightMostActiveWeekday     = "most_active_weekday"
	InsightTotalValue            = "total_value"
	InsightAverageValue          = "average_value"
	InsightMostFrequentIntensity = "most_frequent_intensity"
	InsightHighestValueDay       = "highest_value_day"
	InsightIntensityDistribution = "intensity_distribution"
)

// BuiltinInsights returns the insights every registry starts with.
func BuiltinInsights() []Insight {
	return []Insight{
		{Name: InsightMostActiveWeekday, Label: "The most active day of the week", Calculate: mostActiveWeekday},
		{Name: InsightTotalValue, Label: "Total Value", Calculate: totalValue},
		{Name: InsightAverageValue, Label: "Average Value", Calculate: averageValue},
		{Name: InsightMostFrequentIntensity, Label: "Most Frequent Intensity", Calculate: mostFrequentIntensity},
		{Name: InsightHighestValueDay, Label: "Day with the Highest Value", Calculate: highestValueDay},
		{Name: InsightIntensityDistribution, Label: "Intensity Distribution", Calculate: intensityDistribution},
	}
}

func valueOf(e model.Entry) float64 {
	if e.Value == nil {
		return 0
	}
	return *e.Value
}

func intensityOf(e model.Entry) int {
	if e.Intensity == nil {
		return 0
	}
	return *e.Intensity
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// mostActiveWeekday names the weekday with the most entries. Ties go to the
// weekday seen first.
func mostActiveWeekday(entries []model.Entry) string {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		t, err := calendar.ParseDate(e.Date)
		if err != nil {
			continue
		}
		day := t.Weekday().String()
		if counts[day] == 0 {
			order = append(order, day)
		}
		counts[day]++
	}
	best, bestCount := "", 0
	for _, day := range order {
		if counts[day] > bestCount {
			best, bestCount = day, counts[day]
		}
	}
	return best
}

func totalValue(entries []model.Entry) string {
	total := 0.0
	for _, e := range entries {
		total += valueOf(e)
	}
	return formatNumber(total)
}

// averageValue is the mean value over all entries, entries without a value
// counting as 0, with two decimals.
func averageValue(entries []model.Entry) string {
	if len(entries) == 0 {
		return "0.00"
	}
	xs := make([]float64, len(entries))
	for i, e := range entries {
		xs[i] = valueOf(e)
	}
	return strconv.FormatFloat(moremath.Mean(xs), 'f', 2, 64)
}

// mostFrequentIntensity returns the bucket that occurs most often. Ties go to
// the lower bucket; uncolored entries count as bucket 0.
func mostFrequentIntensity(entries []model.Entry) string {
	counts := intensityCounts(entries)
	if len(counts) == 0 {
		return ""
	}
	keys := sortedKeys(counts)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return strconv.Itoa(best)
}

// highestValueDay returns the date of the first entry holding the largest
// value.
func highestValueDay(entries []model.Entry) string {
	if len(entries) == 0 {
		return "No data"
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if valueOf(e) > valueOf(best) {
			best = e
		}
	}
	if best.Date == "" {
		return "No data"
	}
	return best.Date
}

func intensityDistribution(entries []model.Entry) string {
	counts := intensityCounts(entries)
	parts := make([]string, 0, len(counts))
	for _, k := range sortedKeys(counts) {
		parts = append(parts, fmt.Sprintf("Intensity %d: %d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

func intensityCounts(entries []model.Entry) map[int]int {
	counts := make(map[int]int)
	for _, e := range entries {
		counts[intensityOf(e)]++
	}
	return counts
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
