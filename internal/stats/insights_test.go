package stats

import (
	"errors"
	"reflect"
	"strconv"
	"testing"

	"heatmaptracker/internal/model"
)

var sample = []model.Entry{
	{Date: "2023-01-02", Value: model.Float(1), Intensity: model.Int(1)},
	{Date: "2023-01-03", Value: model.Float(5), Intensity: model.Int(3)},
	{Date: "2023-01-09", Value: model.Float(5), Intensity: model.Int(3)},
	{Date: "2023-01-16"},
}

func TestBuiltinInsights(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		name string
		want string
	}{
		{InsightMostActiveWeekday, "Monday"},
		{InsightTotalValue, "11"},
		{InsightAverageValue, "2.75"},
		{InsightMostFrequentIntensity, "3"},
		{InsightHighestValueDay, "2023-01-03"},
		{InsightIntensityDistribution, "Intensity 0: 1, Intensity 1: 1, Intensity 3: 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := r.Lookup(tt.name)
			if !ok {
				t.Fatalf("%s not registered", tt.name)
			}
			if got := in.Calculate(sample); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuiltinInsightsEmpty(t *testing.T) {
	r := DefaultRegistry()
	want := map[string]string{
		InsightMostActiveWeekday:     "",
		InsightTotalValue:            "0",
		InsightAverageValue:          "0.00",
		InsightMostFrequentIntensity: "",
		InsightHighestValueDay:       "No data",
		InsightIntensityDistribution: "",
	}
	for name, w := range want {
		in, _ := r.Lookup(name)
		if got := in.Calculate(nil); got != w {
			t.Errorf("%s on empty = %q, want %q", name, got, w)
		}
	}
}

func TestRegistryCompute(t *testing.T) {
	r := DefaultRegistry()
	if err := r.Register(Insight{
		Name:      "entry_count",
		Calculate: func(es []model.Entry) string { return strconv.Itoa(len(es)) },
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	results, missing := r.Compute([]string{"entry_count", "unknown", InsightTotalValue}, sample)
	want := []Result{
		{Name: "entry_count", Label: "entry_count", Value: "4"},
		{Name: InsightTotalValue, Label: "Total Value", Value: "11"},
	}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("Compute = %+v, want %+v", results, want)
	}
	if !reflect.DeepEqual(missing, []string{"unknown"}) {
		t.Errorf("missing = %v", missing)
	}

	m := r.ComputeMap([]string{InsightAverageValue}, sample)
	if m["Average Value"] != "2.75" || len(m) != 1 {
		t.Errorf("ComputeMap = %v", m)
	}
}

func TestRegistryRegisterErrors(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Insight{Calculate: totalValue}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := r.Register(Insight{Name: "x"}); err == nil {
		t.Error("expected error for missing calculate")
	}
	if len(r.Names()) != 0 {
		t.Errorf("names = %v, want none", r.Names())
	}
}

func TestRegistryRejectsDuplicateLabel(t *testing.T) {
	r := DefaultRegistry()
	count := func(es []model.Entry) string { return strconv.Itoa(len(es)) }

	err := r.Register(Insight{Name: "sum", Label: "Total Value", Calculate: count})
	if !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("Register = %v, want ErrDuplicateLabel", err)
	}
	if _, ok := r.Lookup("sum"); ok {
		t.Error("rejected insight was registered")
	}
	// A default label clashes the same way.
	if err := r.Register(Insight{Name: "x", Label: "Count", Calculate: count}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(Insight{Name: "Count", Calculate: count}); !errors.Is(err, ErrDuplicateLabel) {
		t.Errorf("default label clash = %v", err)
	}

	// Re-registering under the same name keeps its label.
	if err := r.Register(Insight{Name: InsightTotalValue, Label: "Total Value", Calculate: count}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	m := r.ComputeMap([]string{InsightTotalValue, InsightAverageValue}, sample)
	if len(m) != 2 || m["Total Value"] != "4" || m["Average Value"] != "2.75" {
		t.Errorf("ComputeMap = %v", m)
	}
}
