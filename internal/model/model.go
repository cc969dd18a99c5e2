package model

import "time"

// Entry is one dated observation supplied by a caller, a config file, the
// entry store or an ICS feed.
type Entry struct {
	// Date is an ISO-8601 calendar date (YYYY-MM-DD) or a parseable variant.
	// It is validated before any use.
	Date string `yaml:"date" json:"date"`

	// Value is the raw observation on the caller's own scale.
	Value *float64 `yaml:"value,omitempty" json:"value,omitempty"`

	// Intensity is the bucket index 1..N after normalization. Older configs
	// put the raw value here; the normalizer reads it as raw when Value is
	// absent and always overwrites it in its output.
	Intensity *int `yaml:"intensity,omitempty" json:"intensity,omitempty"`

	// CustomColor bypasses the color ramp when set.
	CustomColor string `yaml:"custom_color,omitempty" json:"custom_color,omitempty"`

	// Content and Metadata are opaque to the pipeline and copied to the cell.
	Content  any `yaml:"content,omitempty" json:"content,omitempty"`
	Metadata any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// ColorsList is an ordered color ramp, lowest intensity first.
type ColorsList []string

// Palettes maps a palette name to its ramp.
type Palettes map[string]ColorsList

// ColorScheme selects the ramp for a tracker. CustomColors wins over
// PaletteName, which wins over the "default" palette.
type ColorScheme struct {
	PaletteName  string     `yaml:"palette_name,omitempty" json:"palette_name,omitempty"`
	CustomColors ColorsList `yaml:"custom_colors,omitempty" json:"custom_colors,omitempty"`
}

// IntensityConfig is the per-tracker normalization policy.
type IntensityConfig struct {
	// ScaleStart and ScaleEnd fix the bucket range; either may be nil to
	// derive it from the year's values. Order does not matter.
	ScaleStart *float64 `yaml:"scale_start" json:"scale_start"`
	ScaleEnd   *float64 `yaml:"scale_end" json:"scale_end"`

	// DefaultIntensity is the raw value used for entries without one.
	DefaultIntensity float64 `yaml:"default_intensity" json:"default_intensity"`

	// ShowOutOfRange maps values outside the scale onto the nearest bucket
	// instead of leaving them uncolored.
	ShowOutOfRange bool `yaml:"show_out_of_range" json:"show_out_of_range"`
}

// Cell is one position in the rendered grid. Filler cells have
// IsSpaceBetweenBox set and carry nothing else.
type Cell struct {
	Date              string `json:"date,omitempty"`
	BackgroundColor   string `json:"background_color,omitempty"`
	Content           any    `json:"content,omitempty"`
	Metadata          any    `json:"metadata,omitempty"`
	IsToday           bool   `json:"is_today,omitempty"`
	ShowBorder        bool   `json:"show_border,omitempty"`
	HasData           bool   `json:"has_data"`
	Name              string `json:"name,omitempty"`
	IsSpaceBetweenBox bool   `json:"is_space_between_box,omitempty"`
}

// StreakResult reports consecutive-day runs. Bounds are nil when the
// matching streak is zero.
type StreakResult struct {
	CurrentStreak      int        `json:"current_streak"`
	LongestStreak      int        `json:"longest_streak"`
	CurrentStreakStart *time.Time `json:"current_streak_start,omitempty"`
	CurrentStreakEnd   *time.Time `json:"current_streak_end,omitempty"`
	LongestStreakStart *time.Time `json:"longest_streak_start,omitempty"`
	LongestStreakEnd   *time.Time `json:"longest_streak_end,omitempty"`
}

// TrackerData is everything a caller supplies for one heatmap.
type TrackerData struct {
	Year                 int             `yaml:"year" json:"year"`
	Entries              []Entry         `yaml:"entries" json:"entries"`
	ColorScheme          ColorScheme     `yaml:"color_scheme" json:"color_scheme"`
	IntensityConfig      IntensityConfig `yaml:"intensity" json:"intensity"`
	ShowCurrentDayBorder bool            `yaml:"show_current_day_border" json:"show_current_day_border"`

	// SeparateMonths overrides Settings.SeparateMonths when non-nil.
	SeparateMonths *bool `yaml:"separate_months,omitempty" json:"separate_months,omitempty"`

	HeatmapTitle    string `yaml:"title,omitempty" json:"title,omitempty"`
	HeatmapSubtitle string `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`

	// Insights names registered insight functions to evaluate.
	Insights []string `yaml:"insights,omitempty" json:"insights,omitempty"`
}

// WeekDisplayMode controls which weekday row labels are shown.
type WeekDisplayMode string

const (
	WeekDisplayEven WeekDisplayMode = "even"
	WeekDisplayOdd  WeekDisplayMode = "odd"
	WeekDisplayAll  WeekDisplayMode = "all"
	WeekDisplayNone WeekDisplayMode = "none"
)

// View names used as keys of Settings.ViewTabsVisibility.
const (
	ViewHeatmap       = "heatmap-tracker"
	ViewStatistics    = "heatmap-tracker-statistics"
	ViewDocumentation = "documentation"
	ViewLegend        = "legend"
)

// Settings is the host-wide configuration shared by every tracker.
type Settings struct {
	Palettes           Palettes        `yaml:"palettes" json:"palettes"`
	WeekStartDay       int             `yaml:"week_start_day" json:"week_start_day"`
	WeekDisplayMode    WeekDisplayMode `yaml:"week_display_mode" json:"week_display_mode"`
	SeparateMonths     bool            `yaml:"separate_months" json:"separate_months"`
	Language           string          `yaml:"language" json:"language"`
	ViewTabsVisibility map[string]bool `yaml:"view_tabs_visibility" json:"view_tabs_visibility"`
}

// Float returns a pointer to v. Handy for building entries and scales.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
