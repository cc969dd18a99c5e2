package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/heatmap"
	"heatmaptracker/internal/model"
)

// ICSConfig describes a single ICS subscription source whose events become
// tracker entries.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup, logging and tagging the
	// stored entries the feed produced.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// TrackerConfig is one heatmap: its rendering options, inline entries and
// the ICS feeds that contribute to it.
type TrackerConfig struct {
	ID string `yaml:"id" json:"id"`

	model.TrackerData `yaml:",inline"`

	ICS []ICSConfig `yaml:"ics,omitempty" json:"ics,omitempty"`
}

// UnmarshalYAML decodes a tracker on top of the tracker defaults, so keys
// missing from the file keep their default value.
func (t *TrackerConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain TrackerConfig
	p := plain(DefaultTracker(""))
	if err := value.Decode(&p); err != nil {
		return err
	}
	*t = TrackerConfig(p)
	return nil
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// DataDir holds the entry database, the ICS cache and PNG exports.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// RefreshCron is a cron-style schedule string (e.g. "*/30 * * * *")
	// for ICS re-ingest and PNG export.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// Settings are shared by every tracker.
	Settings model.Settings `yaml:"settings" json:"settings"`

	Trackers []TrackerConfig `yaml:"trackers" json:"trackers"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultDataDir     = "./data"
	defaultRefreshCron = "*/30 * * * *"
	defaultLogLevel    = "info"
)

// DefaultSettings returns the shared settings a new install starts with.
func DefaultSettings() model.Settings {
	return model.Settings{
		Palettes:        heatmap.DefaultPalettes(),
		WeekStartDay:    1,
		WeekDisplayMode: model.WeekDisplayEven,
		SeparateMonths:  true,
		Language:        "en",
		ViewTabsVisibility: map[string]bool{
			model.ViewHeatmap:       true,
			model.ViewStatistics:    true,
			model.ViewLegend:        true,
			model.ViewDocumentation: true,
		},
	}
}

// DefaultTracker returns a tracker with every option at its default.
func DefaultTracker(id string) TrackerConfig {
	return TrackerConfig{
		ID: id,
		TrackerData: model.TrackerData{
			ColorScheme: model.ColorScheme{PaletteName: heatmap.DefaultPaletteName},
			IntensityConfig: model.IntensityConfig{
				DefaultIntensity: 4,
				ShowOutOfRange:   true,
			},
			ShowCurrentDayBorder: true,
		},
	}
}

// DefaultConfig returns an in-memory default configuration, including one
// example tracker so a first run has something to show.
func DefaultConfig() *Config {
	example := DefaultTracker("example")
	example.HeatmapTitle = "Example"
	example.Insights = []string{"total_value", "average_value", "most_active_weekday"}

	return &Config{
		Listen:      defaultListen,
		LogLevel:    defaultLogLevel,
		DataDir:     defaultDataDir,
		RefreshCron: defaultRefreshCron,
		Settings:    DefaultSettings(),
		Trackers:    []TrackerConfig{example},
		BasicAuth:   nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}

	if c.Settings.Palettes == nil {
		c.Settings.Palettes = model.Palettes{}
	}
	if len(c.Settings.Palettes[heatmap.DefaultPaletteName]) == 0 {
		c.Settings.Palettes[heatmap.DefaultPaletteName] = heatmap.DefaultPalettes()[heatmap.DefaultPaletteName]
	}
	if c.Settings.WeekDisplayMode == "" {
		c.Settings.WeekDisplayMode = model.WeekDisplayEven
	}
	if c.Settings.Language == "" {
		c.Settings.Language = "en"
	}
	if c.Settings.ViewTabsVisibility == nil {
		c.Settings.ViewTabsVisibility = DefaultSettings().ViewTabsVisibility
	}
	if c.Trackers == nil {
		c.Trackers = []TrackerConfig{}
	}
}

// Validate reports configuration that would make every render fail.
func (c *Config) Validate() error {
	if err := calendar.ValidateWeekStartDay(c.Settings.WeekStartDay); err != nil {
		return fmt.Errorf("settings.week_start_day: %w", err)
	}
	seen := make(map[string]bool, len(c.Trackers))
	for i, t := range c.Trackers {
		if t.ID == "" {
			return fmt.Errorf("trackers[%d]: id is required", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("trackers[%d]: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
		if t.Year != 0 {
			if err := calendar.ValidateYear(t.Year); err != nil {
				return fmt.Errorf("tracker %q: %w", t.ID, err)
			}
		}
		for j, src := range t.ICS {
			if src.URL == "" {
				return fmt.Errorf("tracker %q: ics[%d]: url is required", t.ID, j)
			}
		}
	}
	return nil
}

// Tracker returns the tracker with the given id.
func (c *Config) Tracker(id string) (*TrackerConfig, bool) {
	for i := range c.Trackers {
		if c.Trackers[i].ID == id {
			return &c.Trackers[i], true
		}
	}
	return nil, false
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML on top of the defaults
//   - normalize and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.Trackers = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".heatmaptracker-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
