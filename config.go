package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cogentcore.org/core/math32"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// configEnvVar names the environment variable consulted when --config is
// not given. There is no other discovery: without either, defaults apply.
const configEnvVar = "SCHEDSCRUB_CONFIG"

// Config holds every externally configurable setting
type Config struct {
	// Schedule is the schedule text source, a file path or http(s) URL.
	Schedule string `yaml:"schedule"`

	// Separator splits the fields of a schedule row.
	Separator string `yaml:"separator"`

	// Scene is the path of the scene description file.
	Scene string `yaml:"scene"`

	// Location is the IANA zone for timestamps without an offset.
	// Empty means the local zone.
	Location string `yaml:"location"`

	// Strict rejects the whole schedule when any row is malformed. When
	// false, malformed rows are logged and dropped.
	Strict bool `yaml:"strict"`

	// ReadyTimeout bounds the wait for the scene to finish loading.
	ReadyTimeout time.Duration `yaml:"ready_timeout"`

	// TimeStep is how far Ctrl+N / Ctrl+P move in schedule time.
	TimeStep time.Duration `yaml:"time_step"`

	// PageStep is how far Ctrl+V / Alt+V move in schedule time.
	PageStep time.Duration `yaml:"page_step"`

	// PlayInterval is the wall-clock delay between playback ticks.
	PlayInterval time.Duration `yaml:"play_interval"`

	// PlayStep is how far each playback tick advances schedule time.
	PlayStep time.Duration `yaml:"play_step"`

	// Watch reloads the schedule when its file changes.
	Watch bool `yaml:"watch"`

	Colors ColorConfig `yaml:"colors"`

	// ClipRegions replaces the built-in clip regions when non-empty.
	ClipRegions []ClipRegionConfig `yaml:"clip_regions"`
}

// ColorConfig holds status colors as hex strings
type ColorConfig struct {
	Delayed string `yaml:"delayed"`
	OnTime  string `yaml:"on_time"`
}

// ClipRegionConfig describes one named clip region
type ClipRegionConfig struct {
	Name   string            `yaml:"name"`
	Label  string            `yaml:"label"`
	Planes []ClipPlaneConfig `yaml:"planes"`
}

// ClipPlaneConfig describes a plane by normal and a point on it
type ClipPlaneConfig struct {
	Normal [3]float32 `yaml:"normal"`
	Point  [3]float32 `yaml:"point"`
}

// DefaultConfig returns the settings used when no config file is given
func DefaultConfig() Config {
	return Config{
		Schedule:     "steps.csv",
		Separator:    ";",
		Scene:        "scene.yaml",
		Strict:       true,
		ReadyTimeout: 20 * time.Second,
		TimeStep:     time.Hour,
		PageStep:     24 * time.Hour,
		PlayInterval: 100 * time.Millisecond,
		PlayStep:     time.Hour,
		Colors: ColorConfig{
			Delayed: DefaultStatusColors.Delayed.Hex(),
			OnTime:  DefaultStatusColors.OnTime.Hex(),
		},
	}
}

// resolveConfigPath returns the flag value if set, otherwise the
// environment variable, otherwise "".
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(configEnvVar)
}

// LoadConfig reads the config file at path over the defaults. YAML is the
// native format; .json and .jsonc files (comments and trailing commas
// allowed) are accepted too. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so one decoder handles both
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every setting is usable
func (c Config) Validate() error {
	if c.Schedule == "" {
		return fmt.Errorf("schedule must be set")
	}
	if c.Scene == "" {
		return fmt.Errorf("scene must be set")
	}
	if c.Separator == "" {
		return fmt.Errorf("separator must not be empty")
	}
	if c.Separator == "," {
		return fmt.Errorf("separator must differ from the element id separator \",\"")
	}
	for name, d := range map[string]time.Duration{
		"ready_timeout": c.ReadyTimeout,
		"time_step":     c.TimeStep,
		"page_step":     c.PageStep,
		"play_interval": c.PlayInterval,
		"play_step":     c.PlayStep,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if _, err := c.ParseOptions(); err != nil {
		return err
	}
	if _, err := c.StatusColors(); err != nil {
		return err
	}
	if _, err := c.ClipTable(); err != nil {
		return err
	}
	return nil
}

// ParseOptions returns the schedule parser settings
func (c Config) ParseOptions() (ParseOptions, error) {
	opts := ParseOptions{Separator: c.Separator, Location: time.Local}
	if c.Location != "" {
		loc, err := time.LoadLocation(c.Location)
		if err != nil {
			return opts, fmt.Errorf("unknown location %q: %w", c.Location, err)
		}
		opts.Location = loc
	}
	return opts, nil
}

// StatusColors parses the configured status colors
func (c Config) StatusColors() (StatusColors, error) {
	delayed, err := parseHexColor(c.Colors.Delayed)
	if err != nil {
		return StatusColors{}, fmt.Errorf("colors.delayed: %w", err)
	}
	onTime, err := parseHexColor(c.Colors.OnTime)
	if err != nil {
		return StatusColors{}, fmt.Errorf("colors.on_time: %w", err)
	}
	return StatusColors{Delayed: delayed, OnTime: onTime}, nil
}

// ClipTable builds the clip regions, falling back to the built-in table
func (c Config) ClipTable() (*ClipTable, error) {
	if len(c.ClipRegions) == 0 {
		return DefaultClipTable(), nil
	}

	regions := make([]ClipRegion, 0, len(c.ClipRegions))
	for _, rc := range c.ClipRegions {
		region := ClipRegion{Name: rc.Name, Label: rc.Label}
		for _, pc := range rc.Planes {
			plane, err := NewClipPlane(
				math32.Vec3(pc.Normal[0], pc.Normal[1], pc.Normal[2]),
				math32.Vec3(pc.Point[0], pc.Point[1], pc.Point[2]),
			)
			if err != nil {
				return nil, fmt.Errorf("clip region %q: %w", rc.Name, err)
			}
			region.Planes = append(region.Planes, plane)
		}
		regions = append(regions, region)
	}
	return NewClipTable(regions)
}

// parseHexColor converts #rrggbb into an RGB
func parseHexColor(value string) (RGB, error) {
	color, err := colorful.Hex(value)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", value, err)
	}
	r, g, b := color.RGB255()
	return RGB{Red: r, Green: g, Blue: b}, nil
}
