package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the detection, caching and logging settings.
type Config struct {
	Version   int             `yaml:"version"`
	RulesDir  string          `yaml:"rules_dir,omitempty"`
	Detection DetectionConfig `yaml:"detection"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
	Watch     WatchConfig     `yaml:"watch"`
}

// DetectionConfig controls how scans run.
type DetectionConfig struct {
	Parallel          *bool         `yaml:"parallel,omitempty"`
	Bounded           *bool         `yaml:"bounded,omitempty"`
	MaxConcurrency    int           `yaml:"max_concurrency"`
	DefaultTimeout    time.Duration `yaml:"default_timeout"`
	Platform          string        `yaml:"platform,omitempty"`
	IncludeCategories []string      `yaml:"include_categories,omitempty"`
	ExcludeCategories []string      `yaml:"exclude_categories,omitempty"`
}

// CacheConfig sizes the result and memo caches.
type CacheConfig struct {
	Enabled         *bool         `yaml:"enabled,omitempty"`
	ResultTTL       time.Duration `yaml:"result_ttl"`
	SystemInfoTTL   time.Duration `yaml:"system_info_ttl"`
	MemoMaxBytes    int64         `yaml:"memo_max_bytes"`
	MemoTTL         time.Duration `yaml:"memo_ttl"`
	FrequencyWeight time.Duration `yaml:"frequency_weight"`
}

// LogConfig sets the log level and whether a log file is written.
type LogConfig struct {
	Level string `yaml:"level"`
	File  bool   `yaml:"file"`
}

// WatchConfig drives the watch command.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
	Debounce time.Duration `yaml:"debounce"`
}

// ParallelValue returns the effective parallel flag applying defaults.
func (d DetectionConfig) ParallelValue() bool {
	if d.Parallel == nil {
		return true
	}
	return *d.Parallel
}

// BoundedValue returns the effective bounded flag applying defaults.
func (d DetectionConfig) BoundedValue() bool {
	if d.Bounded == nil {
		return true
	}
	return *d.Bounded
}

// EnabledValue returns whether result caching is on, defaulting to true.
func (c CacheConfig) EnabledValue() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Detection: DetectionConfig{
			Parallel:       boolPtr(true),
			Bounded:        boolPtr(true),
			DefaultTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:         boolPtr(true),
			ResultTTL:       5 * time.Minute,
			SystemInfoTTL:   30 * time.Minute,
			MemoMaxBytes:    10 << 20,
			MemoTTL:         10 * time.Minute,
			FrequencyWeight: time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Interval: time.Minute,
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits them. MaxConcurrency stays zero so the CPU-based default is
// chosen at scan time.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.Detection.Parallel == nil {
		c.Detection.Parallel = boolPtr(true)
	}
	if c.Detection.Bounded == nil {
		c.Detection.Bounded = boolPtr(true)
	}
	if c.Detection.DefaultTimeout == 0 {
		c.Detection.DefaultTimeout = defaults.Detection.DefaultTimeout
	}
	if c.Cache.Enabled == nil {
		c.Cache.Enabled = boolPtr(true)
	}
	if c.Cache.ResultTTL == 0 {
		c.Cache.ResultTTL = defaults.Cache.ResultTTL
	}
	if c.Cache.SystemInfoTTL == 0 {
		c.Cache.SystemInfoTTL = defaults.Cache.SystemInfoTTL
	}
	if c.Cache.MemoMaxBytes == 0 {
		c.Cache.MemoMaxBytes = defaults.Cache.MemoMaxBytes
	}
	if c.Cache.MemoTTL == 0 {
		c.Cache.MemoTTL = defaults.Cache.MemoTTL
	}
	if c.Cache.FrequencyWeight == 0 {
		c.Cache.FrequencyWeight = defaults.Cache.FrequencyWeight
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Watch.Interval == 0 {
		c.Watch.Interval = defaults.Watch.Interval
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = defaults.Watch.Debounce
	}
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func boolPtr(v bool) *bool {
	return &v
}
