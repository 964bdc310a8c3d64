package config

import (
	"errors"
	"fmt"
	"slices"

	"devprobe/internal/logx"
	"devprobe/internal/sysinfo"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// maxSaneConcurrency is where a warning starts; probes are process spawns.
const maxSaneConcurrency = 64

// Validate checks the configuration and returns every finding.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateDetection()...)
	results = append(results, c.validateCache()...)
	results = append(results, c.validateLog()...)
	results = append(results, c.validateWatch()...)
	return results
}

// Err joins the error-level findings of Validate, or returns nil.
func (c Config) Err() error {
	var errs []error
	for _, r := range c.Validate() {
		if r.Level == "error" {
			errs = append(errs, errors.New(r.Message))
		}
	}
	return errors.Join(errs...)
}

func errorf(format string, args ...any) ValidationResult {
	return ValidationResult{Level: "error", Message: fmt.Sprintf(format, args...)}
}

func warnf(format string, args ...any) ValidationResult {
	return ValidationResult{Level: "warning", Message: fmt.Sprintf(format, args...)}
}

func (c Config) validateDetection() []ValidationResult {
	var results []ValidationResult
	d := c.Detection
	if d.MaxConcurrency < 0 {
		results = append(results, errorf("detection.max_concurrency must not be negative (got %d)", d.MaxConcurrency))
	} else if d.MaxConcurrency > maxSaneConcurrency {
		results = append(results, warnf("detection.max_concurrency %d is unusually high", d.MaxConcurrency))
	}
	if d.DefaultTimeout <= 0 {
		results = append(results, errorf("detection.default_timeout must be positive"))
	}
	if d.Platform != "" {
		if _, err := sysinfo.ParsePlatform(d.Platform); err != nil {
			results = append(results, errorf("detection.platform: %v", err))
		}
	}
	if !d.BoundedValue() && d.MaxConcurrency > 0 {
		results = append(results, warnf("detection.max_concurrency is ignored when bounded is false"))
	}
	for _, name := range d.IncludeCategories {
		if slices.Contains(d.ExcludeCategories, name) {
			results = append(results, errorf("category %q is both included and excluded", name))
		}
	}
	return results
}

func (c Config) validateCache() []ValidationResult {
	var results []ValidationResult
	if c.Cache.ResultTTL <= 0 {
		results = append(results, errorf("cache.result_ttl must be positive"))
	}
	if c.Cache.SystemInfoTTL <= 0 {
		results = append(results, errorf("cache.system_info_ttl must be positive"))
	}
	if c.Cache.MemoMaxBytes < 0 {
		results = append(results, errorf("cache.memo_max_bytes must not be negative"))
	}
	if c.Cache.MemoTTL < 0 {
		results = append(results, errorf("cache.memo_ttl must not be negative"))
	}
	if c.Cache.FrequencyWeight < 0 {
		results = append(results, errorf("cache.frequency_weight must not be negative"))
	}
	return results
}

func (c Config) validateLog() []ValidationResult {
	if _, err := logx.ParseLevel(c.Log.Level); err != nil {
		return []ValidationResult{errorf("log.level: %v", err)}
	}
	return nil
}

func (c Config) validateWatch() []ValidationResult {
	var results []ValidationResult
	if c.Watch.Interval <= 0 {
		results = append(results, errorf("watch.interval must be positive"))
	}
	if c.Watch.Debounce < 0 {
		results = append(results, errorf("watch.debounce must not be negative"))
	}
	return results
}
