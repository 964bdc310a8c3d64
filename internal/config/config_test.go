package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Detection.ParallelValue() || !cfg.Detection.BoundedValue() || !cfg.Cache.EnabledValue() {
		t.Fatalf("unexpected default flags %+v", cfg)
	}
	if cfg.Cache.ResultTTL != 5*time.Minute || cfg.Cache.SystemInfoTTL != 30*time.Minute {
		t.Fatalf("unexpected default ttls %+v", cfg.Cache)
	}
}

func TestLoadPartialAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
detection:
  parallel: false
  max_concurrency: 3
  default_timeout: 2s
  exclude_categories: [editors]
cache:
  result_ttl: 1m
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Detection.ParallelValue() {
		t.Fatal("parallel override ignored")
	}
	if !cfg.Detection.BoundedValue() {
		t.Fatal("bounded default not applied")
	}
	if cfg.Detection.MaxConcurrency != 3 || cfg.Detection.DefaultTimeout != 2*time.Second {
		t.Fatalf("detection = %+v", cfg.Detection)
	}
	if cfg.Cache.ResultTTL != time.Minute || cfg.Cache.SystemInfoTTL != 30*time.Minute {
		t.Fatalf("cache = %+v", cfg.Cache)
	}
	if cfg.Log.Level != "debug" || cfg.Watch.Interval != time.Minute {
		t.Fatalf("log/watch = %+v %+v", cfg.Log, cfg.Watch)
	}
	if len(cfg.Detection.ExcludeCategories) != 1 || cfg.Detection.ExcludeCategories[0] != "editors" {
		t.Fatalf("exclude = %v", cfg.Detection.ExcludeCategories)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("detection: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unmarshal config") {
		t.Fatalf("expected unmarshal error, got %v", err)
	}
}

func TestMarshalRoundTripsDurations(t *testing.T) {
	buf, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(buf), "result_ttl: 5m0s") {
		t.Fatalf("durations not written as strings:\n%s", buf)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.ResultTTL != 5*time.Minute {
		t.Fatalf("result ttl = %s", cfg.Cache.ResultTTL)
	}
}
