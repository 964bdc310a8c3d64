package config

import (
	"strings"
	"testing"
)

func findings(results []ValidationResult, level string) []string {
	var out []string
	for _, r := range results {
		if r.Level == level {
			out = append(out, r.Message)
		}
	}
	return out
}

func TestValidateDefaultIsClean(t *testing.T) {
	if results := Default().Validate(); len(results) != 0 {
		t.Fatalf("default config has findings: %+v", results)
	}
	if err := Default().Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	cfg := Default()
	cfg.Detection.MaxConcurrency = -1
	cfg.Detection.DefaultTimeout = 0
	cfg.Detection.Platform = "plan9"
	cfg.Detection.IncludeCategories = []string{"runtimes", "editors"}
	cfg.Detection.ExcludeCategories = []string{"editors"}
	cfg.Cache.ResultTTL = -1
	cfg.Log.Level = "chatty"

	errs := findings(cfg.Validate(), "error")
	joined := strings.Join(errs, "\n")
	for _, want := range []string{
		"max_concurrency must not be negative",
		"default_timeout must be positive",
		"detection.platform",
		`"editors" is both included and excluded`,
		"result_ttl must be positive",
		"log.level",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing finding %q in:\n%s", want, joined)
		}
	}
	if err := cfg.Err(); err == nil || !strings.Contains(err.Error(), "log.level") {
		t.Fatalf("Err = %v", err)
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.Detection.MaxConcurrency = 128
	cfg.Detection.Bounded = boolPtr(false)

	warnings := findings(cfg.Validate(), "warning")
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v", warnings)
	}
	if err := cfg.Err(); err != nil {
		t.Fatalf("warnings must not fail validation: %v", err)
	}
}
