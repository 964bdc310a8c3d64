package cli

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"devprobe/internal/config"
	"devprobe/internal/detect"
	"devprobe/internal/sysinfo"
)

func writeConfig(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestToolCommand(t *testing.T) {
	setupHome(t)

	stdout, _, err := execute(t, "tool", "alpha")
	if err != nil {
		t.Fatalf("tool returned error: %v", err)
	}
	if !strings.Contains(stdout, "Version:   1.2.3") || !strings.Contains(stdout, "Path:      /fake/bin/alpha") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestToolCommandUnknown(t *testing.T) {
	setupHome(t)

	_, _, err := execute(t, "tool", "zeta")
	if !errors.Is(err, detect.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestToolCommandHasNoRefreshFlag(t *testing.T) {
	setupHome(t)

	_, _, err := execute(t, "tool", "alpha", "--refresh")
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Fatalf("expected unknown flag error, got %v", err)
	}
}

func TestRulesCommandForPlatform(t *testing.T) {
	setupHome(t)

	stdout, _, err := execute(t, "rules", "testing", "--platform", "windows")
	if err != nil {
		t.Fatalf("rules returned error: %v", err)
	}
	if !strings.Contains(stdout, "Platform: windows") {
		t.Errorf("expected platform header:\n%s", stdout)
	}
	if !strings.Contains(stdout, "alpha --version") || !strings.Contains(stdout, "gamma") {
		t.Errorf("expected resolved strategies:\n%s", stdout)
	}
}

func TestRulesCommandJSON(t *testing.T) {
	setupHome(t)

	stdout, _, err := execute(t, "rules", "testing", "--json")
	if err != nil {
		t.Fatalf("rules returned error: %v", err)
	}
	var views []ruleView
	if err := json.Unmarshal([]byte(stdout), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 3 || views[0].Tool != "alpha" || !views[0].Supported || views[0].MinimumVersion != "1.0.0" {
		t.Errorf("unexpected views: %+v", views)
	}
}

func TestSysinfoJSON(t *testing.T) {
	setupHome(t)

	stdout, _, err := execute(t, "sysinfo", "--json")
	if err != nil {
		t.Fatalf("sysinfo returned error: %v", err)
	}
	var info sysinfo.Info
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Platform != sysinfo.Linux || info.Distro != "ubuntu" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestConfigShowUsesFlagPath(t *testing.T) {
	pp := setupHome(t)
	custom := filepath.Join(pp.Root, "custom.yaml")
	writeConfig(t, custom, "detection:\n  default_timeout: 9s\n")

	stdout, _, err := execute(t, "config", "show", "--config", custom)
	if err != nil {
		t.Fatalf("config show returned error: %v", err)
	}
	if !strings.Contains(stdout, "# "+custom) || !strings.Contains(stdout, "default_timeout: 9s") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestConfigEnvOverride(t *testing.T) {
	pp := setupHome(t)
	writeConfig(t, filepath.Join(pp.Root, "env.yaml"), "log:\n  level: debug\n")
	t.Setenv(ConfigEnv, "env.yaml")

	st, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if st.configFile != filepath.Join(pp.Root, "env.yaml") || st.cfg.Log.Level != "debug" {
		t.Errorf("settings = %+v", st)
	}
}

func TestConfigValidateReportsErrors(t *testing.T) {
	pp := setupHome(t)
	writeConfig(t, pp.ConfigFile, "detection:\n  max_concurrency: -2\n")

	stdout, _, err := execute(t, "config", "validate")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(stdout, "error: detection.max_concurrency") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestConfigValidateOK(t *testing.T) {
	setupHome(t)

	stdout, _, err := execute(t, "config", "validate")
	if err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
	if !strings.Contains(stdout, ": ok") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestInitCreatesHome(t *testing.T) {
	pp := setupHome(t)

	stdout, _, err := execute(t, "init")
	if err != nil {
		t.Fatalf("init returned error: %v", err)
	}
	if !strings.Contains(stdout, "wrote "+pp.ConfigFile) {
		t.Errorf("unexpected output:\n%s", stdout)
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.Detection.DefaultTimeout != 5*time.Second {
		t.Errorf("default timeout = %s", cfg.Detection.DefaultTimeout)
	}
	if _, err := os.Stat(filepath.Join(pp.RulesDir, exampleRulesFile)); err != nil {
		t.Errorf("example rules missing: %v", err)
	}

	stdout, _, err = execute(t, "init")
	if err != nil {
		t.Fatalf("second init returned error: %v", err)
	}
	if !strings.Contains(stdout, "kept existing") {
		t.Errorf("expected existing config to be kept:\n%s", stdout)
	}
}

func TestDoctorJSON(t *testing.T) {
	setupHome(t)

	stdout, _, err := execute(t, "doctor", "--json")
	if err != nil {
		t.Fatalf("doctor returned error: %v", err)
	}
	var checks []healthCheck
	if err := json.Unmarshal([]byte(stdout), &checks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	byName := map[string]healthCheck{}
	for _, c := range checks {
		byName[c.Name] = c
	}
	if byName["Config"].Status != "ok" || byName["Rules"].Status != "ok" {
		t.Errorf("unexpected checks: %+v", checks)
	}
	// beta is essential and missing; built-in essentials are missing too.
	if ess := byName["Essentials"]; ess.Status != "error" || !strings.Contains(ess.Summary, "beta") {
		t.Errorf("essentials = %+v", ess)
	}
}

func TestDetectOptionsMapping(t *testing.T) {
	cfg := config.Default()
	off := false
	cfg.Detection.Parallel = &off
	cfg.Detection.MaxConcurrency = 3
	cfg.Detection.Platform = "darwin"
	cfg.Detection.ExcludeCategories = []string{"editors"}
	cfg.Cache.Enabled = &off
	cfg.Cache.ResultTTL = time.Minute

	opts, err := detectOptions(cfg)
	if err != nil {
		t.Fatalf("detectOptions: %v", err)
	}
	if opts.Parallel || !opts.Bounded || opts.MaxConcurrency != 3 {
		t.Errorf("concurrency options = %+v", opts)
	}
	if opts.Platform != sysinfo.MacOS || opts.CacheResults || opts.CacheDuration != time.Minute {
		t.Errorf("options = %+v", opts)
	}
	if !reflect.DeepEqual(opts.ExcludeCategories, []string{"editors"}) {
		t.Errorf("exclude = %v", opts.ExcludeCategories)
	}

	cfg.Detection.Platform = "beos"
	if _, err := detectOptions(cfg); err == nil {
		t.Error("expected error for unknown platform")
	}
}

func TestSplitEditorCommand(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"vi", []string{"vi"}},
		{"code -w", []string{"code", "-w"}},
		{`"/Applications/Sublime Text/subl" -w`, []string{"/Applications/Sublime Text/subl", "-w"}},
	}
	for _, tt := range tests {
		got, err := splitEditorCommand(tt.input)
		if err != nil {
			t.Fatalf("splitEditorCommand(%q): %v", tt.input, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitEditorCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
	if _, err := splitEditorCommand("   "); err == nil {
		t.Error("expected error for empty EDITOR")
	}
}

func TestLoadEnvFileKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("DEVPROBE_TEST_FRESH=from-file\nDEVPROBE_TEST_SET=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEVPROBE_TEST_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("DEVPROBE_TEST_FRESH") })

	if err := loadEnvFile(envPath); err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	if got := os.Getenv("DEVPROBE_TEST_FRESH"); got != "from-file" {
		t.Errorf("DEVPROBE_TEST_FRESH = %q", got)
	}
	if got := os.Getenv("DEVPROBE_TEST_SET"); got != "from-env" {
		t.Errorf("DEVPROBE_TEST_SET = %q, want from-env", got)
	}
	if err := loadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing file should be ignored: %v", err)
	}
}
