package cli

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"devprobe/internal/config"
	"devprobe/internal/detect"
)

func TestJoinComma(t *testing.T) {
	tests := []struct {
		input []string
		want  string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "a, b"},
		{[]string{"a", "b", "c"}, "a, b, c"},
	}

	for _, tt := range tests {
		got := joinComma(tt.input)
		if got != tt.want {
			t.Errorf("joinComma(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCheckConfigWithError(t *testing.T) {
	result := checkConfig(config.Config{}, fmt.Errorf("unmarshal config: bad yaml"))

	if result.Status != "error" {
		t.Errorf("got status=%q, want error", result.Status)
	}
	if result.Name != "Config" {
		t.Errorf("got name=%q, want Config", result.Name)
	}
}

func TestCheckConfigValid(t *testing.T) {
	result := checkConfig(config.Default(), nil)

	if result.Status != "ok" {
		t.Errorf("got status=%q, want ok", result.Status)
	}
}

func TestCheckConfigWarning(t *testing.T) {
	cfg := config.Default()
	cfg.Detection.MaxConcurrency = 500

	result := checkConfig(cfg, nil)
	if result.Status != "warning" {
		t.Errorf("got status=%q, want warning", result.Status)
	}
}

func TestCheckEssentials(t *testing.T) {
	report := &detect.Report{
		Categories: []detect.CategoryReport{{
			Name: "vcs",
			Results: []detect.Result{
				{Tool: "git", Found: true, Essential: true},
				{Tool: "gh", Essential: false},
			},
		}},
		Summary: detect.Summary{TotalChecked: 2, TotalFound: 1},
	}
	if got := checkEssentials(report); got.Status != "ok" || got.Summary != "1 of 2 tools found" {
		t.Errorf("checkEssentials = %+v", got)
	}

	report.Categories[0].Results[0].Found = false
	if got := checkEssentials(report); got.Status != "error" || got.Summary != "missing git" {
		t.Errorf("checkEssentials = %+v", got)
	}
}

func TestWriteDoctorResultTable(t *testing.T) {
	prevJSON := outputJSON
	defer func() { outputJSON = prevJSON }()
	outputJSON = false

	cmd := &cobra.Command{}
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)

	checks := []healthCheck{
		{Name: "Config", Status: "ok", Summary: "fine"},
		{Name: "Essentials", Status: "error", Summary: "missing git"},
	}
	if err := writeDoctorResult(cmd, "/home/dev/.devprobe", checks); err != nil {
		t.Fatalf("writeDoctorResult: %v", err)
	}
	got := stdout.String()
	for _, want := range []string{"/home/dev/.devprobe", "Config:", "OK", "Essentials:", "ERROR", "missing git"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
}
