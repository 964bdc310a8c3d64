package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"devprobe/internal/paths"
	"devprobe/internal/runner"
	"devprobe/internal/sysinfo"
)

const testRulesYAML = `category: testing
description: Tools used by the CLI tests
tools:
  - name: alpha
    essential: true
    minimum_version: "1.0.0"
    strategies:
      - method: command
        platforms: [linux, macos, windows]
        command: alpha --version
  - name: beta
    essential: true
    strategies:
      - method: command
        platforms: [linux, macos, windows]
        command: beta --version
  - name: gamma
    strategies:
      - method: path
        platforms: [linux, macos, windows]
        command: gamma
`

// fakeRunner answers version probes from a table keyed by base name.
type fakeRunner map[string]string

func (f fakeRunner) Run(ctx context.Context, command string, _ []string, _ runner.RunOptions) (runner.RunResult, error) {
	out, ok := f[filepath.Base(command)]
	if !ok {
		return runner.RunResult{}, fmt.Errorf("unexpected command %s", command)
	}
	if err := ctx.Err(); err != nil {
		return runner.RunResult{}, err
	}
	return runner.RunResult{Stdout: []byte(out)}, nil
}

// setupHome points DEVPROBE_HOME at a temp dir holding the test rules and
// replaces the host collaborators with fakes.
func setupHome(t *testing.T) paths.Paths {
	t.Helper()

	root := t.TempDir()
	t.Setenv(paths.HomeEnv, root)
	t.Setenv(ConfigEnv, "")
	t.Setenv("DEVPROBE_LOG_LEVEL", "")
	t.Setenv("CI", "")

	pp, err := paths.Resolve()
	if err != nil {
		t.Fatalf("resolve paths: %v", err)
	}
	if err := pp.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pp.RulesDir, "testing.yaml"), []byte(testRulesYAML), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	prevRunner, prevSys, prevLook := newRunner, systemInfoFunc, lookPathFunc
	t.Cleanup(func() {
		newRunner, systemInfoFunc, lookPathFunc = prevRunner, prevSys, prevLook
	})

	newRunner = func() runner.Runner {
		return fakeRunner{"alpha": "alpha version 1.2.3"}
	}
	systemInfoFunc = func(context.Context) (sysinfo.Info, error) {
		return sysinfo.Info{Platform: sysinfo.Linux, Arch: "amd64", Distro: "ubuntu", DistroVersion: "24.04", Hostname: "ci", CPUs: 4}, nil
	}
	lookPathFunc = func(name string) (string, error) {
		switch name {
		case "alpha", "gamma":
			return "/fake/bin/" + name, nil
		}
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return pp
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
