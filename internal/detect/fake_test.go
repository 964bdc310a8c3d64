package detect

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"

	"devprobe/internal/runner"
	"devprobe/internal/sysinfo"
)

type fakeOutput struct {
	stdout string
	stderr string
	err    error
	panic  bool
}

type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]fakeOutput
	calls   map[string]int
	opts    map[string]runner.RunOptions
}

func newFakeRunner(outputs map[string]fakeOutput) *fakeRunner {
	return &fakeRunner{outputs: outputs, calls: map[string]int{}, opts: map[string]runner.RunOptions{}}
}

func (f *fakeRunner) Run(ctx context.Context, command string, args []string, opts runner.RunOptions) (runner.RunResult, error) {
	base := filepath.Base(command)
	f.mu.Lock()
	f.calls[base]++
	f.opts[base] = opts
	out, ok := f.outputs[base]
	f.mu.Unlock()

	if !ok {
		return runner.RunResult{}, fmt.Errorf("fake runner: unexpected command %s", base)
	}
	if out.panic {
		panic("probe exploded")
	}
	if err := ctx.Err(); err != nil {
		return runner.RunResult{}, err
	}
	return runner.RunResult{Stdout: []byte(out.stdout), Stderr: []byte(out.stderr)}, out.err
}

func (f *fakeRunner) lastOptions(name string) runner.RunOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts[name]
}

func (f *fakeRunner) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// fakeLookPath resolves every name to /usr/bin except the missing ones.
func fakeLookPath(missing ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, m := range missing {
			if m == name {
				return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
			}
		}
		return "/usr/bin/" + name, nil
	}
}

func cmdRule(category, name string, essential bool) Rule {
	return Rule{
		Name:      name,
		Category:  category,
		Essential: essential,
		Strategies: []Strategy{
			{Method: MethodCommand, Platform: sysinfo.Linux, Command: name, Args: []string{"--version"}},
		},
	}
}

func linuxInfo(context.Context) (sysinfo.Info, error) {
	return sysinfo.Info{Platform: sysinfo.Linux, Arch: "amd64", Hostname: "test"}, nil
}
