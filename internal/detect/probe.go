package detect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"devprobe/internal/cache"
	"devprobe/internal/runner"
)

// DefaultProbeTimeout bounds a probe whose strategy sets no timeout.
const DefaultProbeTimeout = 5 * time.Second

// Prober executes a single strategy against the host.
type Prober struct {
	runner         runner.Runner
	defaultTimeout time.Duration
	lookups        *cache.Perf[string]
	patterns       *cache.Perf[*regexp.Regexp]
	logger         *log.Logger

	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	homeDir  func() (string, error)
}

// ProberOptions wires a Prober. Nil fields get working defaults.
type ProberOptions struct {
	Runner         runner.Runner
	DefaultTimeout time.Duration
	Lookups        *cache.Perf[string]
	Patterns       *cache.Perf[*regexp.Regexp]
	Logger         *log.Logger
	// LookPath resolves command names. Defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// NewProber returns a Prober backed by the given options.
func NewProber(opts ProberOptions) *Prober {
	p := &Prober{
		runner:         opts.Runner,
		defaultTimeout: opts.DefaultTimeout,
		lookups:        opts.Lookups,
		patterns:       opts.Patterns,
		logger:         opts.Logger,
		lookPath:       exec.LookPath,
		stat:           os.Stat,
		homeDir:        os.UserHomeDir,
	}
	if opts.LookPath != nil {
		p.lookPath = opts.LookPath
	}
	if p.runner == nil {
		p.runner = runner.CmdRunner{}
	}
	if p.defaultTimeout <= 0 {
		p.defaultTimeout = DefaultProbeTimeout
	}
	if p.lookups == nil {
		p.lookups = cache.NewPerf[string](cache.DefaultPerfOptions())
	}
	if p.patterns == nil {
		p.patterns = NewPatternCache(cache.DefaultPerfOptions())
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	return p
}

// NewPatternCache returns a memo cache for compiled version patterns.
// Compiled expressions do not encode to JSON, so the source length stands
// in for their size.
func NewPatternCache(opts cache.PerfOptions) *cache.Perf[*regexp.Regexp] {
	return cache.NewPerf[*regexp.Regexp](opts).WithSizer(func(key string, _ *regexp.Regexp) int64 {
		return int64(len(key)) * 8
	})
}

// Probe detects rule's tool with strategy. Failures are reported in the
// returned Result, never as a panic or error.
func (p *Prober) Probe(ctx context.Context, rule Rule, strategy Strategy) Result {
	var res Result
	switch strategy.Method {
	case MethodCommand:
		res = p.probeCommand(ctx, rule, strategy)
	case MethodPath:
		res = p.probePath(rule, strategy)
	case MethodAppFolder:
		res = p.probeAppFolder(ctx, rule, strategy)
	default:
		res = notFound(rule, strategy.Method, fmt.Errorf("unknown detection method %q", strategy.Method), nowFunc())
	}

	if res.Found && res.Version != "" && rule.MinimumVersion != "" {
		res.BelowMinimum = !MeetsMinimum(res.Version, rule.MinimumVersion)
	}
	return res
}

func (p *Prober) probeCommand(ctx context.Context, rule Rule, strategy Strategy) Result {
	path, err := p.lookup(strategy.Command)
	if err != nil {
		return notFound(rule, MethodCommand, err, nowFunc())
	}

	version, err := p.readVersion(ctx, path, strategy)
	if err != nil {
		res := notFound(rule, MethodCommand, err, nowFunc())
		res.InstallPath = path
		return res
	}
	return found(rule, MethodCommand, path, version)
}

func (p *Prober) probePath(rule Rule, strategy Strategy) Result {
	path, err := p.lookup(strategy.Command)
	if err != nil {
		return notFound(rule, MethodPath, err, nowFunc())
	}
	return found(rule, MethodPath, path, "")
}

func (p *Prober) probeAppFolder(ctx context.Context, rule Rule, strategy Strategy) Result {
	for _, candidate := range strategy.Paths {
		path := p.expandPath(candidate)
		if _, err := p.stat(path); err != nil {
			continue
		}

		var version string
		if strategy.Command != "" {
			if bin, err := p.lookup(strategy.Command); err == nil {
				v, verr := p.readVersion(ctx, bin, strategy)
				if verr != nil {
					p.logger.Debug("version probe failed", "tool", rule.Name, "path", path, "err", verr)
				}
				version = v
			}
		}
		return found(rule, MethodAppFolder, path, version)
	}
	return notFound(rule, MethodAppFolder,
		fmt.Errorf("%s not found in %d candidate locations", rule.Name, len(strategy.Paths)), nowFunc())
}

func found(rule Rule, method Method, path, version string) Result {
	return Result{
		Tool:        rule.Name,
		Category:    rule.Category,
		Found:       true,
		Version:     version,
		InstallPath: path,
		Method:      method,
		Essential:   rule.Essential,
		Timestamp:   nowFunc(),
	}
}

func (p *Prober) lookup(name string) (string, error) {
	return p.lookups.GetOrCompute(name, func() (string, error) {
		path, err := p.lookPath(name)
		if err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				return "", fmt.Errorf("%s not found in PATH", name)
			}
			return "", err
		}
		return path, nil
	})
}

func (p *Prober) readVersion(ctx context.Context, path string, strategy Strategy) (string, error) {
	timeout := strategy.Timeout
	if timeout <= 0 {
		timeout = p.defaultTimeout
	}

	opts := runner.RunOptions{Timeout: timeout, Env: strategy.Env}
	if strategy.Dir != "" {
		opts.Dir = p.expandPath(strategy.Dir)
	}
	out, err := p.runner.Run(ctx, path, strategy.Args, opts)
	if err != nil {
		return "", err
	}

	raw := strings.TrimSpace(string(out.Stdout))
	if raw == "" {
		raw = strings.TrimSpace(string(out.Stderr))
	}
	if raw == "" {
		return "", nil
	}

	var pattern *regexp.Regexp
	if strategy.VersionPattern != "" {
		pattern, err = p.patterns.GetOrCompute(strategy.VersionPattern, func() (*regexp.Regexp, error) {
			return regexp.Compile(strategy.VersionPattern)
		})
		if err != nil {
			p.logger.Warn("invalid version pattern", "pattern", strategy.VersionPattern, "err", err)
		}
	}

	version, matched := extractWithPattern(pattern, raw)
	if !matched {
		p.logger.Debug("no version pattern matched; using first line", "command", strategy.Command, "version", version)
	}
	return version, nil
}

// expandPath resolves a leading ~ and $VAR references.
func (p *Prober) expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := p.homeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.FromSlash(os.ExpandEnv(path))
}
