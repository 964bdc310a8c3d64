package detect

import (
	"errors"
	"fmt"
	"time"

	"devprobe/internal/sysinfo"
)

// Method selects how a strategy looks for a tool.
type Method string

const (
	// MethodCommand locates an executable on PATH and runs it for a version.
	MethodCommand Method = "command"
	// MethodAppFolder checks candidate install locations on disk.
	MethodAppFolder Method = "app-folder"
	// MethodPath only checks that an executable is on PATH.
	MethodPath Method = "path"
)

// ParseMethod validates a method name from a rule file.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodCommand, MethodAppFolder, MethodPath:
		return m, nil
	case "":
		return MethodCommand, nil
	default:
		return "", fmt.Errorf("unknown detection method %q", s)
	}
}

// Strategy is a platform-specific way to detect one tool.
type Strategy struct {
	Method   Method           `json:"method"`
	Platform sysinfo.Platform `json:"platform"`
	// Command and Args are the executable to find or run.
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	// Paths are candidate locations for MethodAppFolder.
	Paths          []string      `json:"paths,omitempty"`
	VersionPattern string        `json:"version_pattern,omitempty"`
	Timeout        time.Duration `json:"timeout,omitempty"`
	// Dir is the working directory of the version command. Env entries
	// are KEY=VALUE pairs added to the inherited environment.
	Dir string   `json:"dir,omitempty"`
	Env []string `json:"env,omitempty"`
}

func (s Strategy) validate() error {
	switch s.Method {
	case MethodCommand, MethodPath:
		if s.Command == "" {
			return fmt.Errorf("%s strategy for %s has no command", s.Method, s.Platform)
		}
	case MethodAppFolder:
		if len(s.Paths) == 0 {
			return fmt.Errorf("app-folder strategy for %s has no paths", s.Platform)
		}
	default:
		return fmt.Errorf("unknown detection method %q", s.Method)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", s.Timeout)
	}
	return nil
}

// Rule describes how to detect one tool across platforms.
type Rule struct {
	Name           string     `json:"name"`
	Category       string     `json:"category"`
	Description    string     `json:"description,omitempty"`
	Essential      bool       `json:"essential"`
	MinimumVersion string     `json:"minimum_version,omitempty"`
	Strategies     []Strategy `json:"strategies"`
}

// Validate reports structural problems with the rule.
func (r Rule) Validate() error {
	if r.Name == "" {
		return errors.New("rule has no name")
	}
	if r.Category == "" {
		return fmt.Errorf("rule %s has no category", r.Name)
	}
	if len(r.Strategies) == 0 {
		return fmt.Errorf("rule %s has no detection strategies", r.Name)
	}
	var errs []error
	for i, s := range r.Strategies {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("rule %s strategy %d: %w", r.Name, i, err))
		}
	}
	return errors.Join(errs...)
}

// Resolve returns the first strategy declared for platform.
func Resolve(rule Rule, platform sysinfo.Platform) (Strategy, bool) {
	for _, s := range rule.Strategies {
		if s.Platform == platform {
			return s, true
		}
	}
	return Strategy{}, false
}

// Platforms lists the distinct platforms the rule has strategies for, in
// declaration order.
func (r Rule) Platforms() []sysinfo.Platform {
	seen := make(map[sysinfo.Platform]bool, len(r.Strategies))
	var out []sysinfo.Platform
	for _, s := range r.Strategies {
		if !seen[s.Platform] {
			seen[s.Platform] = true
			out = append(out, s.Platform)
		}
	}
	return out
}

// Result is the outcome of detecting one tool. A result with Found unset
// never carries a version.
type Result struct {
	Tool         string    `json:"tool"`
	Category     string    `json:"category"`
	Found        bool      `json:"found"`
	Version      string    `json:"version,omitempty"`
	InstallPath  string    `json:"install_path,omitempty"`
	Method       Method    `json:"method,omitempty"`
	Error        string    `json:"error,omitempty"`
	BelowMinimum bool      `json:"below_minimum,omitempty"`
	Essential    bool      `json:"essential"`
	Timestamp    time.Time `json:"timestamp"`
}

func notFound(rule Rule, method Method, err error, at time.Time) Result {
	res := Result{
		Tool:      rule.Name,
		Category:  rule.Category,
		Method:    method,
		Essential: rule.Essential,
		Timestamp: at,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}
