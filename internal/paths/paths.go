package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the location of the devprobe directory.
const HomeEnv = "DEVPROBE_HOME"

// Paths captures the canonical locations devprobe reads and writes.
type Paths struct {
	Root       string
	ConfigFile string
	RulesDir   string
	LogsDir    string
	EnvFile    string
}

// Resolve returns the devprobe directory layout. DEVPROBE_HOME wins over
// the default ~/.devprobe.
func Resolve() (Paths, error) {
	if root := strings.TrimSpace(os.Getenv(HomeEnv)); root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return Paths{}, fmt.Errorf("resolve %s: %w", HomeEnv, err)
		}
		return newPaths(abs), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("detect user home: %w", err)
	}
	return newPaths(filepath.Join(home, ".devprobe")), nil
}

func newPaths(root string) Paths {
	return Paths{
		Root:       root,
		ConfigFile: filepath.Join(root, "config.yaml"),
		RulesDir:   filepath.Join(root, "rules"),
		LogsDir:    filepath.Join(root, "logs"),
		EnvFile:    filepath.Join(root, ".env"),
	}
}

// ResolveRelative anchors a relative path at the devprobe root and expands
// a leading ~.
func (p Paths) ResolveRelative(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			value = filepath.Join(home, strings.TrimPrefix(value, "~"))
		}
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(p.Root, value)
}

// EnsureDirs creates the root, rules and logs directories.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.Root, p.RulesDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
