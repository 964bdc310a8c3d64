package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"devprobe/internal/cache"
	"devprobe/internal/config"
	"devprobe/internal/detect"
	"devprobe/internal/logx"
	"devprobe/internal/paths"
	"devprobe/internal/runner"
	"devprobe/internal/sysinfo"
)

// ConfigEnv points at an alternative config file.
const ConfigEnv = "DEVPROBE_CONFIG"

// Test hooks for the collaborators that touch the host.
var (
	newRunner      = func() runner.Runner { return runner.CmdRunner{} }
	systemInfoFunc = sysinfo.Detect
	lookPathFunc   func(string) (string, error)
)

// settings is the resolved on-disk state a command runs against.
type settings struct {
	paths      paths.Paths
	configFile string
	cfg        config.Config
}

func loadSettings() (settings, error) {
	pp, err := paths.Resolve()
	if err != nil {
		return settings{}, err
	}

	file := pp.ConfigFile
	if env := strings.TrimSpace(os.Getenv(ConfigEnv)); env != "" {
		file = pp.ResolveRelative(env)
	}
	if configPath != "" {
		file = pp.ResolveRelative(configPath)
	}

	cfg, err := config.Load(file)
	if err != nil {
		return settings{}, err
	}
	return settings{paths: pp, configFile: file, cfg: cfg}, nil
}

// rulesDir is the user rules directory from config, or the default.
func (s settings) rulesDir() string {
	if s.cfg.RulesDir != "" {
		return s.paths.ResolveRelative(s.cfg.RulesDir)
	}
	return s.paths.RulesDir
}

// detectOptions maps the config file onto detector options.
func detectOptions(cfg config.Config) (detect.Options, error) {
	opts := detect.DefaultOptions()
	opts.Parallel = cfg.Detection.ParallelValue()
	opts.Bounded = cfg.Detection.BoundedValue()
	if cfg.Detection.MaxConcurrency > 0 {
		opts.MaxConcurrency = cfg.Detection.MaxConcurrency
	}
	opts.DefaultTimeout = cfg.Detection.DefaultTimeout
	opts.CacheResults = cfg.Cache.EnabledValue()
	opts.CacheDuration = cfg.Cache.ResultTTL
	opts.SystemInfoTTL = cfg.Cache.SystemInfoTTL
	opts.IncludeCategories = cfg.Detection.IncludeCategories
	opts.ExcludeCategories = cfg.Detection.ExcludeCategories
	if cfg.Detection.Platform != "" {
		platform, err := sysinfo.ParsePlatform(cfg.Detection.Platform)
		if err != nil {
			return detect.Options{}, err
		}
		opts.Platform = platform
	}
	return opts, nil
}

// caches are built once per process and survive detector rebuilds.
type caches struct {
	results  *cache.TTL[string, detect.Result]
	system   *cache.TTL[string, sysinfo.Info]
	lookups  *cache.Perf[string]
	patterns *cache.Perf[*regexp.Regexp]
}

func newCaches(cfg config.Config) caches {
	memo := cache.PerfOptions{
		MaxBytes:        cfg.Cache.MemoMaxBytes,
		TTL:             cfg.Cache.MemoTTL,
		FrequencyWeight: cfg.Cache.FrequencyWeight,
	}
	return caches{
		results:  cache.NewTTL[string, detect.Result](cfg.Cache.ResultTTL),
		system:   cache.NewTTL[string, sysinfo.Info](cfg.Cache.SystemInfoTTL),
		lookups:  cache.NewPerf[string](memo),
		patterns: detect.NewPatternCache(memo),
	}
}

// engine bundles what a detection command needs.
type engine struct {
	settings
	logger   *log.Logger
	closer   io.Closer
	caches   caches
	detector *detect.Detector
}

// newEngine loads config and rules and builds a detector. With quiet set,
// log lines go only to the log file so they do not tear the progress table.
func newEngine(cmd *cobra.Command, quiet bool) (*engine, error) {
	st, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if err := st.cfg.Err(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", st.configFile, err)
	}

	level := st.cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	var out io.Writer = cmd.ErrOrStderr()
	if quiet {
		out = io.Discard
	}
	logsDir := ""
	if logToFile || st.cfg.Log.File {
		logsDir = st.paths.LogsDir
	}
	logger, closer, err := logx.New(logx.Options{
		Level:   level,
		Output:  out,
		Prefix:  "devprobe",
		LogsDir: logsDir,
	})
	if err != nil {
		return nil, err
	}

	eng := &engine{
		settings: st,
		logger:   logger,
		closer:   closer,
		caches:   newCaches(st.cfg),
	}
	if eng.detector, err = eng.build(st); err != nil {
		closer.Close()
		return nil, err
	}
	return eng, nil
}

// build loads the rules st points at and constructs a detector over the
// shared caches.
func (e *engine) build(st settings) (*detect.Detector, error) {
	opts, err := detectOptions(st.cfg)
	if err != nil {
		return nil, err
	}
	registry, err := detect.LoadRegistry(st.rulesDir())
	if err != nil {
		return nil, err
	}
	return detect.New(registry, opts, detect.Deps{
		Runner:     newRunner(),
		Results:    e.caches.results,
		System:     e.caches.system,
		Lookups:    e.caches.lookups,
		Patterns:   e.caches.patterns,
		SystemInfo: systemInfoFunc,
		LookPath:   lookPathFunc,
		Logger:     e.logger.WithPrefix("detect"),
	}), nil
}

// reload re-reads the config file and rules. On error the engine keeps
// its previous settings and detector. Cache sizing changes take effect on
// the next process start.
func (e *engine) reload() error {
	st, err := loadSettings()
	if err != nil {
		return err
	}
	if err := st.cfg.Err(); err != nil {
		return fmt.Errorf("invalid config %s: %w", st.configFile, err)
	}
	det, err := e.build(st)
	if err != nil {
		return err
	}
	e.settings = st
	e.detector = det
	e.detector.ClearCache("")
	return nil
}

func (e *engine) Close() {
	if e.closer != nil {
		e.closer.Close()
	}
}
