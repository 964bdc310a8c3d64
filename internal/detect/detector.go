// Package detect discovers which developer tools are installed on the host
// and at what version.
package detect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"devprobe/internal/batch"
	"devprobe/internal/cache"
	"devprobe/internal/runner"
	"devprobe/internal/sysinfo"
)

var nowFunc = time.Now

var (
	// ErrUnknownTool is returned for a tool name with no registered rule.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrUnknownCategory is returned when a requested category is not registered.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrScanInProgress is returned when DetectTools is called while another
	// scan on the same Detector is running.
	ErrScanInProgress = errors.New("detection already in progress")
)

// State is the orchestrator's position in a scan.
type State string

const (
	StateIdle                State = "idle"
	StateDetectingSystemInfo State = "detecting-system-info"
	StateScanningCategories  State = "scanning-categories"
	StateAggregating         State = "aggregating"
	StateComplete            State = "complete"
	StateError               State = "error"
)

const (
	DefaultCacheDuration = 5 * time.Minute
	DefaultSystemInfoTTL = 30 * time.Minute

	systemInfoKey = "system"
)

// Options configures a Detector.
type Options struct {
	// Parallel scans categories through the batch processor.
	Parallel bool
	// MaxConcurrency caps concurrent category scans when Bounded is set.
	MaxConcurrency int
	Bounded        bool
	// DefaultTimeout applies to strategies without their own timeout.
	DefaultTimeout time.Duration
	CacheResults   bool
	CacheDuration  time.Duration
	SystemInfoTTL  time.Duration
	// IncludeCategories, when set, restricts scans to these categories.
	IncludeCategories []string
	ExcludeCategories []string
	// Platform overrides the detected platform for strategy resolution.
	Platform sysinfo.Platform
}

// DefaultOptions returns parallel, bounded, cached detection.
func DefaultOptions() Options {
	return Options{
		Parallel:       true,
		MaxConcurrency: batch.DefaultConcurrency(),
		Bounded:        true,
		DefaultTimeout: DefaultProbeTimeout,
		CacheResults:   true,
		CacheDuration:  DefaultCacheDuration,
		SystemInfoTTL:  DefaultSystemInfoTTL,
	}
}

// Deps are the collaborators a Detector uses. Caches are shared with the
// caller so their lifetime can outlive one Detector. Nil fields get
// private defaults.
type Deps struct {
	Runner     runner.Runner
	Results    *cache.TTL[string, Result]
	System     *cache.TTL[string, sysinfo.Info]
	Lookups    *cache.Perf[string]
	Patterns   *cache.Perf[*regexp.Regexp]
	SystemInfo func(context.Context) (sysinfo.Info, error)
	LookPath   func(string) (string, error)
	Logger     *log.Logger
}

// Detector orchestrates scans over a Registry.
type Detector struct {
	registry *Registry
	opts     Options
	prober   *Prober
	results  *cache.TTL[string, Result]
	system   *cache.TTL[string, sysinfo.Info]
	lookups  *cache.Perf[string]
	sysinfo  func(context.Context) (sysinfo.Info, error)
	logger   *log.Logger

	scanning atomic.Bool
	mu       sync.Mutex
	state    State
}

// New returns an idle Detector over registry.
func New(registry *Registry, opts Options, deps Deps) *Detector {
	if opts.CacheDuration <= 0 {
		opts.CacheDuration = DefaultCacheDuration
	}
	if opts.SystemInfoTTL <= 0 {
		opts.SystemInfoTTL = DefaultSystemInfoTTL
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultProbeTimeout
	}

	d := &Detector{
		registry: registry,
		opts:     opts,
		results:  deps.Results,
		system:   deps.System,
		lookups:  deps.Lookups,
		sysinfo:  deps.SystemInfo,
		logger:   deps.Logger,
		state:    StateIdle,
	}
	if d.results == nil {
		d.results = cache.NewTTL[string, Result](opts.CacheDuration)
	}
	if d.system == nil {
		d.system = cache.NewTTL[string, sysinfo.Info](opts.SystemInfoTTL)
	}
	if d.lookups == nil {
		d.lookups = cache.NewPerf[string](cache.DefaultPerfOptions())
	}
	if d.sysinfo == nil {
		d.sysinfo = sysinfo.Detect
	}
	if d.logger == nil {
		d.logger = log.New(io.Discard)
	}
	d.prober = NewProber(ProberOptions{
		Runner:         deps.Runner,
		DefaultTimeout: opts.DefaultTimeout,
		Lookups:        d.lookups,
		Patterns:       deps.Patterns,
		Logger:         d.logger,
		LookPath:       deps.LookPath,
	})
	return d
}

// State reports where the most recent scan is.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Detector) setState(s State) {
	d.mu.Lock()
	prev := d.state
	d.state = s
	d.mu.Unlock()
	if prev != s {
		d.logger.Debug("state", "from", prev, "to", s)
	}
}

// Rules returns every registered rule.
func (d *Detector) Rules() []Rule {
	return d.registry.Rules()
}

// Categories returns registered category names in registration order.
func (d *Detector) Categories() []string {
	return d.registry.CategoryNames()
}

// Registry exposes the rules the Detector scans.
func (d *Detector) Registry() *Registry {
	return d.registry
}

// ClearCache drops the cached result for tool. An empty name clears every
// cached result, the system info, and memoized PATH lookups.
func (d *Detector) ClearCache(tool string) {
	if tool == "" {
		d.results.Clear()
		d.system.Clear()
		d.lookups.Clear()
		d.logger.Debug("cache cleared")
		return
	}
	d.results.Delete(tool)
	if rule, ok := d.registry.Rule(tool); ok {
		for _, s := range rule.Strategies {
			if s.Command != "" {
				d.lookups.Delete(s.Command)
			}
		}
	}
	d.logger.Debug("cache cleared", "tool", tool)
}

// SystemInfo returns host facts, cached for the configured TTL. A failed
// or cancelled host query is logged and its partial info used for this
// call only, so the next call queries the host again.
func (d *Detector) SystemInfo(ctx context.Context) sysinfo.Info {
	if info, ok := d.system.Get(systemInfoKey); ok {
		return info
	}
	info, err := d.sysinfo(ctx)
	if err != nil {
		d.logger.Warn("system info incomplete", "err", err)
	}
	if info.Platform == "" {
		info.Platform = sysinfo.Current()
	}
	if err == nil && ctx.Err() == nil {
		d.system.Set(systemInfoKey, info)
	}
	return info
}

func (d *Detector) platform(info sysinfo.Info) sysinfo.Platform {
	if d.opts.Platform != "" {
		return d.opts.Platform
	}
	return info.Platform
}

// DetectTool detects a single tool, using the cached result while it is
// fresh.
func (d *Detector) DetectTool(ctx context.Context, name string) (Result, error) {
	rule, ok := d.registry.Rule(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	platform := d.platform(d.SystemInfo(ctx))
	res := d.detectRule(ctx, rule, platform)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return res, nil
}

// detectRule never fails: every probe outcome, including a panic inside
// the prober, becomes a Result.
func (d *Detector) detectRule(ctx context.Context, rule Rule, platform sysinfo.Platform) (res Result) {
	if d.opts.CacheResults {
		if cached, ok := d.results.Get(rule.Name); ok {
			d.logger.Debug("cache hit", "tool", rule.Name)
			return cached
		}
	}

	strategy, ok := Resolve(rule, platform)
	if !ok {
		res = notFound(rule, "", fmt.Errorf("no detection strategy for platform %s", platform), nowFunc())
	} else {
		res = d.safeProbe(ctx, rule, strategy)
	}

	d.logger.Debug("probe", "tool", rule.Name, "found", res.Found, "version", res.Version, "method", res.Method, "err", res.Error)
	if d.opts.CacheResults && ctx.Err() == nil {
		d.results.Set(rule.Name, res)
	}
	return res
}

func (d *Detector) safeProbe(ctx context.Context, rule Rule, strategy Strategy) (res Result) {
	start := nowFunc()
	defer func() {
		if r := recover(); r != nil {
			res = notFound(rule, strategy.Method, fmt.Errorf("probe panicked: %v", r), start)
		}
	}()
	return d.prober.Probe(ctx, rule, strategy)
}

// selectCategories resolves the requested names against the registry and
// applies the include and exclude filters.
func (d *Detector) selectCategories(requested []string) ([]Category, error) {
	names := requested
	if len(names) == 0 {
		names = d.registry.CategoryNames()
	}

	var out []Category
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		cat, ok := d.registry.Category(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		if len(d.opts.IncludeCategories) > 0 && !slices.Contains(d.opts.IncludeCategories, name) {
			continue
		}
		if slices.Contains(d.opts.ExcludeCategories, name) {
			continue
		}
		out = append(out, cat)
	}
	return out, nil
}

// Plan returns the categories DetectTools would scan for the requested
// names, after the include and exclude filters.
func (d *Detector) Plan(categories []string) ([]Category, error) {
	return d.selectCategories(categories)
}

// DetectTools scans categories and returns a report. With no categories
// every registered category is scanned. onEvent may be nil.
//
// Individual probe failures are reported in the results. Only context
// cancellation or a panic outside a probe fails the scan, in which case a
// detection-error event is emitted and the error returned.
func (d *Detector) DetectTools(ctx context.Context, categories []string, onEvent EventFunc) (*Report, error) {
	if !d.scanning.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer d.scanning.Store(false)

	selected, err := d.selectCategories(categories)
	if err != nil {
		return nil, err
	}

	scan := newScanState(uuid.NewString(), selected, onEvent)
	started := scan.progress.StartedAt
	d.logger.Info("detection started", "scan", scan.id, "categories", len(selected), "tools", scan.progress.ToolsTotal)

	report, err := d.runScan(ctx, scan, selected)
	if err != nil {
		return nil, d.fail(scan, err)
	}

	report.StartedAt = started
	d.setState(StateComplete)
	d.logger.Info("detection completed", "scan", scan.id,
		"found", report.Summary.TotalFound, "checked", report.Summary.TotalChecked,
		"essential_missing", report.Summary.EssentialMissing, "elapsed", report.Duration)
	if err := scan.deliver(Event{Type: EventDetectionCompleted, Report: report}); err != nil {
		return nil, d.fail(scan, err)
	}
	return report, nil
}

// fail moves the detector to the error state and reports err to the
// event consumer.
func (d *Detector) fail(scan *scanState, err error) error {
	d.setState(StateError)
	d.logger.Error("detection failed", "scan", scan.id, "err", err)
	if derr := scan.deliver(Event{Type: EventDetectionError, Err: err}); derr != nil {
		d.logger.Error("detection-error handler failed", "scan", scan.id, "err", derr)
	}
	return err
}

func (d *Detector) runScan(ctx context.Context, scan *scanState, categories []Category) (report *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detection panicked: %v", r)
		}
	}()

	scan.emit(Event{Type: EventDetectionStarted}, nil)

	d.setState(StateDetectingSystemInfo)
	info := d.SystemInfo(ctx)
	platform := d.platform(info)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.setState(StateScanningCategories)
	var reports []CategoryReport
	if d.opts.Parallel {
		reports, err = batch.Run(ctx, batch.Options{MaxConcurrency: d.opts.MaxConcurrency, Bounded: d.opts.Bounded}, categories,
			func(ctx context.Context, cat Category, _ int) (CategoryReport, error) {
				return d.scanCategory(ctx, scan, cat, platform)
			})
		if err != nil {
			return nil, err
		}
	} else {
		reports = make([]CategoryReport, 0, len(categories))
		for _, cat := range categories {
			rep, err := d.scanCategory(ctx, scan, cat, platform)
			if err != nil {
				return nil, err
			}
			reports = append(reports, rep)
		}
	}

	d.setState(StateAggregating)
	elapsed := nowFunc().Sub(scan.snapshot().StartedAt)
	return &Report{
		ScanID:     scan.id,
		Platform:   platform,
		System:     info,
		Categories: reports,
		Summary:    summarize(reports, elapsed),
		Duration:   elapsed,
	}, nil
}

// scanCategory probes rules in declaration order. Per-tool failures are
// recovered into results; only cancellation aborts the category.
func (d *Detector) scanCategory(ctx context.Context, scan *scanState, cat Category, platform sysinfo.Platform) (CategoryReport, error) {
	start := nowFunc()
	scan.emit(Event{Type: EventCategoryStarted, Category: cat.Name}, func(p *Progress) {
		p.CurrentCategory = cat.Name
	})

	results := make([]Result, 0, len(cat.Rules))
	for _, rule := range cat.Rules {
		if err := ctx.Err(); err != nil {
			return CategoryReport{}, err
		}
		res := d.detectRule(ctx, rule, platform)
		if err := ctx.Err(); err != nil {
			return CategoryReport{}, err
		}
		results = append(results, res)
		scan.emit(Event{Type: EventToolDetected, Category: cat.Name, Result: &res}, func(p *Progress) {
			p.ToolsDone++
			p.CurrentTool = rule.Name
		})
	}

	rep := CategoryReport{
		Name:        cat.Name,
		Description: cat.Description,
		Results:     results,
		Summary:     summarizeCategory(results),
		Duration:    nowFunc().Sub(start),
	}
	scan.emit(Event{Type: EventCategoryCompleted, Category: cat.Name, CategoryReport: &rep}, func(p *Progress) {
		p.CategoriesDone++
	})
	return rep, nil
}
