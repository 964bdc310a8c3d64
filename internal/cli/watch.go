package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"devprobe/internal/detect"
	"devprobe/internal/paths"
)

var watchInterval time.Duration

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [category...]",
		Short: "Rescan periodically and whenever rules or config change",
		RunE:  runWatch,
	}
	cmd.Flags().DurationVar(&watchInterval, "interval", 0, "Time between rescans (default from config)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	eng, err := newEngine(cmd, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	watched := &watchSet{add: fsw.Add, logger: eng.logger}
	watched.update(watchTargets(eng.settings))

	interval := eng.cfg.Watch.Interval
	if watchInterval > 0 {
		interval = watchInterval
	}

	out := cmd.OutOrStdout()
	w := &watcher{
		interval: interval,
		debounce: eng.cfg.Watch.Debounce,
		events:   fsw.Events,
		errors:   fsw.Errors,
		relevant: watched.relevant,
		logger:   eng.logger,
		scan: func(ctx context.Context) error {
			report, err := eng.detector.DetectTools(ctx, args, nil)
			if err != nil {
				return err
			}
			return writeWatchReport(out, report)
		},
		reload: func() error {
			if err := eng.reload(); err != nil {
				return err
			}
			watched.update(watchTargets(eng.settings))
			return nil
		},
	}
	err = w.run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// targets lists directories to watch and which files in them matter.
type targets struct {
	dirs  []string
	files map[string]bool
	rules string
}

func watchTargets(st settings) targets {
	t := targets{files: map[string]bool{}}
	configDir := filepath.Dir(st.configFile)
	if ok, _ := paths.DirExists(configDir); ok {
		t.dirs = append(t.dirs, configDir)
		t.files[filepath.Clean(st.configFile)] = true
	}
	rules := st.rulesDir()
	if ok, _ := paths.DirExists(rules); ok && rules != configDir {
		t.dirs = append(t.dirs, rules)
	}
	t.rules = filepath.Clean(rules)
	return t
}

// relevant reports whether a change to name should trigger a reload.
func (t targets) relevant(name string) bool {
	name = filepath.Clean(name)
	if t.files[name] {
		return true
	}
	if filepath.Dir(name) != t.rules {
		return false
	}
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// watchSet follows the current targets. Directories stay watched once
// added; relevant filters by the latest targets only.
type watchSet struct {
	add     func(dir string) error
	logger  *log.Logger
	current targets
}

func (s *watchSet) update(t targets) {
	s.current = t
	for _, dir := range t.dirs {
		if err := s.add(dir); err != nil {
			s.logger.Warn("cannot watch directory", "dir", dir, "err", err)
		}
	}
}

func (s *watchSet) relevant(name string) bool {
	return s.current.relevant(name)
}

// watcher drives periodic scans and reloads on file changes. Bursts of
// change events within debounce collapse into one reload.
type watcher struct {
	interval time.Duration
	debounce time.Duration
	events   <-chan fsnotify.Event
	errors   <-chan error
	relevant func(name string) bool
	logger   *log.Logger

	scan   func(ctx context.Context) error
	reload func() error
}

func (w *watcher) run(ctx context.Context) error {
	if err := w.scan(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	debounce := time.NewTimer(w.debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if err := w.scan(ctx); err != nil {
				return err
			}

		case ev, ok := <-w.events:
			if !ok {
				w.events = nil
				continue
			}
			if ev.Op == fsnotify.Chmod || !w.relevant(ev.Name) {
				continue
			}
			w.logger.Debug("change detected", "file", ev.Name, "op", ev.Op.String())
			debounce.Reset(w.debounce)

		case err, ok := <-w.errors:
			if !ok {
				w.errors = nil
				continue
			}
			w.logger.Warn("watch error", "err", err)

		case <-debounce.C:
			if err := w.reload(); err != nil {
				// Keep the previous rules and config running.
				w.logger.Error("reload failed", "err", err)
				continue
			}
			w.logger.Info("rules reloaded, caches cleared")
			if err := w.scan(ctx); err != nil {
				return err
			}
		}
	}
}

func writeWatchReport(out io.Writer, report *detect.Report) error {
	if outputJSON {
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	fmt.Fprintf(out, "== %s ==\n", report.StartedAt.Format(time.RFC3339))
	printReport(out, report)
	printSummary(out, report)
	fmt.Fprintln(out)
	return nil
}
