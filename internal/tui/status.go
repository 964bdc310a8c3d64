package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// StatusWriter keeps a single spinner line up to date on a terminal while
// a scan runs without the live table.
type StatusWriter struct {
	out     io.Writer
	spin    spinner.Spinner
	mu      sync.Mutex
	text    string
	since   time.Time
	frame   int
	stop    chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewStatusWriter starts drawing to out until Stop is called.
func NewStatusWriter(out io.Writer) *StatusWriter {
	sw := &StatusWriter{
		out:   out,
		spin:  spinner.MiniDot,
		since: time.Now(),
		stop:  make(chan struct{}),
	}
	sw.wg.Add(1)
	go sw.run()
	return sw
}

// Update replaces the status text and restarts its timer.
func (sw *StatusWriter) Update(text string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.text = text
	sw.since = time.Now()
}

// Stop halts the spinner and erases the line. It is safe to call twice.
func (sw *StatusWriter) Stop() {
	sw.stopped.Do(func() {
		close(sw.stop)
		sw.wg.Wait()
		fmt.Fprint(sw.out, "\r\033[K")
	})
}

func (sw *StatusWriter) run() {
	defer sw.wg.Done()
	ticker := time.NewTicker(sw.spin.FPS)
	defer ticker.Stop()
	for {
		select {
		case <-sw.stop:
			return
		case <-ticker.C:
			sw.draw()
		}
	}
}

func (sw *StatusWriter) draw() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	frame := sw.spin.Frames[sw.frame%len(sw.spin.Frames)]
	sw.frame++
	fmt.Fprintf(sw.out, "\r\033[K%s %s (%s)", ActiveStyle.Render(frame), sw.text, FormatElapsed(time.Since(sw.since)))
}

// FormatElapsed renders a duration compactly: 250ms, 1.5s, 42s, 2m05s.
func FormatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
