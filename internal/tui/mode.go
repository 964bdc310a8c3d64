package tui

import (
	"io"
	"os"
	"runtime"
	"strings"
)

// OutputMode describes how scan output is rendered.
type OutputMode int

const (
	// ModeTUI redraws a live table with bubbletea.
	ModeTUI OutputMode = iota
	// ModePlain prints a status line while working and a static table at the end.
	ModePlain
	// ModeJSON writes the report as JSON.
	ModeJSON
)

func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModePlain:
		return "plain"
	case ModeJSON:
		return "json"
	}
	return "unknown"
}

// DetectMode picks the output mode for out. Flags win; otherwise the live
// table is used only on a capable terminal.
func DetectMode(out io.Writer, noProgress, jsonOutput bool) OutputMode {
	switch {
	case jsonOutput:
		return ModeJSON
	case noProgress, !IsTerminal(out):
		return ModePlain
	default:
		return ModeTUI
	}
}

// IsTerminal reports whether w is a character device that can redraw in
// place. Dumb terminals and CI runners count as not interactive.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	term := os.Getenv("TERM")
	return term != "" && !strings.EqualFold(term, "dumb")
}
