package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"devprobe/internal/detect"
)

// ScanColumns returns the column layout of the scan progress table.
func ScanColumns() []Column {
	return []Column{
		{Header: "TOOL", Width: 12},
		{Header: "STATUS", Width: 8},
		{Header: "VERSION", Width: 12},
		{Header: "PATH", Width: 40},
	}
}

// RowKey is the progress-table key for a tool.
func RowKey(tool string) string {
	return "tool:" + tool
}

// NewScanModel builds a progress model with one pending row per rule,
// grouped by category.
func NewScanModel(title string, categories []detect.Category) ProgressModel {
	m := NewProgressModel(title, ScanColumns())
	for _, cat := range categories {
		for _, rule := range cat.Rules {
			m.AddRow(RowKey(rule.Name), cat.Name, []string{rule.Name, StatusPending, "-", "-"})
		}
	}
	return m
}

// ResultStatus maps a detection result to a row status label.
func ResultStatus(res detect.Result) string {
	switch {
	case res.Found && res.BelowMinimum:
		return StatusOutdated
	case res.Found:
		return StatusFound
	case res.Error != "" && !strings.Contains(res.Error, "not found"):
		return StatusError
	default:
		return StatusMissing
	}
}

// ResultFields returns the STATUS, VERSION and PATH cells for a result.
func ResultFields(res detect.Result) map[string]string {
	return map[string]string{
		"STATUS":  ResultStatus(res),
		"VERSION": NonEmptyOrDash(res.Version),
		"PATH":    NonEmptyOrDash(res.InstallPath),
	}
}

// ScanReporter turns detection events into progress-table messages.
type ScanReporter struct {
	send func(tea.Msg)
}

// NewScanReporter returns a reporter that delivers messages through send.
func NewScanReporter(send func(tea.Msg)) *ScanReporter {
	return &ScanReporter{send: send}
}

// Handle satisfies detect.EventFunc.
func (r *ScanReporter) Handle(ev detect.Event) {
	switch ev.Type {
	case detect.EventCategoryStarted:
		r.send(ProgressMsg{Done: ev.Progress.ToolsDone, Total: ev.Progress.ToolsTotal, Current: ev.Category})
	case detect.EventToolDetected:
		if ev.Result == nil {
			return
		}
		r.send(RowUpdateMsg{Key: RowKey(ev.Result.Tool), Fields: ResultFields(*ev.Result)})
		r.send(ProgressMsg{Done: ev.Progress.ToolsDone, Total: ev.Progress.ToolsTotal, Current: ev.Result.Tool})
	case detect.EventCategoryCompleted:
		r.send(ProgressMsg{Done: ev.Progress.ToolsDone, Total: ev.Progress.ToolsTotal})
	case detect.EventDetectionError:
		r.send(ErrorMsg{Err: ev.Err})
	}
}

// PlainReporter writes the current tool to a StatusWriter while a scan
// runs without the full-screen table.
type PlainReporter struct {
	status *StatusWriter
}

// NewPlainReporter returns a reporter backed by status.
func NewPlainReporter(status *StatusWriter) *PlainReporter {
	return &PlainReporter{status: status}
}

// Handle satisfies detect.EventFunc.
func (r *PlainReporter) Handle(ev detect.Event) {
	switch ev.Type {
	case detect.EventDetectionStarted:
		r.status.Update("Detecting system information")
	case detect.EventCategoryStarted:
		r.status.Update("Scanning " + ev.Category)
	case detect.EventToolDetected:
		if ev.Result != nil {
			r.status.Update(formatToolProgress(ev))
		}
	}
}

func formatToolProgress(ev detect.Event) string {
	return fmt.Sprintf("Detected %s (%d/%d, %s)",
		ev.Result.Tool, ev.Progress.ToolsDone, ev.Progress.ToolsTotal,
		FormatElapsed(time.Since(ev.Progress.StartedAt)))
}
