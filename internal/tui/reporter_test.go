package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"devprobe/internal/detect"
)

func TestResultStatus(t *testing.T) {
	tests := []struct {
		name string
		res  detect.Result
		want string
	}{
		{"found", detect.Result{Found: true, Version: "1.2.3"}, StatusFound},
		{"outdated", detect.Result{Found: true, BelowMinimum: true}, StatusOutdated},
		{"missing", detect.Result{Error: "node not found in PATH"}, StatusMissing},
		{"missing no error", detect.Result{}, StatusMissing},
		{"error", detect.Result{Error: "node exited with status 1"}, StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResultStatus(tt.res); got != tt.want {
				t.Errorf("ResultStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewScanModelRows(t *testing.T) {
	m := NewScanModel("scan", pickerCategories())
	if len(m.rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(m.rows))
	}
	row := m.rows[m.byKey[RowKey("docker")]]
	if row.group != "containers" || row.cells[0] != "docker" || row.cells[1] != StatusPending {
		t.Errorf("docker row = %+v", row)
	}
}

func TestScanReporterToolDetected(t *testing.T) {
	var msgs []tea.Msg
	r := NewScanReporter(func(msg tea.Msg) { msgs = append(msgs, msg) })

	r.Handle(detect.Event{
		Type:     detect.EventToolDetected,
		Result:   &detect.Result{Tool: "git", Found: true, Version: "2.43.0", InstallPath: "/usr/bin/git"},
		Progress: detect.Progress{ToolsDone: 1, ToolsTotal: 4},
	})

	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	upd, ok := msgs[0].(RowUpdateMsg)
	if !ok {
		t.Fatalf("first message = %T, want RowUpdateMsg", msgs[0])
	}
	if upd.Key != "tool:git" || upd.Fields["STATUS"] != StatusFound || upd.Fields["VERSION"] != "2.43.0" || upd.Fields["PATH"] != "/usr/bin/git" {
		t.Errorf("unexpected update %+v", upd)
	}
	prog, ok := msgs[1].(ProgressMsg)
	if !ok || prog.Done != 1 || prog.Total != 4 {
		t.Errorf("unexpected progress %+v", msgs[1])
	}
}

func TestScanReporterError(t *testing.T) {
	var msgs []tea.Msg
	r := NewScanReporter(func(msg tea.Msg) { msgs = append(msgs, msg) })

	boom := errors.New("boom")
	r.Handle(detect.Event{Type: detect.EventDetectionError, Err: boom})

	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if em, ok := msgs[0].(ErrorMsg); !ok || !errors.Is(em.Err, boom) {
		t.Errorf("unexpected message %+v", msgs[0])
	}
}

func TestScanReporterDrivesModel(t *testing.T) {
	m := NewScanModel("scan", pickerCategories())
	var model tea.Model = m
	r := NewScanReporter(func(msg tea.Msg) { model, _ = model.Update(msg) })

	r.Handle(detect.Event{
		Type:     detect.EventToolDetected,
		Result:   &detect.Result{Tool: "node", Found: true, Version: "16.0.0", BelowMinimum: true},
		Progress: detect.Progress{ToolsDone: 1, ToolsTotal: 4},
	})

	pm := model.(ProgressModel)
	row := pm.rows[pm.byKey[RowKey("node")]]
	if row.cells[1] != StatusOutdated || row.cells[2] != "16.0.0" || row.cells[3] != "-" {
		t.Errorf("node row = %v", row.cells)
	}
}
