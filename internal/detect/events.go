package detect

import (
	"fmt"
	"sync"
	"time"
)

// EventType names a scan lifecycle event.
type EventType string

const (
	EventDetectionStarted   EventType = "detection-started"
	EventCategoryStarted    EventType = "category-started"
	EventToolDetected       EventType = "tool-detected"
	EventCategoryCompleted  EventType = "category-completed"
	EventDetectionCompleted EventType = "detection-completed"
	EventDetectionError     EventType = "detection-error"
)

// Progress counts work done in the current scan.
type Progress struct {
	CategoriesTotal int       `json:"categories_total"`
	CategoriesDone  int       `json:"categories_done"`
	ToolsTotal      int       `json:"tools_total"`
	ToolsDone       int       `json:"tools_done"`
	CurrentCategory string    `json:"current_category,omitempty"`
	CurrentTool     string    `json:"current_tool,omitempty"`
	StartedAt       time.Time `json:"started_at"`
}

// Percent reports completed tools as a percentage of the total.
func (p Progress) Percent() float64 {
	if p.ToolsTotal == 0 {
		return 0
	}
	return float64(p.ToolsDone) / float64(p.ToolsTotal) * 100
}

// Event is delivered to an EventFunc as a scan progresses. Only the
// fields relevant to Type are set.
type Event struct {
	Type           EventType       `json:"type"`
	ScanID         string          `json:"scan_id"`
	Category       string          `json:"category,omitempty"`
	Result         *Result         `json:"result,omitempty"`
	CategoryReport *CategoryReport `json:"category_report,omitempty"`
	Report         *Report         `json:"report,omitempty"`
	Err            error           `json:"-"`
	Progress       Progress        `json:"progress"`
}

// EventFunc receives scan events. Calls are never concurrent.
type EventFunc func(Event)

// scanState owns the progress counters of one scan and serializes event
// delivery.
type scanState struct {
	mu       sync.Mutex
	id       string
	progress Progress
	onEvent  EventFunc
}

func newScanState(id string, categories []Category, onEvent EventFunc) *scanState {
	total := 0
	for _, cat := range categories {
		total += len(cat.Rules)
	}
	return &scanState{
		id: id,
		progress: Progress{
			CategoriesTotal: len(categories),
			ToolsTotal:      total,
			StartedAt:       nowFunc(),
		},
		onEvent: onEvent,
	}
}

// emit applies update to the counters and delivers ev with a snapshot of
// the result.
func (s *scanState) emit(ev Event, update func(*Progress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if update != nil {
		update(&s.progress)
	}
	if s.onEvent == nil {
		return
	}
	ev.ScanID = s.id
	ev.Progress = s.progress
	s.onEvent(ev)
}

// deliver emits ev and turns a panic in the event consumer into an error.
func (s *scanState) deliver(ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panicked on %s: %v", ev.Type, r)
		}
	}()
	s.emit(ev, nil)
	return nil
}

func (s *scanState) snapshot() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}
