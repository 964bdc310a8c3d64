package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	marqueeInterval = 150 * time.Millisecond
	marqueeGap      = "   "
	cellGap         = "  "
)

// marqueeMsg advances the scroll offset of over-long cells.
type marqueeMsg time.Time

// Column is one fixed-width column of the table.
type Column struct {
	Header string
	Width  int
}

type tableRow struct {
	key   string
	group string
	cells []string
}

type runState int

const (
	running runState = iota
	finished
	failed
	quit
)

// ProgressModel is a bubbletea model showing one row per tool, grouped
// under category headings, with a spinner footer while work is running.
type ProgressModel struct {
	title     string
	columns   []Column
	rows      []tableRow
	byKey     map[string]int
	statusCol int

	spin   spinner.Model
	offset int
	counts *ProgressMsg
	state  runState
	err    error
}

// NewProgressModel creates an empty table with the given columns.
func NewProgressModel(title string, columns []Column) ProgressModel {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = ActiveStyle

	m := ProgressModel{
		title:     title,
		columns:   columns,
		byKey:     make(map[string]int),
		statusCol: -1,
		spin:      sp,
	}
	for i, c := range columns {
		if strings.EqualFold(c.Header, "STATUS") {
			m.statusCol = i
			break
		}
	}
	return m
}

// AddRow appends a row under group. Rows of one group should be added
// together; a heading is drawn whenever the group changes.
func (m *ProgressModel) AddRow(key, group string, cells []string) {
	padded := make([]string, len(m.columns))
	copy(padded, cells)
	m.byKey[key] = len(m.rows)
	m.rows = append(m.rows, tableRow{key: key, group: group, cells: padded})
}

func nextMarquee() tea.Cmd {
	return tea.Tick(marqueeInterval, func(t time.Time) tea.Msg { return marqueeMsg(t) })
}

// Init starts the spinner and the marquee.
func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, nextMarquee())
}

// Update applies row, progress and lifecycle messages.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case marqueeMsg:
		m.offset++
		if m.state != running {
			return m, nil
		}
		return m, nextMarquee()

	case spinner.TickMsg:
		if m.state != running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case RowUpdateMsg:
		m.setCells(msg.Key, msg.Fields)
		return m, nil

	case ProgressMsg:
		counts := msg
		m.counts = &counts
		return m, nil

	case WorkDoneMsg:
		m.state = finished
		return m, tea.Quit

	case ErrorMsg:
		m.state = failed
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		if k := msg.String(); k == "ctrl+c" || k == "q" {
			m.state = quit
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ProgressModel) setCells(key string, fields map[string]string) {
	idx, ok := m.byKey[key]
	if !ok {
		return
	}
	for i, col := range m.columns {
		if v, ok := fields[col.Header]; ok {
			m.rows[idx].cells[i] = v
		}
	}
}

// View renders the table.
func (m ProgressModel) View() string {
	if m.state == failed && m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	widths := m.widths()
	var b strings.Builder
	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteString("\n\n")
	}

	headers := make([]string, len(m.columns))
	for i, col := range m.columns {
		headers[i] = HeaderStyle.Render(padCell(col.Header, widths[i]))
	}
	b.WriteString("  " + strings.Join(headers, cellGap) + "\n")

	group := ""
	for _, row := range m.rows {
		if row.group != "" && row.group != group {
			group = row.group
			b.WriteString(GroupStyle.Render(group))
			b.WriteByte('\n')
		}
		b.WriteString("  " + m.renderRow(row, widths) + "\n")
	}

	if m.state == running {
		done, total, current := m.progress()
		fmt.Fprintf(&b, "\n%s Detecting %d/%d", m.spin.View(), done, total)
		if current != "" {
			fmt.Fprintf(&b, " (%s)", current)
		}
		b.WriteString("...\n")
	}
	return b.String()
}

func (m ProgressModel) widths() []int {
	widths := make([]int, len(m.columns))
	for i, col := range m.columns {
		widths[i] = max(col.Width, runewidth.StringWidth(col.Header))
	}
	return widths
}

func (m ProgressModel) renderRow(row tableRow, widths []int) string {
	cells := make([]string, len(m.columns))
	for i, raw := range row.cells {
		text := m.fitCell(raw, widths[i])
		style := lipgloss.NewStyle()
		if i == m.statusCol {
			style = StatusStyle(strings.TrimSpace(raw))
		}
		cells[i] = style.Render(padCell(text, widths[i]))
	}
	return strings.Join(cells, cellGap)
}

// fitCell scrolls over-long text while running and truncates it after.
func (m ProgressModel) fitCell(text string, width int) string {
	if m.state == running && runewidth.StringWidth(strings.TrimSpace(text)) > width {
		return marqueeText(text, width, m.offset)
	}
	return TruncateWithEllipsis(text, width)
}

// progress prefers counters from ProgressMsg and otherwise counts rows
// whose status has settled.
func (m ProgressModel) progress() (done, total int, current string) {
	if m.counts != nil {
		return m.counts.Done, m.counts.Total, m.counts.Current
	}
	total = len(m.rows)
	if m.statusCol < 0 {
		return 0, total, ""
	}
	for _, row := range m.rows {
		switch strings.TrimSpace(row.cells[m.statusCol]) {
		case "", StatusPending, StatusProbing:
		default:
			done++
		}
	}
	return done, total, ""
}

// Done reports whether the model stopped for any reason.
func (m ProgressModel) Done() bool { return m.state != running }

// Quit reports whether the user asked to stop.
func (m ProgressModel) Quit() bool { return m.state == quit }

// Err returns the error that stopped the model, if any.
func (m ProgressModel) Err() error { return m.err }

func padCell(s string, width int) string {
	if gap := width - runewidth.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// marqueeText shows a width-cell window over text that slides one rune
// per step and wraps around with a short gap.
func marqueeText(text string, width, step int) string {
	text = strings.TrimSpace(text)
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= width {
		return text
	}
	loop := []rune(text + marqueeGap)
	at := step % len(loop)
	return runewidth.Truncate(string(loop[at:])+string(loop[:at]), width, "")
}

// NonEmptyOrDash returns "-" for blank values.
func NonEmptyOrDash(value string) string {
	if value = strings.TrimSpace(value); value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis fits value into max display cells, ending in "..."
// when there is room for it.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	switch {
	case runewidth.StringWidth(value) <= max:
		return value
	case max <= 3:
		return runewidth.Truncate(value, max, "")
	default:
		return runewidth.Truncate(value, max, "...")
	}
}
