package tui

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"devprobe/internal/detect"
)

// PickResult holds the categories chosen in the picker.
type PickResult struct {
	Cancelled  bool
	Categories []string
}

type pickerRow struct {
	category detect.Category
	selected bool
}

type pickerModel struct {
	rows      []pickerRow
	focused   int
	done      bool
	cancelled bool
}

func newPickerModel(categories []detect.Category, preselected []string) pickerModel {
	want := make(map[string]bool, len(preselected))
	for _, name := range preselected {
		want[name] = true
	}
	rows := make([]pickerRow, len(categories))
	for i, cat := range categories {
		rows[i] = pickerRow{
			category: cat,
			selected: len(preselected) == 0 || want[cat.Name],
		}
	}
	return pickerModel{rows: rows}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.focused > 0 {
			m.focused--
		}
	case "down", "j":
		if m.focused < len(m.rows)-1 {
			m.focused++
		}
	case " ", "x":
		if len(m.rows) > 0 {
			m.rows[m.focused].selected = !m.rows[m.focused].selected
		}
	case "a":
		all := !m.allSelected()
		for i := range m.rows {
			m.rows[i].selected = all
		}
	case "enter":
		m.done = true
		return m, tea.Quit
	case "esc", "q", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) allSelected() bool {
	for _, row := range m.rows {
		if !row.selected {
			return false
		}
	}
	return true
}

func (m pickerModel) result() PickResult {
	if m.cancelled {
		return PickResult{Cancelled: true}
	}
	var names []string
	for _, row := range m.rows {
		if row.selected {
			names = append(names, row.category.Name)
		}
	}
	return PickResult{Categories: names}
}

func (m pickerModel) View() string {
	faint := lipgloss.NewStyle().Faint(true)

	if m.cancelled {
		return faint.Render("  cancelled") + "\n"
	}
	if m.done {
		return ""
	}

	focused := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))

	var sb strings.Builder
	sb.WriteString("\n")
	for i, row := range m.rows {
		box := "[ ]"
		if row.selected {
			box = "[x]"
		}
		label := fmt.Sprintf("%-20s", row.category.Name)
		prefix := "  "
		if i == m.focused {
			prefix = "▸ "
			label = focused.Render(label)
		} else {
			label = faint.Render(label)
		}
		fmt.Fprintf(&sb, "%s%s %s %s\n", prefix, box, label, faint.Render(fmt.Sprintf("%d tools", len(row.category.Rules))))
	}

	sb.WriteString("\n")
	sb.WriteString(m.renderHelpPanel())
	sb.WriteString("\n")
	sb.WriteString(faint.Render("  [↑↓] Navigate  [Space] Toggle  [a] All  [Enter] Scan  [Esc] Cancel"))
	sb.WriteString("\n")
	return sb.String()
}

// renderHelpPanel lists the tools in the focused category.
func (m pickerModel) renderHelpPanel() string {
	panelStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		BorderForeground(lipgloss.Color("8"))
	if len(m.rows) == 0 {
		return panelStyle.Render("No categories registered")
	}

	faint := lipgloss.NewStyle().Faint(true)
	bold := lipgloss.NewStyle().Bold(true)
	cat := m.rows[m.focused].category

	var sb strings.Builder
	sb.WriteString(bold.Render(cat.Name))
	if cat.Description != "" {
		sb.WriteString("  " + faint.Render(cat.Description))
	}
	sb.WriteString("\n\n")
	for _, rule := range cat.Rules {
		marker := " "
		if rule.Essential {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %-14s", marker, rule.Name)
		if rule.MinimumVersion != "" {
			sb.WriteString(faint.Render(">= " + rule.MinimumVersion))
		}
		sb.WriteString("\n")
	}
	return panelStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

// RunCategoryPicker shows an interactive checklist of categories and
// returns the ones the user selected. With no preselection every category
// starts checked.
func RunCategoryPicker(in io.Reader, out io.Writer, categories []detect.Category, preselected []string) (PickResult, error) {
	opts := []tea.ProgramOption{tea.WithOutput(out)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	p := tea.NewProgram(newPickerModel(categories, preselected), opts...)
	final, err := p.Run()
	if err != nil {
		return PickResult{}, err
	}
	m, ok := final.(pickerModel)
	if !ok {
		return PickResult{Cancelled: true}, nil
	}
	return m.result(), nil
}
