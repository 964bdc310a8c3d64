package tui

import "github.com/charmbracelet/lipgloss"

// Row status labels.
const (
	StatusPending  = "pending"
	StatusProbing  = "probing"
	StatusFound    = "found"
	StatusOutdated = "outdated"
	StatusMissing  = "missing"
	StatusError    = "error"
)

var (
	// TitleStyle styles the table title.
	TitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// GroupStyle styles the category heading above its rows.
	GroupStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

	// ActiveStyle colors in-progress elements such as the spinner.
	ActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

	statusStyles = map[string]lipgloss.Style{
		StatusFound:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		StatusProbing:  ActiveStyle,
		StatusOutdated: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		StatusMissing:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		StatusError:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		StatusPending:  lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
