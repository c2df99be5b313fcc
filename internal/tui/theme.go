package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the dashboard. Colors are
// ANSI-256 so the TUI renders the same over SSH as locally.
type Theme struct {
	Title    lipgloss.Style
	Subtle   lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Success  lipgloss.Style
	Active   lipgloss.Style
	Card     lipgloss.Style
	CardHead lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style
	Help     lipgloss.Style
	Input    lipgloss.Style
	Modal    lipgloss.Style
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
	Subtle:   lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
	Active:   lipgloss.NewStyle().Foreground(lipgloss.Color("117")),
	Card:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
	CardHead: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
	Selected: lipgloss.NewStyle().Background(lipgloss.Color("237")).Foreground(lipgloss.Color("231")),
	Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")),
	Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Input:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	Modal:    lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("203")).Padding(1, 2),
}

// statusStyle picks the style for a ticket status cell.
func (t Theme) statusStyle(status string) lipgloss.Style {
	switch status {
	case "COMPLETED":
		return t.Success
	case "FAILED":
		return t.Error
	case "PENDING":
		return t.Subtle
	}
	return t.Active
}
