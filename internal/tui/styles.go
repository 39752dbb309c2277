package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent      = lipgloss.Color("#8BC34A")
	destructive = lipgloss.Color("#e53935")
	muted       = lipgloss.Color("#6b7280")
	info        = lipgloss.Color("#2196F3")
)

// Styles groups the lipgloss styles used by the views.
type Styles struct {
	Title    lipgloss.Style
	Item     lipgloss.Style
	Selected lipgloss.Style
	Help     lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Info     lipgloss.Style
	Dialog   lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1),
		Item:     lipgloss.NewStyle().PaddingLeft(2),
		Selected: lipgloss.NewStyle().PaddingLeft(1).Foreground(accent).Bold(true),
		Help:     lipgloss.NewStyle().Foreground(muted).MarginTop(1),
		Success:  lipgloss.NewStyle().Foreground(accent),
		Error:    lipgloss.NewStyle().Foreground(destructive),
		Info:     lipgloss.NewStyle().Foreground(info),
		Dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(destructive).
			Padding(1, 2),
	}
}
