package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles of the view.
type Styles struct {
	Title        lipgloss.Style
	Owner        lipgloss.Style
	Description  lipgloss.Style
	Filter       lipgloss.Style
	ActiveFilter lipgloss.Style
	IssueTitle   lipgloss.Style
	Author       lipgloss.Style
	Label        lipgloss.Style
	Pager        lipgloss.Style
	Disabled     lipgloss.Style
	Error        lipgloss.Style
}

// DefaultStyles returns the default styles, in the purple of the web view.
func DefaultStyles() Styles {
	primary := lipgloss.Color("#7159c1")
	muted := lipgloss.Color("#999999")
	return Styles{
		Title:        lipgloss.NewStyle().Bold(true).Foreground(primary),
		Owner:        lipgloss.NewStyle().Foreground(muted),
		Description:  lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Italic(true),
		Filter:       lipgloss.NewStyle().Padding(0, 1).Foreground(primary),
		ActiveFilter: lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(primary),
		IssueTitle:   lipgloss.NewStyle().Bold(true),
		Author:       lipgloss.NewStyle().Foreground(muted),
		Label:        lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("#eeeeee")).Foreground(lipgloss.Color("#333333")),
		Pager:        lipgloss.NewStyle().Foreground(primary),
		Disabled:     lipgloss.NewStyle().Foreground(lipgloss.Color("#cccccc")),
		Error:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e5534b")),
	}
}
