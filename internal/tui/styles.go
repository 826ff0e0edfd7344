package tui

import (
	"github.com/charmbracelet/lipgloss"

	"freelance/tracker/internal/timeline"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true).
			MarginTop(1)

	formStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			MarginTop(1)

	levelStyles = map[timeline.Level]lipgloss.Style{
		timeline.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		timeline.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		timeline.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		timeline.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func levelStyle(level timeline.Level) lipgloss.Style {
	if style, ok := levelStyles[level]; ok {
		return style
	}
	return mutedStyle
}
