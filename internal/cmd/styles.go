package cmd

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	emphStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))
)
