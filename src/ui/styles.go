// Package ui renders the CLI's user-facing output.
package ui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds the colours of the CLI theme.
type StyleConfig struct {
	Info      lipgloss.Color
	Warn      lipgloss.Color
	Error     lipgloss.Color
	Success   lipgloss.Color
	Help      lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
}

// DefaultStyles returns the default colour palette.
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		Info:      lipgloss.Color("#E8EAED"),
		Warn:      lipgloss.Color("#FBBC04"),
		Error:     lipgloss.Color("#EA4335"),
		Success:   lipgloss.Color("#34A853"),
		Help:      lipgloss.Color("#8AB4F8"),
		Secondary: lipgloss.Color("#9AA0A6"),
		Accent:    lipgloss.Color("#24C1E0"),
	}
}

func (s *StyleConfig) InfoStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.Info).Bold(true)
}

func (s *StyleConfig) WarnStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.Warn).Bold(true)
}

func (s *StyleConfig) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.Error).Bold(true)
}

func (s *StyleConfig) SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.Success).Bold(true)
}

// SmallStyle is used for secondary detail such as versions and paths.
func (s *StyleConfig) SmallStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.Secondary)
}

// HelpStyle renders command names in usage output.
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.Help)
}

// AccentStyle highlights the active row of a table.
func (s *StyleConfig) AccentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.Accent)
}
