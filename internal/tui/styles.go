package tui

import "github.com/charmbracelet/lipgloss"

// Dracula palette
const (
	colorForeground = "#F8F8F2"
	colorCyan       = "#8BE9FD"
	colorGreen      = "#50FA7B"
	colorOrange     = "#FFB86C"
	colorPink       = "#FF79C6"
	colorPurple     = "#BD93F9"
	colorRed        = "#FF5555"
	colorComment    = "#6272A4"
)

type styles struct {
	title, cardLabel, cardValue, card  lipgloss.Style
	header, cell, unknown, active      lipgloss.Style
	inactive, border, errorBanner, dim lipgloss.Style
	help                               lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPurple)).
			Bold(true),
		cardLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)),
		cardValue: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorForeground)).
			Bold(true),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorPurple)).
			Padding(0, 2),
		header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorCyan)).
			Bold(true).
			Padding(0, 1),
		cell: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorForeground)).
			Padding(0, 1),
		unknown: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)).
			Italic(true).
			Padding(0, 1),
		active: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGreen)).
			Padding(0, 1),
		inactive: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)).
			Padding(0, 1),
		border: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPurple)),
		errorBanner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorRed)).
			Bold(true),
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorOrange)),
	}
}
