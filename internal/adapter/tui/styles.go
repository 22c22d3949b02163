package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaYellow     = "#F1FA8C"
	draculaComment    = "#6272A4"
)

type styles struct {
	title, label, focused, help, hint, notice, error, selected, detail, app lipgloss.Style
	levelError, levelWarn, levelOther                                       lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)),
		focused: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)),
		notice: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)).
			Bold(true),
		error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)).
			Bold(true),
		detail: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)).
			PaddingLeft(4).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color(draculaPurple)),
		app: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color(draculaCyan)).
			Foreground(lipgloss.Color(draculaForeground)),
		levelError: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		levelWarn: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)),
		levelOther: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)),
	}
}

// level picks the style for a record level: ERROR red, WARN yellow.
func (s styles) level(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case "ERROR":
		return s.levelError
	case "WARN", "WARNING":
		return s.levelWarn
	default:
		return s.levelOther
	}
}
