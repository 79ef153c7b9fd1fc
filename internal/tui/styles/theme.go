package styles

import (
	"github.com/allbin/scanprov/internal/session"
	"github.com/allbin/scanprov/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	// Buffer text, by severity
	DataStyle    = lipgloss.NewStyle().Foreground(colors.Text)
	InfoStyle    = lipgloss.NewStyle().Foreground(colors.Blue)
	SuccessStyle = lipgloss.NewStyle().Foreground(colors.Green).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(colors.Red).Bold(true)

	StatusMessageStyle = lipgloss.NewStyle().
				Foreground(colors.Peach).
				Padding(0, 1)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	DimStyle = lipgloss.NewStyle().Foreground(colors.Overlay0)
)

// SeverityStyle picks the style for text an observer received.
func SeverityStyle(sev session.Severity) lipgloss.Style {
	switch sev {
	case session.SeverityInfo:
		return InfoStyle
	case session.SeveritySuccess:
		return SuccessStyle
	case session.SeverityError:
		return ErrorStyle
	default:
		return DataStyle
	}
}

// StateStyle colours a negotiation state in the status bar.
func StateStyle(s session.State) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch s {
	case session.StateReady:
		return base.Foreground(colors.Base).Background(colors.Green)
	case session.StateFailed:
		return base.Foreground(colors.Base).Background(colors.Red)
	case session.StateIdle:
		return base.Foreground(colors.Base).Background(colors.Blue)
	default:
		return base.Foreground(colors.Base).Background(colors.Yellow)
	}
}
