package components

import (
	"fmt"

	"github.com/allbin/scanprov/internal/session"
	"github.com/allbin/scanprov/internal/tui/colors"
	"github.com/allbin/scanprov/internal/tui/styles"
	"github.com/allbin/scanprov/serial"
	"github.com/charmbracelet/lipgloss"
)

type StatusBar struct {
	portPath string
	variant  string
	config   string
	state    session.State
	reading  bool
	busy     string
	message  string
	isErr    bool
	width    int
}

func NewStatusBar(portPath, variantID string) *StatusBar {
	return &StatusBar{
		portPath: portPath,
		variant:  variantID,
		state:    session.StateIdle,
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetState(state session.State) {
	sb.state = state
}

func (sb *StatusBar) SetConfig(cfg serial.Config) {
	sb.config = cfg.String()
}

func (sb *StatusBar) SetReading(reading bool) {
	sb.reading = reading
}

// SetBusy names the running task, or clears it with "".
func (sb *StatusBar) SetBusy(task string) {
	sb.busy = task
}

// SetMessage shows the latest status line from the session.
func (sb *StatusBar) SetMessage(msg string, isErr bool) {
	sb.message = msg
	sb.isErr = isErr
}

func (sb *StatusBar) Message() string {
	return sb.message
}

// View renders the bar: state, port, variant and line settings on the
// left, the last status message and the clock on the right.
func (sb *StatusBar) View(timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	state := styles.StateStyle(sb.state).Render(sb.state.String())

	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.portPath)

	variant := lipgloss.NewStyle().
		Foreground(colors.Teal).
		Bold(true).
		Render(sb.variant)

	indicatorStyle := lipgloss.NewStyle().Foreground(colors.Red).Padding(0, 1)
	indicator := "○"
	if sb.reading {
		indicatorStyle = indicatorStyle.Foreground(colors.Green)
		indicator = "●"
	}

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	details := "⚡ serial"
	if sb.config != "" {
		details = "⚡ " + sb.config
	}
	if sb.busy != "" {
		details = fmt.Sprintf("%s │ %s…", details, sb.busy)
	}
	detailsView := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(details)

	msgStyle := styles.StatusMessageStyle
	if sb.isErr {
		msgStyle = msgStyle.Foreground(colors.Red)
	}
	message := msgStyle.Render(sb.message)

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, state, port, variant, indicatorStyle.Render(indicator), divider, detailsView)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, message, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
