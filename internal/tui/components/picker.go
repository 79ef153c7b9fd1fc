package components

import (
	"fmt"
	"strings"

	"github.com/allbin/scanprov/internal/tui/colors"
	"github.com/allbin/scanprov/internal/tui/styles"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PortChoice is one entry offered by the picker.
type PortChoice struct {
	Path        string
	Description string
}

type pickerKeys struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Cancel key.Binding
}

// PortPicker asks the operator for a port. It is a complete tea.Model and
// quits once a choice is made or declined.
type PortPicker struct {
	choices   []PortChoice
	cursor    int
	chosen    string
	cancelled bool
	keys      pickerKeys
}

func NewPortPicker(choices []PortChoice) *PortPicker {
	return &PortPicker{
		choices: choices,
		keys: pickerKeys{
			Up:     key.NewBinding(key.WithKeys("up", "k")),
			Down:   key.NewBinding(key.WithKeys("down", "j")),
			Select: key.NewBinding(key.WithKeys("enter")),
			Cancel: key.NewBinding(key.WithKeys("esc", "q", "ctrl+c")),
		},
	}
}

// Choice returns the selected path, or false when the picker was
// cancelled.
func (p *PortPicker) Choice() (string, bool) {
	if p.cancelled || p.chosen == "" {
		return "", false
	}
	return p.chosen, true
}

func (p *PortPicker) Init() tea.Cmd {
	return nil
}

func (p *PortPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch {
	case key.Matches(km, p.keys.Cancel):
		p.cancelled = true
		return p, tea.Quit
	case key.Matches(km, p.keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(km, p.keys.Down):
		if p.cursor < len(p.choices)-1 {
			p.cursor++
		}
	case key.Matches(km, p.keys.Select):
		if len(p.choices) == 0 {
			p.cancelled = true
		} else {
			p.chosen = p.choices[p.cursor].Path
		}
		return p, tea.Quit
	}
	return p, nil
}

func (p *PortPicker) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Select a serial port"))
	b.WriteString("\n\n")

	if len(p.choices) == 0 {
		b.WriteString(styles.DimStyle.Render("  no serial ports found"))
		b.WriteString("\n")
	}

	selected := lipgloss.NewStyle().Foreground(colors.Green).Bold(true)
	for i, c := range p.choices {
		line := fmt.Sprintf("%-16s %s", c.Path, styles.DimStyle.Render(c.Description))
		if i == p.cursor {
			b.WriteString(selected.Render("▸ ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("↑/↓ move • enter select • esc cancel"))
	b.WriteString("\n")
	return b.String()
}
