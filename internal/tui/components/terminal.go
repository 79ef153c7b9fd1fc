package components

import (
	"strings"

	"github.com/allbin/scanprov/internal/session"
	"github.com/allbin/scanprov/internal/tui/styles"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

// Terminal shows the session buffer as it grows, coloured by severity.
type Terminal struct {
	viewport viewport.Model
	content  strings.Builder
	follow   bool
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport: viewport.New(width, height),
		follow:   true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

func (t *Terminal) Width() int {
	return t.viewport.Width
}

// Append adds text exactly as the session appended it. Lines are styled
// one at a time so a chunk split mid-line continues the same line.
func (t *Terminal) Append(text string, sev session.Severity) {
	style := styles.SeverityStyle(sev)
	for i, part := range strings.Split(text, "\n") {
		if i > 0 {
			t.content.WriteByte('\n')
		}
		if part != "" {
			t.content.WriteString(style.Render(part))
		}
	}
	t.refresh()
}

func (t *Terminal) Clear() {
	t.content.Reset()
	t.follow = true
	t.refresh()
}

func (t *Terminal) ScrollUp() {
	t.viewport.HalfPageUp()
	t.follow = t.viewport.AtBottom()
}

func (t *Terminal) ScrollDown() {
	t.viewport.HalfPageDown()
	t.follow = t.viewport.AtBottom()
}

func (t *Terminal) GotoTop() {
	t.viewport.GotoTop()
	t.follow = false
}

func (t *Terminal) GotoBottom() {
	t.viewport.GotoBottom()
	t.follow = true
}

func (t *Terminal) refresh() {
	content := t.content.String()
	if t.viewport.Width > 0 {
		content = ansi.Hardwrap(content, t.viewport.Width, true)
	}
	t.viewport.SetContent(content)
	if t.follow {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Keys are handled by the console, only resizes reach the viewport
	switch msg.(type) {
	case tea.WindowSizeMsg:
		return t.viewport.Update(msg)
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
