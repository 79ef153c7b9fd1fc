package components

import (
	"github.com/allbin/scanprov/internal/session"
	tea "github.com/charmbracelet/bubbletea"
)

// AppendMsg carries text the session added to its buffer.
type AppendMsg struct {
	Text     string
	Severity session.Severity
}

// StatusMsg carries a transient status line.
type StatusMsg struct {
	Text string
}

// StateMsg reports a negotiation state change.
type StateMsg struct {
	State session.State
}

// ProgramObserver forwards session output into a running program. Send
// blocks until the program's event loop starts and is a no-op after it
// exits.
type ProgramObserver struct {
	Program *tea.Program
}

var _ session.Observer = ProgramObserver{}

func (o ProgramObserver) Append(msg string, sev session.Severity) {
	o.Program.Send(AppendMsg{Text: msg, Severity: sev})
}

func (o ProgramObserver) Status(msg string) {
	o.Program.Send(StatusMsg{Text: msg})
}

// Transition is a Negotiator.OnTransition callback.
func (o ProgramObserver) Transition(_, to session.State) {
	o.Program.Send(StateMsg{State: to})
}
