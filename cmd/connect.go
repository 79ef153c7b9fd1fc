/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/allbin/scanprov/internal/session"
	"github.com/allbin/scanprov/internal/tui/components"
	"github.com/allbin/scanprov/internal/tui/keys"
	"github.com/allbin/scanprov/internal/tui/models"
	"github.com/allbin/scanprov/internal/tui/styles"
	"github.com/allbin/scanprov/internal/variant"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect [port]",
	Short: "Open the interactive provisioning console",
	Long: `Connect to a device and drive provisioning from an interactive console.

The port is opened at 115200 baud and switched to the variant's line speed
when needed. Device output streams into the console while single keys run
each step:

  a  auto provision (revinfo, extract, write, verify)
  r  request revision info       e  extract firmware and serial
  w  write configuration         v  verify configuration
  b  validate last barcode       k  check every format was read
  x  check the box label serial  s  save the log
  c  clear                       q  quit

Example usage:
  scanprov connect /dev/ttyUSB0 --variant 16J
  scanprov connect --variant 17W`,
	Annotations: map[string]string{tuiAnnotation: "true"},
	Args:        cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runConnect(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	d, err := resolveVariant(reg)
	if err != nil {
		return err
	}

	// The picker is its own program and must finish before the console
	// takes over the screen.
	portPath := portArg(args)
	if portPath == "" {
		if portPath, err = pickPort(); err != nil {
			return err
		}
	}
	return runConnectTUI(reg, d, portPath)
}

// connectModel represents the Bubble Tea model for the connect command
type connectModel struct {
	*models.SessionModel
	terminal     *components.Terminal
	statusBar    *components.StatusBar
	completeness *components.CompletenessTable
	help         help.Model
	keys         keys.ConnectKeys
	observer     session.Observer
	width        int
	height       int
}

func newConnectModel(d *variant.Descriptor, portPath string) *connectModel {
	return &connectModel{
		SessionModel: models.NewSessionModel(portPath, d.ID),
		terminal:     components.NewTerminal(0, 0), // sized by WindowSizeMsg
		statusBar:    components.NewStatusBar(portPath, d.ID),
		completeness: components.NewCompletenessTable(d),
		help:         help.New(),
		keys:         keys.NewConnectKeys(),
	}
}

func runConnectTUI(reg *variant.Registry, d *variant.Descriptor, portPath string) error {
	m := newConnectModel(d, portPath)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	obs := components.ProgramObserver{Program: p}
	m.observer = obs

	opts, err := sessionOptions(session.Observers{obs, session.LogObserver{Logger: log.Logger}})
	if err != nil {
		return err
	}

	// Negotiate in background
	go func() {
		n := session.NewNegotiator(reg, pickerSelector(portPath), opts...)
		n.OnTransition(obs.Transition)
		s, err := n.Connect(m.Context(), d.ID)
		if err != nil {
			p.Send(models.ConnectedMsg{Error: err})
			return
		}
		m.SetSession(s)
		p.Send(models.ConnectedMsg{Session: s})

		err = s.ReadLoop()
		p.Send(models.DisconnectedMsg{Error: err})
	}()

	_, err = p.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := m.Cleanup(ctx); cerr != nil {
		log.Warn().Err(cerr).Msg("cleanup failed")
	}
	return err
}

func (m *connectModel) Init() tea.Cmd {
	return nil
}

// run starts task in the background unless another task is running.
func (m *connectModel) run(task string, fn func(ctx context.Context, s *session.Session) error) tea.Cmd {
	s, ok := m.Begin(task)
	if !ok {
		if m.Session() == nil {
			m.statusBar.SetMessage("not connected", true)
		} else {
			m.statusBar.SetMessage(fmt.Sprintf("busy: %s", m.Busy()), true)
		}
		return nil
	}
	m.statusBar.SetBusy(task)
	ctx := m.Context()
	return func() tea.Msg {
		return models.TaskDoneMsg{Task: task, Error: fn(ctx, s)}
	}
}

func (m *connectModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()

	case key.Matches(msg, m.keys.Up):
		m.terminal.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.terminal.ScrollDown()
	case key.Matches(msg, m.keys.GotoTop):
		m.terminal.GotoTop()
	case key.Matches(msg, m.keys.GotoBottom):
		m.terminal.GotoBottom()

	case key.Matches(msg, m.keys.Provision):
		return m.run("provision", func(ctx context.Context, s *session.Session) error {
			report, err := s.Provision(ctx)
			if err == nil && !report.OK() {
				err = errNotProvisioned
			}
			return err
		})
	case key.Matches(msg, m.keys.Revision):
		return m.run("revinfo", func(ctx context.Context, s *session.Session) error {
			return s.RequestRevision(ctx)
		})
	case key.Matches(msg, m.keys.Extract):
		return m.run("extract", func(_ context.Context, s *session.Session) error {
			s.ExtractIdentity()
			return nil
		})
	case key.Matches(msg, m.keys.Write):
		return m.run("write", func(ctx context.Context, s *session.Session) error {
			return s.WriteConfig(ctx)
		})
	case key.Matches(msg, m.keys.Verify):
		return m.run("verify", func(ctx context.Context, s *session.Session) error {
			_, err := s.Verify(ctx)
			return err
		})
	case key.Matches(msg, m.keys.Barcode):
		return m.run("barcode", func(_ context.Context, s *session.Session) error {
			_, err := s.ValidateBarcode()
			return err
		})
	case key.Matches(msg, m.keys.Completeness):
		return m.run("completeness", func(_ context.Context, s *session.Session) error {
			_, err := s.CheckCompleteness()
			return err
		})
	case key.Matches(msg, m.keys.BoxSerial):
		return m.run("box serial", func(_ context.Context, s *session.Session) error {
			if s.Serial() == "" {
				return errors.New("no serial extracted yet")
			}
			s.ArmBoxSerialCheck()
			return nil
		})
	case key.Matches(msg, m.keys.Save):
		return m.run("save", func(_ context.Context, s *session.Session) error {
			return saveLog(s, m.observer)
		})
	case key.Matches(msg, m.keys.Clear):
		if s := m.Session(); s != nil {
			s.Clear()
		}
		m.terminal.Clear()
		m.completeness.Refresh(nil)
		m.statusBar.SetMessage("", false)
	}
	return nil
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.SetReady(true)

	case components.StateMsg:
		m.SetState(msg.State)
		m.statusBar.SetState(msg.State)

	case models.ConnectedMsg:
		if msg.Error != nil {
			m.SetError(msg.Error)
			m.statusBar.SetMessage(msg.Error.Error(), true)
			break
		}
		m.statusBar.SetConfig(msg.Session.Channel().Config())
		m.statusBar.SetReading(true)

	case models.DisconnectedMsg:
		m.statusBar.SetReading(false)
		if msg.Error != nil {
			m.SetError(msg.Error)
			m.statusBar.SetMessage(msg.Error.Error(), true)
		}

	case models.TaskDoneMsg:
		m.End()
		m.statusBar.SetBusy("")
		if msg.Error != nil && !errors.Is(msg.Error, context.Canceled) {
			m.statusBar.SetMessage(fmt.Sprintf("%s: %v", msg.Task, msg.Error), true)
		}

	case components.AppendMsg:
		m.terminal.Append(msg.Text, msg.Severity)
		if s := m.Session(); s != nil {
			m.completeness.Refresh(s.Scanned())
		}

	case components.StatusMsg:
		m.statusBar.SetMessage(msg.Text, false)

	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// layout gives the terminal whatever the side panel, status bar and help
// leave over.
func (m *connectModel) layout() {
	if m.width == 0 {
		return
	}
	sideWidth := lipgloss.Width(m.completeness.View()) + 1
	helpHeight := lipgloss.Height(m.help.View(m.keys))
	statusBarHeight := 1
	borderHeight := 1

	m.terminal.SetSize(m.width-sideWidth, m.height-statusBarHeight-helpHeight-borderHeight)
	m.statusBar.SetWidth(m.width)
	m.help.Width = m.width
}

func (m *connectModel) View() string {
	var content string
	if m.IsReady() {
		content = m.terminal.View()
	} else {
		content = "Initializing..."
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		styles.ContentBorderStyle.Render(content),
		" ",
		m.completeness.View(),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		body,
		m.statusBar.View(time.Now().Format("15:04:05")),
		m.help.View(m.keys),
	)
}
