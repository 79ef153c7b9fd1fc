/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/allbin/scanprov/internal/codec"
	"github.com/allbin/scanprov/internal/session"
	"github.com/allbin/scanprov/internal/syncutil"
	"github.com/allbin/scanprov/internal/tui/components"
	"github.com/allbin/scanprov/internal/tui/styles"
	"github.com/allbin/scanprov/internal/variant"
	"github.com/allbin/scanprov/serial"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errNoVariant = errors.New("no variant given (use --variant or set 'variant' in the config)")

// clock drives every wait the commands do outside a session.
var clock = clockwork.NewRealClock()

const (
	pollInterval = 200 * time.Millisecond
	// revisionSettle is how long the device takes to print its revision
	// report.
	revisionSettle = 500 * time.Millisecond
)

// portArg returns the port from the optional positional argument, falling
// back to the configured one. An empty result means the operator picks.
func portArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Port
}

// loadRegistry returns the configured variant table.
func loadRegistry() (*variant.Registry, error) {
	if cfg.VariantsFile == "" {
		return variant.Default(), nil
	}
	return variant.LoadFile(afero.NewOsFs(), cfg.VariantsFile)
}

// resolveVariant checks the configured variant against the registry
// before anything touches the port.
func resolveVariant(reg *variant.Registry) (*variant.Descriptor, error) {
	if cfg.Variant == "" {
		return nil, errNoVariant
	}
	return reg.Lookup(cfg.Variant)
}

// pickerSelector asks the operator for a port when none is configured.
// Declining yields ErrNoChannelSelected.
func pickerSelector(path string) session.Selector {
	if path != "" {
		return session.PathSelector(path, serial.Open)
	}
	return session.SelectorFunc(func(ctx context.Context) (session.Channel, error) {
		chosen, err := pickPort()
		if err != nil {
			return nil, err
		}
		return session.NewSerialChannel(chosen, serial.Open), nil
	})
}

func pickPort() (string, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return "", fmt.Errorf("listing ports: %w", err)
	}

	choices := make([]components.PortChoice, 0, len(ports))
	for _, p := range ports {
		choice := components.PortChoice{Path: p}
		if info, err := serial.GetPortInfo(p); err == nil {
			choice.Description = info.Description
		}
		choices = append(choices, choice)
	}

	picker := components.NewPortPicker(choices)
	if _, err := tea.NewProgram(picker, tea.WithOutput(os.Stderr)).Run(); err != nil {
		return "", err
	}
	path, ok := picker.Choice()
	if !ok {
		return "", session.ErrNoChannelSelected
	}
	return path, nil
}

// sessionOptions maps the configuration onto negotiator and session
// options.
func sessionOptions(observer session.Observer) ([]session.Option, error) {
	dec, err := codec.NewDecoder(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	return []session.Option{
		session.WithLogger(log.Logger),
		session.WithObserver(observer),
		session.WithDecoder(dec),
		session.WithReadTimeout(cfg.Session.ReadTimeout),
		session.WithStopTimeout(cfg.Session.StopTimeout, cfg.Session.StopPoll),
		session.WithCloseDelay(cfg.Session.CloseDelay),
		session.WithWakeSettle(cfg.Negotiate.WakeSettle),
		session.WithDisplayTest(cfg.Negotiate.DisplayTest),
		session.WithAutoValidate(cfg.Barcode.Auto, cfg.Barcode.AutoDelay),
	}, nil
}

// connectHeadless negotiates the configured variant on the port named by
// args.
func connectHeadless(ctx context.Context, args []string, observer session.Observer) (*session.Session, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	d, err := resolveVariant(reg)
	if err != nil {
		return nil, err
	}
	opts, err := sessionOptions(observer)
	if err != nil {
		return nil, err
	}

	n := session.NewNegotiator(reg, pickerSelector(portArg(args)), opts...)
	n.OnTransition(func(_, to session.State) {
		log.Debug().Stringer("state", to).Msg("negotiation")
	})
	return n.Connect(ctx, d.ID)
}

// withReader runs task while the session's read loop streams device
// output, then disconnects. The session is always disconnected on return.
func withReader(ctx context.Context, s *session.Session, task func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.ReadLoop)
	g.Go(func() error {
		defer func() {
			if err := s.Disconnect(context.Background()); err != nil {
				log.Warn().Err(err).Msg("disconnect failed")
			}
		}()
		return task(gctx)
	})
	return g.Wait()
}

// printObserver renders session output for headless commands: buffer
// text on out, status lines on errOut.
type printObserver struct {
	out    io.Writer
	errOut io.Writer
	// data controls whether raw device output is shown.
	data bool

	mu syncutil.Mutex
}

func newPrintObserver(cmd *cobra.Command, data bool) *printObserver {
	return &printObserver{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), data: data}
}

func (p *printObserver) Append(msg string, sev session.Severity) {
	if sev == session.SeverityData && !p.data {
		return
	}
	style := styles.SeverityStyle(sev)
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		if line != "" {
			line = style.Render(line)
		}
		lines[i] = line
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, strings.Join(lines, "\n"))
}

func (p *printObserver) Status(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.errOut, styles.StatusMessageStyle.Render(msg))
}

// pollUntil calls done every pollInterval until it reports true or the
// timeout passes. Running out of time is not an error; cancellation is.
func pollUntil(ctx context.Context, clk clockwork.Clock, timeout time.Duration, done func() (bool, error)) error {
	deadline := clk.NewTimer(timeout)
	defer deadline.Stop()
	ticker := clk.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := done()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.Chan():
			return nil
		case <-ticker.Chan():
		}
	}
}

// sleepCtx waits d on clk or until ctx is done.
func sleepCtx(ctx context.Context, clk clockwork.Clock, d time.Duration) error {
	t := clk.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}
