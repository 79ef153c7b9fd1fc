package session

import (
	"context"
	"fmt"

	"github.com/allbin/scanprov/internal/syncutil"
	"github.com/allbin/scanprov/internal/variant"
	"github.com/allbin/scanprov/serial"
)

// State is a step of connection negotiation.
type State int

const (
	StateIdle State = iota
	StateSelecting
	StateOpeningDefault
	StateReopenPending
	StateClosingDefault
	StateOpeningTarget
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateOpeningDefault:
		return "opening-default"
	case StateReopenPending:
		return "reopen-pending"
	case StateClosingDefault:
		return "closing-default"
	case StateOpeningTarget:
		return "opening-target"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Negotiator brings a channel from closed to ready for a variant, switching
// line speed when the variant needs it.
type Negotiator struct {
	registry *variant.Registry
	selector Selector
	opts     options

	mu           syncutil.Mutex
	state        State
	onTransition func(from, to State)
}

func NewNegotiator(registry *variant.Registry, selector Selector, opts ...Option) *Negotiator {
	return &Negotiator{
		registry: registry,
		selector: selector,
		opts:     buildOptions(opts),
	}
}

// OnTransition registers fn to be called on every state change.
func (n *Negotiator) OnTransition(fn func(from, to State)) {
	n.mu.Lock()
	n.onTransition = fn
	n.mu.Unlock()
}

func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Negotiator) setState(to State) {
	n.mu.Lock()
	from := n.state
	n.state = to
	fn := n.onTransition
	n.mu.Unlock()

	n.opts.logger.Debug().Stringer("from", from).Stringer("to", to).Msg("negotiation state")
	if fn != nil && from != to {
		fn(from, to)
	}
}

func (n *Negotiator) fail(err error) error {
	n.setState(StateFailed)
	n.opts.logger.Error().Err(err).Msg("negotiation failed")
	return err
}

// Negotiate resolves variantID, selects a channel and opens it at the
// initial speed. Variants that need a different speed get the wake payload,
// a settle pause, a close and a reopen at their own speed followed by the
// display test line. On failure the channel is closed and not returned.
func (n *Negotiator) Negotiate(ctx context.Context, variantID string) (Channel, *variant.Descriptor, error) {
	n.setState(StateIdle)
	log := n.opts.logger.With().Str("variant", variantID).Logger()

	d, err := n.registry.Lookup(variantID)
	if err != nil {
		return nil, nil, n.fail(err)
	}

	n.setState(StateSelecting)
	ch, err := n.selector.Select(ctx)
	if err != nil {
		return nil, nil, n.fail(err)
	}
	log = log.With().Str("port", ch.Name()).Logger()

	n.setState(StateOpeningDefault)
	base, err := serial.NewConfig(
		serial.WithBaudRate(n.registry.InitialBaud),
		serial.WithReadTimeout(n.opts.readTimeout),
	)
	if err != nil {
		return nil, nil, n.fail(fmt.Errorf("%w: %w", ErrOpenFailed, err))
	}
	if err := ch.Open(base); err != nil {
		return nil, nil, n.fail(err)
	}
	log.Info().Stringer("config", base).Msg("channel opened")

	if d.NeedsReopen {
		if err := n.reopen(ctx, ch, d, base); err != nil {
			if ch.Writable() || ch.Readable() {
				_ = ch.Close()
			}
			return nil, nil, n.fail(err)
		}
		log.Info().Int("baud", d.BaudRate).Msg("channel reopened at target speed")
	}

	n.setState(StateReady)
	return ch, d, nil
}

func (n *Negotiator) reopen(ctx context.Context, ch Channel, d *variant.Descriptor, base serial.Config) error {
	n.setState(StateReopenPending)
	if err := writeChannel(ctx, ch, d.WakePayload); err != nil {
		return err
	}
	if err := sleep(ctx, n.opts.clock, n.opts.wakeSettle); err != nil {
		return err
	}

	n.setState(StateClosingDefault)
	if err := ch.Close(); err != nil {
		return err
	}

	n.setState(StateOpeningTarget)
	target := base
	target.BaudRate = d.BaudRate
	if err := ch.Open(target); err != nil {
		return err
	}
	return writeChannel(ctx, ch, []byte(n.opts.displayTest+"\r\n"))
}

// Connect negotiates and wraps the ready channel in a new Session.
func (n *Negotiator) Connect(ctx context.Context, variantID string) (*Session, error) {
	ch, d, err := n.Negotiate(ctx, variantID)
	if err != nil {
		return nil, err
	}
	return newSession(ch, n.registry, d, n.opts), nil
}

// writeChannel performs one write under the channel's writer lock.
func writeChannel(ctx context.Context, ch Channel, data []byte) error {
	if ch == nil || !ch.Writable() {
		return fmt.Errorf("%w: %w", ErrWriteFailed, ErrNoChannel)
	}
	w, err := ch.Writer()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	defer w.Release()
	return w.Write(ctx, data)
}
