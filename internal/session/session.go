package session

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/allbin/scanprov/internal/barcode"
	"github.com/allbin/scanprov/internal/codec"
	"github.com/allbin/scanprov/internal/syncutil"
	"github.com/allbin/scanprov/internal/variant"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session is one connected device: its channel, its variant, the text
// streamed from it and what has been learned about it.
type Session struct {
	id       string
	channel  Channel
	registry *variant.Registry
	variant  *variant.Descriptor
	engine   *barcode.Engine
	scanned  *barcode.Set
	buffer   *Buffer
	opts     options
	log      zerolog.Logger

	reading     atomic.Bool
	keepReading atomic.Bool
	closed      atomic.Bool

	mu      syncutil.Mutex
	reader  StreamReader
	serial  string
	box     *boxCheck
	lastBox *BoxSerialResult
}

// New wraps an open channel. Sessions are normally created by
// Negotiator.Connect.
func New(ch Channel, registry *variant.Registry, d *variant.Descriptor, opts ...Option) *Session {
	return newSession(ch, registry, d, buildOptions(opts))
}

func newSession(ch Channel, registry *variant.Registry, d *variant.Descriptor, o options) *Session {
	id := uuid.NewString()
	s := &Session{
		id:       id,
		channel:  ch,
		registry: registry,
		variant:  d,
		engine:   barcode.NewEngine(registry),
		scanned:  barcode.NewSet(),
		buffer:   &Buffer{},
		opts:     o,
	}
	s.log = o.logger.With().
		Str("session", id).
		Str("variant", d.ID).
		Str("port", ch.Name()).
		Logger()
	return s
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) Channel() Channel             { return s.channel }
func (s *Session) Variant() *variant.Descriptor { return s.variant }
func (s *Session) Buffer() *Buffer              { return s.buffer }
func (s *Session) Scanned() *barcode.Set        { return s.scanned }

// Serial is the device serial number learned by ExtractIdentity.
func (s *Session) Serial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serial
}

// Clear empties the buffer.
func (s *Session) Clear() {
	s.buffer.Clear()
	s.opts.observer.Status("受信エリアをクリアしました")
}

// append adds text to the buffer and hands it to the observer.
func (s *Session) append(msg string, sev Severity) {
	s.buffer.Append(msg)
	s.opts.observer.Append(msg, sev)
	if s.opts.autoEnabled && triggersValidation(msg) {
		s.scheduleValidation()
	}
}

func (s *Session) status(msg string) {
	s.opts.observer.Status(msg)
}

// triggersValidation reports whether incoming text looks like the tail of
// a barcode read rather than a command acknowledgement.
func triggersValidation(text string) bool {
	if strings.Contains(text, codec.ACK) {
		return false
	}
	return strings.Contains(text, codec.ETX) || strings.Contains(text, codec.CR)
}

func (s *Session) scheduleValidation() {
	s.opts.clock.AfterFunc(s.opts.autoDelay, func() {
		if s.closed.Load() {
			return
		}
		if _, err := s.ValidateBarcode(); err != nil {
			s.log.Error().Err(err).Msg("auto validation failed")
		}
	})
}

// Disconnect stops the reader, waits a bounded time for it to exit and
// closes the channel. Close errors are logged, not returned.
func (s *Session) Disconnect(ctx context.Context) error {
	s.StopReading()

	deadline := s.opts.clock.Now().Add(s.opts.stopTimeout)
	for s.IsReading() && s.opts.clock.Now().Before(deadline) {
		if err := sleep(ctx, s.opts.clock, s.opts.stopPoll); err != nil {
			return err
		}
	}
	if s.IsReading() {
		s.log.Warn().Dur("timeout", s.opts.stopTimeout).Msg("reader still active, closing anyway")
	}

	if err := sleep(ctx, s.opts.clock, s.opts.closeDelay); err != nil {
		return err
	}

	s.closed.Store(true)
	if err := s.channel.Close(); err != nil {
		s.log.Warn().Err(err).Msg("ignoring close error")
	}
	s.log.Info().Msg("disconnected")
	s.status(fmt.Sprintf("切断しました: %s", s.channel.Name()))
	return nil
}
