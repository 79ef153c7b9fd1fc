// Package testutils provides an in-memory serial device for tests.
package testutils

import (
	"context"
	"time"

	"github.com/allbin/scanprov/internal/syncutil"
	"github.com/allbin/scanprov/serial"
)

// EventKind identifies a recorded port operation.
type EventKind int

const (
	EventOpen EventKind = iota
	EventWrite
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventWrite:
		return "write"
	default:
		return "close"
	}
}

// Event is one recorded operation. Baud is set for opens, Data for writes.
type Event struct {
	Kind EventKind
	Baud int
	Data []byte
}

// MockDevice hands out MockPorts and records everything done to them in
// order, across reopens.
type MockDevice struct {
	// OpenErr, WriteErr and CloseErr are returned by the matching calls
	// when set.
	OpenErr  error
	WriteErr error
	CloseErr error
	// Respond, when set, is called with every write and its result is
	// queued as incoming data.
	Respond func(written []byte) []byte
	// ReadTimeout is how long an idle Read blocks before returning 0 bytes.
	ReadTimeout time.Duration

	mu      syncutil.Mutex
	events  []Event
	current *MockPort
}

func NewMockDevice() *MockDevice {
	return &MockDevice{ReadTimeout: 5 * time.Millisecond}
}

var _ serial.Opener = (*MockDevice)(nil).Open

// Open is a serial.Opener.
func (d *MockDevice) Open(_ string, opts ...serial.Option) (serial.Port, error) {
	cfg, err := serial.NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	p := &MockPort{
		dev:     d,
		config:  cfg,
		rx:      make(chan []byte, 64),
		readErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
	d.events = append(d.events, Event{Kind: EventOpen, Baud: cfg.BaudRate})
	d.current = p
	return p, nil
}

// Events returns a copy of the recorded operations.
func (d *MockDevice) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// Writes returns the payloads of all recorded writes.
func (d *MockDevice) Writes() [][]byte {
	var out [][]byte
	for _, e := range d.Events() {
		if e.Kind == EventWrite {
			out = append(out, e.Data)
		}
	}
	return out
}

// Current is the most recently opened port.
func (d *MockDevice) Current() *MockPort {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Feed queues data on the current port as if the device sent it.
func (d *MockDevice) Feed(data []byte) {
	if p := d.Current(); p != nil {
		p.Feed(data)
	}
}

func (d *MockDevice) record(e Event) {
	d.mu.Lock()
	d.events = append(d.events, e)
	d.mu.Unlock()
}

// MockPort implements serial.Port in memory.
type MockPort struct {
	dev    *MockDevice
	config serial.Config

	rx      chan []byte
	readErr chan error
	done    chan struct{}

	mu      syncutil.Mutex
	pending []byte
	closed  bool
}

var _ serial.Port = (*MockPort)(nil)

// Feed queues incoming data.
func (p *MockPort) Feed(data []byte) {
	select {
	case p.rx <- append([]byte(nil), data...):
	case <-p.done:
	}
}

// FailRead makes the next Read return err.
func (p *MockPort) FailRead(err error) {
	select {
	case p.readErr <- err:
	default:
	}
}

func (p *MockPort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *MockPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, serial.ErrPortClosed
	}
	if len(p.pending) > 0 {
		n := copy(buf, p.pending)
		p.pending = p.pending[n:]
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()

	timer := time.NewTimer(p.dev.ReadTimeout)
	defer timer.Stop()

	select {
	case data := <-p.rx:
		n := copy(buf, data)
		if n < len(data) {
			p.mu.Lock()
			p.pending = append(p.pending, data[n:]...)
			p.mu.Unlock()
		}
		return n, nil
	case err := <-p.readErr:
		return 0, err
	case <-p.done:
		return 0, serial.ErrPortClosed
	case <-timer.C:
		return 0, nil
	}
}

func (p *MockPort) Write(data []byte) (int, error) {
	if p.isClosed() {
		return 0, serial.ErrPortClosed
	}

	p.dev.mu.Lock()
	werr := p.dev.WriteErr
	respond := p.dev.Respond
	p.dev.mu.Unlock()
	if werr != nil {
		return 0, werr
	}

	p.dev.record(Event{Kind: EventWrite, Data: append([]byte(nil), data...)})
	if respond != nil {
		if reply := respond(data); len(reply) > 0 {
			p.Feed(reply)
		}
	}
	return len(data), nil
}

func (p *MockPort) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return p.Read(buf)
}

func (p *MockPort) WriteContext(ctx context.Context, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return p.Write(data)
}

func (p *MockPort) Drain() error {
	if p.isClosed() {
		return serial.ErrPortClosed
	}
	return nil
}

func (p *MockPort) FlushInput() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return serial.ErrPortClosed
	}
	p.pending = nil
	for {
		select {
		case <-p.rx:
		default:
			return nil
		}
	}
}

func (p *MockPort) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return serial.ErrPortClosed
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.dev.record(Event{Kind: EventClose})
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	return p.dev.CloseErr
}

func (p *MockPort) Config() serial.Config {
	return p.config
}
