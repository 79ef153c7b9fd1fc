//go:build !linux

package serial

import (
	"context"
	"errors"
	"fmt"
	"sync"

	bugst "go.bug.st/serial"
)

// port wraps a go.bug.st/serial port on platforms without the termios backend
type port struct {
	mu     sync.RWMutex
	p      bugst.Port
	device string
	config Config
	closed bool
}

var _ Port = (*port)(nil)

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (Port, error) {
	config, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	mode := &bugst.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	switch config.Parity {
	case ParityOdd:
		mode.Parity = bugst.OddParity
	case ParityEven:
		mode.Parity = bugst.EvenParity
	}
	if config.StopBits == 2 {
		mode.StopBits = bugst.TwoStopBits
	}

	p, err := bugst.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, classifyOpenError(err))
	}

	if err := p.SetReadTimeout(config.ReadTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &port{p: p, device: device, config: config}, nil
}

func classifyOpenError(err error) error {
	var portErr *bugst.PortError
	if !errors.As(err, &portErr) {
		return err
	}
	switch portErr.Code() {
	case bugst.PortNotFound:
		return fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	case bugst.PermissionDenied:
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case bugst.PortBusy:
		return fmt.Errorf("%w: %v", ErrDeviceInUse, err)
	case bugst.InvalidSpeed:
		return fmt.Errorf("%w: %v", ErrInvalidBaudRate, err)
	default:
		return err
	}
}

func (p *port) Config() Config {
	return p.config
}

func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.closed = true
	return p.p.Close()
}

func (p *port) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	n, err := p.p.Read(buf)
	var pe *bugst.PortError
	if errors.As(err, &pe) && pe.Code() == bugst.PortClosed {
		return n, fmt.Errorf("%w: %w", ErrPortClosed, err)
	}
	return n, err
}

func (p *port) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	return p.p.Write(data)
}

func (p *port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	return readContext(ctx, buf, p.Read)
}

func (p *port) WriteContext(ctx context.Context, data []byte) (int, error) {
	return writeContext(ctx, data, p.Write)
}

func (p *port) Drain() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}
	return p.p.Drain()
}

func (p *port) FlushInput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}
	return p.p.ResetInputBuffer()
}
