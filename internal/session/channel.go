package session

import (
	"context"
	"fmt"
	"io"

	"github.com/allbin/scanprov/internal/syncutil"
	"github.com/allbin/scanprov/serial"
)

// Chunk is one read result. Done is set once the reader was cancelled or
// the stream ended; Data may be empty on a read timeout.
type Chunk struct {
	Data []byte
	Done bool
}

// StreamReader is the exclusive reading side of a channel.
type StreamReader interface {
	Read() (Chunk, error)
	// Cancel makes the pending or next Read return a Done chunk.
	Cancel()
	// Release gives the lock back to the channel. It is safe to call twice.
	Release()
}

// StreamWriter is the exclusive writing side of a channel.
type StreamWriter interface {
	Write(ctx context.Context, data []byte) error
	Release()
}

// Channel is a bidirectional serial endpoint. Reads and writes take
// independent locks and may run concurrently.
type Channel interface {
	Name() string
	Open(cfg serial.Config) error
	Close() error
	Config() serial.Config
	Readable() bool
	Writable() bool
	Reader() (StreamReader, error)
	Writer() (StreamWriter, error)
}

const readBufferSize = 4096

// SerialChannel is a Channel backed by a serial.Port.
type SerialChannel struct {
	path string
	open serial.Opener

	mu       syncutil.Mutex
	port     serial.Port
	readable bool
	writable bool
	reader   *serialReader
	writer   *serialWriter
}

var _ Channel = (*SerialChannel)(nil)

// NewSerialChannel returns a closed channel for path. A nil opener means
// serial.Open.
func NewSerialChannel(path string, opener serial.Opener) *SerialChannel {
	if opener == nil {
		opener = serial.Open
	}
	return &SerialChannel{path: path, open: opener}
}

func (c *SerialChannel) Name() string {
	return c.path
}

func (c *SerialChannel) Open(cfg serial.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port != nil {
		return fmt.Errorf("%w: %s is already open", ErrOpenFailed, c.path)
	}
	p, err := c.open(c.path, cfg.Options()...)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, c.path, err)
	}
	c.port = p
	c.readable = true
	c.writable = true
	return nil
}

// Close cancels a held reader and closes the port.
func (c *SerialChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return fmt.Errorf("%w: %s: %w", ErrCloseFailed, c.path, serial.ErrPortClosed)
	}
	if c.reader != nil {
		c.reader.Cancel()
		c.reader = nil
	}
	c.writer = nil

	err := c.port.Close()
	c.port = nil
	c.readable = false
	c.writable = false
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCloseFailed, c.path, err)
	}
	return nil
}

func (c *SerialChannel) Config() serial.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return serial.Config{}
	}
	return c.port.Config()
}

func (c *SerialChannel) Readable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil && c.readable
}

func (c *SerialChannel) Writable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil && c.writable
}

func (c *SerialChannel) Reader() (StreamReader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil || !c.readable {
		return nil, ErrNoChannel
	}
	if c.reader != nil {
		return nil, ErrReaderLocked
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.reader = &serialReader{
		ch:     c,
		port:   c.port,
		buf:    make([]byte, readBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	return c.reader, nil
}

func (c *SerialChannel) Writer() (StreamWriter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil || !c.writable {
		return nil, ErrNoChannel
	}
	if c.writer != nil {
		return nil, ErrWriterLocked
	}
	c.writer = &serialWriter{ch: c, port: c.port}
	return c.writer, nil
}

func (c *SerialChannel) markUnreadable() {
	c.mu.Lock()
	c.readable = false
	c.mu.Unlock()
}

type serialReader struct {
	ch     *SerialChannel
	port   serial.Port
	buf    []byte
	ctx    context.Context
	cancel context.CancelFunc
}

// Read blocks until data arrives or the reader is cancelled. The port's
// read timeout bounds how long a cancellation takes to be observed, and a
// read that completes after Cancel still returns its data. Only errors
// meaning the device is gone leave the channel unreadable.
func (r *serialReader) Read() (Chunk, error) {
	for {
		if r.ctx.Err() != nil {
			return Chunk{Done: true}, nil
		}
		n, err := r.port.Read(r.buf)
		if err != nil {
			if r.ctx.Err() != nil {
				return Chunk{Done: true}, nil
			}
			if serial.IsDisconnect(err) {
				r.ch.markUnreadable()
			}
			return Chunk{}, fmt.Errorf("%w: %w", ErrReadFailed, err)
		}
		if n > 0 {
			return Chunk{Data: append([]byte(nil), r.buf[:n]...)}, nil
		}
	}
}

func (r *serialReader) Cancel() {
	r.cancel()
}

func (r *serialReader) Release() {
	r.cancel()
	r.ch.mu.Lock()
	if r.ch.reader == r {
		r.ch.reader = nil
	}
	r.ch.mu.Unlock()
}

type serialWriter struct {
	ch   *SerialChannel
	port serial.Port
}

// Write sends all of data and waits for it to leave the UART.
func (w *serialWriter) Write(ctx context.Context, data []byte) error {
	for len(data) > 0 {
		n, err := w.port.WriteContext(ctx, data)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %w", ErrWriteFailed, io.ErrShortWrite)
		}
		data = data[n:]
	}
	if err := w.port.Drain(); err != nil {
		return fmt.Errorf("%w: drain: %w", ErrWriteFailed, err)
	}
	return nil
}

func (w *serialWriter) Release() {
	w.ch.mu.Lock()
	if w.ch.writer == w {
		w.ch.writer = nil
	}
	w.ch.mu.Unlock()
}
