package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/allbin/scanprov/internal/testutils"
	"github.com/allbin/scanprov/internal/variant"
	"github.com/allbin/scanprov/serial"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	appended []string
	statuses []string
}

func (r *recordingObserver) Append(msg string, _ Severity) {
	r.mu.Lock()
	r.appended = append(r.appended, msg)
	r.mu.Unlock()
}

func (r *recordingObserver) Status(msg string) {
	r.mu.Lock()
	r.statuses = append(r.statuses, msg)
	r.mu.Unlock()
}

func (r *recordingObserver) Appended() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.appended, "")
}

func (r *recordingObserver) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

// openSession returns a session on an open mock channel without starting
// the read loop.
func openSession(t *testing.T, variantID string, opts ...Option) (*Session, *testutils.MockDevice) {
	t.Helper()
	return openSessionOn(t, testutils.NewMockDevice(), variantID, opts...)
}

func openSessionOn(t *testing.T, dev *testutils.MockDevice, variantID string, opts ...Option) (*Session, *testutils.MockDevice) {
	t.Helper()

	reg := variant.Default()
	d, err := reg.Lookup(variantID)
	require.NoError(t, err)

	ch := NewSerialChannel("/dev/ttyMOCK0", dev.Open)
	cfg, err := serial.NewConfig(serial.WithBaudRate(d.BaudRate))
	require.NoError(t, err)
	require.NoError(t, ch.Open(cfg))

	return New(ch, reg, d, opts...), dev
}

// startReading runs the read loop and stops it when the test ends.
func startReading(t *testing.T, s *Session) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.ReadLoop()
	}()
	require.Eventually(t, s.IsReading, time.Second, time.Millisecond)
	t.Cleanup(func() {
		s.StopReading()
		<-done
	})
	return done
}

// driveClock advances clk in steps whenever something waits on it.
func driveClock(ctx context.Context, clk *clockwork.FakeClock, step time.Duration, before func()) {
	for {
		if err := clk.BlockUntilContext(ctx, 1); err != nil {
			return
		}
		if before != nil {
			before()
		}
		clk.Advance(step)
	}
}
