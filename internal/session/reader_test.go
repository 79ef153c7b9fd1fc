package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/allbin/scanprov/internal/testutils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferContains(s *Session, sub string) func() bool {
	return func() bool { return strings.Contains(s.Buffer().String(), sub) }
}

func TestReadLoopVisualizesChunks(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	s, dev := openSession(t, "17W", WithAutoValidate(false, 0), WithObserver(obs))
	startReading(t, s)

	dev.Feed([]byte("Serial Number: "))
	dev.Feed([]byte("AB12345678\r\n"))
	dev.Feed([]byte{0x02, 'Q', 'R', 0x03, 0x7f})

	want := "Serial Number: AB12345678[CR][LF][STX]QR[ETX][DEL]"
	require.Eventually(t, bufferContains(s, want), time.Second, time.Millisecond)
	assert.Equal(t, want, s.Buffer().String())
}

func TestReadLoopReadingFlag(t *testing.T) {
	t.Parallel()

	s, _ := openSession(t, "17W")
	assert.False(t, s.IsReading())

	done := make(chan error, 1)
	go func() { done <- s.ReadLoop() }()
	require.Eventually(t, s.IsReading, time.Second, time.Millisecond)

	assert.ErrorIs(t, s.ReadLoop(), ErrAlreadyReading)

	s.StopReading()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("read loop did not stop")
	}
	assert.False(t, s.IsReading())
}

func TestReadLoopCancelIsNotAnError(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.ErrorLevel)
	s, _ := openSession(t, "16C", WithLogger(logger))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.ReadLoop()
	}()
	require.Eventually(t, s.IsReading, time.Second, time.Millisecond)

	s.StopReading()
	<-done
	assert.Empty(t, logs.String())
	assert.True(t, s.Channel().Readable())
}

func TestReadLoopExitsWhenDeviceIsGone(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.ErrorLevel)
	obs := &recordingObserver{}
	s, dev := openSession(t, "17W", WithLogger(logger), WithObserver(obs))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.ReadLoop()
	}()
	require.Eventually(t, s.IsReading, time.Second, time.Millisecond)

	dev.Current().FailRead(syscall.EIO)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read loop did not exit")
	}

	assert.False(t, s.IsReading())
	assert.False(t, s.Channel().Readable())
	assert.Contains(t, logs.String(), syscall.EIO.Error())
	assert.Contains(t, obs.Appended(), "●受信エラー: read failed: "+syscall.EIO.Error())
	assert.Zero(t, s.Buffer().Len())
}

func TestReadLoopSurvivesTransientReadError(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.ErrorLevel)
	obs := &recordingObserver{}
	s, dev := openSession(t, "17W",
		WithLogger(logger),
		WithObserver(obs),
		WithReadTimeout(5*time.Millisecond),
		WithAutoValidate(false, 0),
	)
	startReading(t, s)

	dev.Current().FailRead(errors.New("framing error"))
	require.Eventually(t, func() bool {
		return strings.Contains(obs.Appended(), "●受信エラー: read failed: framing error")
	}, time.Second, time.Millisecond)

	assert.True(t, s.IsReading())
	assert.True(t, s.Channel().Readable())
	assert.Contains(t, logs.String(), "framing error")

	dev.Feed([]byte("after"))
	require.Eventually(t, bufferContains(s, "after"), time.Second, time.Millisecond)
	assert.Equal(t, "after", s.Buffer().String())
}

func TestReadLoopKeepsDataReadAfterStop(t *testing.T) {
	t.Parallel()

	dev := testutils.NewMockDevice()
	dev.ReadTimeout = time.Second
	s, _ := openSessionOn(t, dev, "17W")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.ReadLoop()
	}()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.reader != nil
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	// The loop is parked in a read; data that arrives with the stop is kept.
	s.keepReading.Store(false)
	dev.Feed([]byte("tail"))
	<-done
	assert.Equal(t, "tail", s.Buffer().String())
}

func TestChannelCloseCancelsReader(t *testing.T) {
	t.Parallel()

	s, _ := openSession(t, "17W")
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.ReadLoop()
	}()
	require.Eventually(t, s.IsReading, time.Second, time.Millisecond)

	require.NoError(t, s.Channel().Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read loop survived close")
	}
	assert.False(t, s.IsReading())
}

func TestReaderIsExclusive(t *testing.T) {
	t.Parallel()

	s, _ := openSession(t, "17W")
	r, err := s.Channel().Reader()
	require.NoError(t, err)

	_, err = s.Channel().Reader()
	assert.ErrorIs(t, err, ErrReaderLocked)

	r.Release()
	r.Release()
	r2, err := s.Channel().Reader()
	require.NoError(t, err)
	r2.Release()
}

func TestDisconnect(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	s, dev := openSession(t, "17W",
		WithStopTimeout(time.Second, 2*time.Millisecond),
		WithCloseDelay(time.Millisecond),
		WithObserver(obs),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.ReadLoop()
	}()
	require.Eventually(t, s.IsReading, time.Second, time.Millisecond)

	require.NoError(t, s.Disconnect(context.Background()))
	<-done

	assert.False(t, s.IsReading())
	assert.False(t, s.Channel().Readable())
	events := dev.Events()
	assert.Equal(t, testutils.EventClose, events[len(events)-1].Kind)
	assert.Contains(t, obs.Statuses(), "切断しました: /dev/ttyMOCK0")

	// A second disconnect hits an already closed channel and is ignored.
	assert.NoError(t, s.Disconnect(context.Background()))
}

func TestDisconnectIgnoresCloseError(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	dev := testutils.NewMockDevice()
	dev.CloseErr = errors.New("EIO")
	s, _ := openSessionOn(t, dev, "16C",
		WithCloseDelay(0),
		WithLogger(zerolog.New(&logs)),
	)

	require.NoError(t, s.Disconnect(context.Background()))
	assert.Contains(t, logs.String(), "ignoring close error")
	assert.Contains(t, logs.String(), "EIO")
}
