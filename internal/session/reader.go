package session

import (
	"errors"
	"fmt"

	"github.com/allbin/scanprov/internal/codec"
)

// ReadLoop streams the channel into the buffer until StopReading is called
// or the channel stops being readable. It blocks; run it on its own
// goroutine. Read errors are logged and shown to the observer, never
// returned. After an error the loop acquires a fresh reader one read
// timeout later, unless the device is gone.
//
// Stopping is cooperative: the flag is checked between reads, so callers
// that need the loop gone must poll IsReading with a bound, as Disconnect
// does.
func (s *Session) ReadLoop() error {
	if !s.reading.CompareAndSwap(false, true) {
		return ErrAlreadyReading
	}
	defer s.reading.Store(false)
	s.keepReading.Store(true)

	s.log.Debug().Msg("read loop started")
	for s.keepReading.Load() && s.channel.Readable() {
		r, err := s.channel.Reader()
		if err != nil {
			if !errors.Is(err, ErrNoChannel) {
				s.log.Error().Err(err).Msg("failed to acquire reader")
			}
			break
		}
		if err := s.readChunks(r); err != nil {
			s.reportReadError(err)
			if s.channel.Readable() {
				<-s.opts.clock.After(s.opts.readTimeout)
			}
		}
	}
	s.log.Debug().Msg("read loop stopped")
	return nil
}

// readChunks drains r until it is done or fails. Errors seen after a stop
// was requested are part of stopping and are not returned.
func (s *Session) readChunks(r StreamReader) error {
	s.setReader(r)
	defer func() {
		s.setReader(nil)
		r.Release()
	}()

	for s.keepReading.Load() {
		c, err := r.Read()
		if err != nil {
			if !s.keepReading.Load() {
				return nil
			}
			return err
		}
		if len(c.Data) > 0 {
			text := s.opts.decoder.Decode(c.Data)
			s.append(codec.Visualize(text), SeverityData)
			s.feedBoxSerial(text)
		}
		if c.Done {
			return nil
		}
	}
	return nil
}

// reportReadError logs err and shows it to the observer. The line is not
// added to the buffer so verification windows only hold device text.
func (s *Session) reportReadError(err error) {
	s.log.Error().Err(err).Bool("readable", s.channel.Readable()).Msg("error while reading")
	s.opts.observer.Append(fmt.Sprintf("\n●受信エラー: %v\n", err), SeverityError)
}

func (s *Session) setReader(r StreamReader) {
	s.mu.Lock()
	s.reader = r
	s.mu.Unlock()
}

// StopReading clears the continue flag and cancels the held reader.
func (s *Session) StopReading() {
	s.keepReading.Store(false)
	s.mu.Lock()
	r := s.reader
	s.mu.Unlock()
	if r != nil {
		r.Cancel()
	}
}

// IsReading reports whether ReadLoop is running.
func (s *Session) IsReading() bool {
	return s.reading.Load()
}
