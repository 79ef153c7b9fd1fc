package session

import "errors"

var (
	ErrNoChannelSelected = errors.New("no channel selected")
	ErrOpenFailed        = errors.New("open failed")
	ErrWriteFailed       = errors.New("write failed")
	ErrCloseFailed       = errors.New("close failed")
	ErrReadFailed        = errors.New("read failed")

	// Lock errors. A channel hands out at most one reader and one writer.
	ErrReaderLocked = errors.New("channel reader already held")
	ErrWriterLocked = errors.New("channel writer already held")

	ErrNoChannel      = errors.New("channel is not open")
	ErrAlreadyReading = errors.New("session is already reading")
)
