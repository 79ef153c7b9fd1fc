package serial

import "context"

// Port represents a serial port connection interface
type Port interface {
	Close() error
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	ReadContext(ctx context.Context, buf []byte) (int, error)
	WriteContext(ctx context.Context, data []byte) (int, error)
	Drain() error
	FlushInput() error
	Config() Config
}

// Opener opens a device with the given options. Open is the default;
// tests substitute their own.
type Opener func(device string, opts ...Option) (Port, error)

var _ Opener = Open

// readResult and writeResult carry the outcome of a blocking syscall
// back to the context-aware wrappers.
type readResult struct {
	n   int
	err error
}

type writeResult struct {
	n   int
	err error
}

// readContext runs read in a goroutine and returns early if ctx is done.
// The read keeps running until the port's read timeout expires, so buf
// must not be reused by the caller after a cancelled call.
func readContext(ctx context.Context, buf []byte, read func([]byte) (int, error)) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	resultCh := make(chan readResult, 1)
	go func() {
		n, err := read(buf)
		resultCh <- readResult{n: n, err: err}
	}()

	select {
	case result := <-resultCh:
		return result.n, result.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func writeContext(ctx context.Context, data []byte, write func([]byte) (int, error)) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	resultCh := make(chan writeResult, 1)
	go func() {
		n, err := write(data)
		resultCh <- writeResult{n: n, err: err}
	}()

	select {
	case result := <-resultCh:
		return result.n, result.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
