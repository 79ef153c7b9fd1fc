package session

import (
	"context"

	"github.com/allbin/scanprov/serial"
)

// Selector obtains a closed channel, usually by asking the operator.
// Implementations return ErrNoChannelSelected when the choice is declined.
type Selector interface {
	Select(ctx context.Context) (Channel, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(ctx context.Context) (Channel, error)

func (f SelectorFunc) Select(ctx context.Context) (Channel, error) {
	return f(ctx)
}

// PathSelector selects a fixed device path.
func PathSelector(path string, opener serial.Opener) Selector {
	return SelectorFunc(func(ctx context.Context) (Channel, error) {
		if path == "" {
			return nil, ErrNoChannelSelected
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return NewSerialChannel(path, opener), nil
	})
}
