package serial

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsDisconnect(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"closed port", ErrPortClosed, true},
		{"wrapped closed port", fmt.Errorf("read: %w", ErrPortClosed), true},
		{"EIO", syscall.EIO, true},
		{"ENXIO", syscall.ENXIO, true},
		{"ENODEV", syscall.ENODEV, true},
		{"EBADF", syscall.EBADF, true},
		{"EAGAIN", syscall.EAGAIN, false},
		{"other", errors.New("framing error"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDisconnect(tt.err); got != tt.want {
				t.Errorf("IsDisconnect(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
