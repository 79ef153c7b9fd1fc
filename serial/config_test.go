package serial

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 115200 {
		t.Errorf("Expected BaudRate 115200, got %d", config.BaudRate)
	}
	if config.DataBits != 8 {
		t.Errorf("Expected DataBits 8, got %d", config.DataBits)
	}
	if config.StopBits != 1 {
		t.Errorf("Expected StopBits 1, got %d", config.StopBits)
	}
	if config.Parity != ParityNone {
		t.Errorf("Expected Parity None, got %v", config.Parity)
	}
	if config.String() != "115200 8N1" {
		t.Errorf("Expected 115200 8N1, got %s", config.String())
	}
}

func TestFunctionalOptions(t *testing.T) {
	config, err := NewConfig(
		WithBaudRate(38400),
		WithDataBits(7),
		WithStopBits(2),
		WithParity(ParityEven),
		WithSyncWrite(),
	)
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}

	if config.BaudRate != 38400 {
		t.Errorf("Expected BaudRate 38400, got %d", config.BaudRate)
	}
	if config.DataBits != 7 {
		t.Errorf("Expected DataBits 7, got %d", config.DataBits)
	}
	if config.StopBits != 2 {
		t.Errorf("Expected StopBits 2, got %d", config.StopBits)
	}
	if config.Parity != ParityEven {
		t.Errorf("Expected Parity Even, got %v", config.Parity)
	}
	if config.WriteMode != WriteModeSynced {
		t.Errorf("Expected WriteModeSynced, got %v", config.WriteMode)
	}
	if config.String() != "38400 7E2" {
		t.Errorf("Expected 38400 7E2, got %s", config.String())
	}
}

func TestOptionsRoundTrip(t *testing.T) {
	want, err := NewConfig(WithBaudRate(57600), WithParity(ParityOdd))
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}

	got, err := NewConfig(want.Options()...)
	if err != nil {
		t.Fatalf("NewConfig from Options failed: %v", err)
	}
	if got != want {
		t.Errorf("Options() did not reproduce config: got %+v, want %+v", got, want)
	}
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr error
	}{
		{"baud 123456", WithBaudRate(123456), ErrInvalidBaudRate},
		{"baud 0", WithBaudRate(0), ErrInvalidBaudRate},
		{"data bits 9", WithDataBits(9), ErrInvalidConfig},
		{"data bits 4", WithDataBits(4), ErrInvalidConfig},
		{"stop bits 3", WithStopBits(3), ErrInvalidConfig},
		{"parity out of range", WithParity(Parity(7)), ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := tt.opt(&config)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"0ms (non-blocking)", 0, false},
		{"100ms (valid)", 100 * time.Millisecond, false},
		{"500ms (valid)", 500 * time.Millisecond, false},
		{"2500ms (valid)", 2500 * time.Millisecond, false},
		{"25500ms (max)", 25500 * time.Millisecond, false},
		{"150ms (not multiple of 100ms)", 150 * time.Millisecond, true},
		{"250ns (not multiple of 100ms)", 250 * time.Nanosecond, true},
		{"25600ms (exceeds max)", 25600 * time.Millisecond, true},
		{"-100ms (negative)", -100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithReadTimeout(tt.timeout)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
			if err == nil && config.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", config.ReadTimeout, tt.timeout)
			}
		})
	}
}

func TestValidBaudRate(t *testing.T) {
	for _, rate := range []int{38400, 57600, 115200} {
		if !ValidBaudRate(rate) {
			t.Errorf("Expected %d to be valid", rate)
		}
	}
	if ValidBaudRate(12345) {
		t.Error("Expected 12345 to be invalid")
	}
}
