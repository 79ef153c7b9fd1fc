// Package serial is the raw serial transport used by scanprov.
//
// It opens a device in raw mode with fixed framing and no flow control,
// and exposes blocking and context-aware reads and writes.
//
// # Basic Usage
//
// Open a serial port with default configuration (115200 8N1):
//
//	port, err := serial.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
// # Configuration Options
//
// Use functional options for custom configuration:
//
//	port, err := serial.Open("/dev/ttyUSB0",
//	    serial.WithBaudRate(38400),
//	    serial.WithReadTimeout(100*time.Millisecond),
//	)
//
// Options are validated when applied; an unsupported speed returns
// ErrInvalidBaudRate and any other bad value ErrInvalidConfig.
//
// # Read Timeouts
//
// A read returns (0, nil) when nothing arrives within the configured read
// timeout. ReadContext returns as soon as its context is done, but the
// underlying syscall only finishes when the timeout expires, so keep the
// timeout short when reads are cancelled often.
//
// # Port Discovery
//
//	ports, err := serial.ListPorts()
//	for _, portPath := range ports {
//	    info, _ := serial.GetPortInfo(portPath)
//	    fmt.Printf("%s: %s (VID=%s PID=%s Serial=%s)\n",
//	        info.Path, info.Description, info.VendorID, info.ProductID, info.SerialNumber)
//	}
//
// # Platform Support
//
// Linux uses termios directly. Other platforms go through go.bug.st/serial.
// USB metadata comes from go.bug.st/serial/enumerator on every platform.
package serial
