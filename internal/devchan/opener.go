package devchan

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.bug.st/serial"
)

// Default opener settings.
const (
	// DefaultBaud is used for serial locations without a baud parameter.
	DefaultBaud = 9600

	// DefaultWriteQueueSize is the number of writes a port buffers.
	DefaultWriteQueueSize = 64
)

// Mode selects the direction a port is opened for.
type Mode int

// Port modes.
const (
	ModeRead Mode = iota + 1
	ModeWrite
	ModeReadWrite
)

// String returns the mode name used in logs.
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeReadWrite:
		return "read_write"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) readable() bool { return m == ModeRead || m == ModeReadWrite }
func (m Mode) writable() bool { return m == ModeWrite || m == ModeReadWrite }

func (m Mode) fileFlag() int {
	switch m {
	case ModeRead:
		return os.O_RDONLY
	case ModeWrite:
		return os.O_WRONLY
	default:
		return os.O_RDWR
	}
}

// handle is the subset of *os.File and serial.Port a Port needs.
type handle interface {
	io.Reader
	io.Writer
	io.Closer
}

// allow tests to override the underlying open calls
var (
	openFile   = func(path string, flag int) (handle, error) { return os.OpenFile(path, flag, 0) }
	openSerial = func(path string, mode *serial.Mode) (handle, error) { return serial.Open(path, mode) }
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Opener opens ports by location.
type Opener struct {
	// DefaultBaud is used when a serial location has no baud parameter.
	// Default: 9600.
	DefaultBaud int

	// WriteQueueSize is the write buffer of each port. Default: 64.
	WriteQueueSize int

	// Logger is optional.
	Logger Logger
}

// Open opens the device at location.
func (o *Opener) Open(ctx context.Context, location string, mode Mode) (*Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	var h handle
	switch loc.Scheme {
	case SchemeSerial:
		baud := loc.Baud
		if baud == 0 {
			baud = o.DefaultBaud
		}
		if baud <= 0 {
			baud = DefaultBaud
		}
		h, err = openSerial(loc.Path, &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
	default:
		h, err = openFile(loc.Path, mode.fileFlag())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, loc, err)
	}

	queue := o.WriteQueueSize
	if queue <= 0 {
		queue = DefaultWriteQueueSize
	}

	p := newPort(location, mode, h, queue)
	if o.Logger != nil {
		p.logger = o.Logger
		o.Logger.Debug("device channel opened", "location", location, "mode", mode.String())
	}
	return p, nil
}
