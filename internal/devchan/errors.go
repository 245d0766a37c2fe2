package devchan

import "errors"

// Domain errors for device channels.
var (
	// ErrInvalidLocation is returned when a location cannot be parsed.
	ErrInvalidLocation = errors.New("devchan: invalid location")

	// ErrUnsupportedScheme is returned for location schemes other than file and serial.
	ErrUnsupportedScheme = errors.New("devchan: unsupported location scheme")

	// ErrOpenFailed is returned when the device cannot be opened.
	ErrOpenFailed = errors.New("devchan: open failed")

	// ErrClosed is returned for operations on a closed port.
	ErrClosed = errors.New("devchan: port closed")

	// ErrNotReadable is reported when streaming from a write-only port.
	ErrNotReadable = errors.New("devchan: port not opened for reading")

	// ErrNotWritable is returned when writing to a read-only port.
	ErrNotWritable = errors.New("devchan: port not opened for writing")

	// ErrAlreadyStreaming is reported when Stream is called twice.
	ErrAlreadyStreaming = errors.New("devchan: stream already started")
)
