// Package devchan opens byte-oriented device channels.
//
// A location is either a device file path or a serial port URL:
//
//	/dev/devbind/panel0                 plain path, opened with os.OpenFile
//	file:///dev/devbind/panel0          same, as a URL
//	serial:///dev/ttyUSB0?baud=115200   serial port, 8N1
//
// A Port delivers read chunks from one goroutine, in arrival order, and
// performs writes on one writer goroutine, in call order. Both report
// through callbacks so callers never wait on the device.
//
// # Thread Safety
//
// All Port methods are safe for concurrent use. Close is idempotent and fails
// any queued write with ErrClosed.
package devchan
