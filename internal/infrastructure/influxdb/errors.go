package influxdb

import "errors"

// Errors returned by the metrics client. Point writes are asynchronous, so
// ErrWriteFailed only reaches callers through the SetOnError callback.
var (
	// ErrNotConnected is returned after Close or before Connect succeeded.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps ping and readiness failures from Connect.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed wraps a batch the server rejected or never received.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// Callers treat it as "run without metrics", not as a failure.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
