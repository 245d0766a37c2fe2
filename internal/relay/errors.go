package relay

import "errors"

var (
	// ErrNoClient is returned when the relay has no MQTT client.
	ErrNoClient = errors.New("relay: mqtt client is required")

	// ErrNoDocument is returned when the relay has no document.
	ErrNoDocument = errors.New("relay: document is required")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("relay: already started")
)
