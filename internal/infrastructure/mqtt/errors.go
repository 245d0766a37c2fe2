package mqtt

import "errors"

// Sentinel errors. Operation failures wrap the sentinel for the operation
// and, when the broker did not answer in time, ErrTimeout as well:
//
//	errors.Is(err, mqtt.ErrPublishFailed) && errors.Is(err, mqtt.ErrTimeout)
var (
	// ErrNotConnected is returned while the broker connection is down. The
	// relay treats it as expected and does not log it.
	ErrNotConnected = errors.New("mqtt: client not connected")

	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrTimeout means the broker did not acknowledge within the operation
	// timeout. The operation may still complete later.
	ErrTimeout = errors.New("mqtt: broker did not acknowledge in time")

	ErrInvalidQoS   = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
