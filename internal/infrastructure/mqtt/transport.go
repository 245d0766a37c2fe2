package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize bounds outgoing payloads. DevBind messages are small JSON
// documents; anything near this limit is a bug upstream.
const maxPayloadSize = 1 << 20

// Publish sends payload on topic and waits for the broker's acknowledgement.
//
// The relay retains element state (devbind/state/...) and the client retains
// health; events, acks and binding I/O are never retained.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	return await(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed, defaultPublishTimeout)
}

// Subscribe registers handler for topic, which may contain + and #
// wildcards. The subscription is remembered and restored after every
// reconnect; a failed subscribe is forgotten.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{topic: topic, qos: qos, handler: handler}
	c.subMu.Unlock()

	err := await(c.client.Subscribe(topic, qos, c.wrapHandler(handler)), ErrSubscribeFailed, defaultPublishTimeout)
	if err != nil {
		c.forget(topic)
	}
	return err
}

// Unsubscribe removes a subscription made with Subscribe. It is forgotten
// even when the broker does not acknowledge, so it is not restored on the
// next reconnect.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.forget(topic)
	return await(c.client.Unsubscribe(topic), ErrUnsubscribeFailed, defaultPublishTimeout)
}

// SubscriptionCount returns the number of subscriptions restored on reconnect.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

func (c *Client) forget(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}

func validate(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}

// await waits for a paho token and wraps its outcome in op.
func await(token pahomqtt.Token, op error, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: %w after %v", op, ErrTimeout, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", op, err)
	}
	return nil
}
