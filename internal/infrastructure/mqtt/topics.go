package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every DevBind topic.
const TopicPrefix = "devbind"

// Topics provides builders for DevBind MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.State("pad-3") // "devbind/state/pad-3"
//
// Element and binding ids are encoded with EncodeTopicSegment so an id
// containing '/', '+' or '#' stays a single topic level.
type Topics struct{}

// Command returns the topic on which commands for an element are received.
//
// Example: devbind/command/pad-3
func (Topics) Command(elementID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, EncodeTopicSegment(elementID))
}

// Ack returns the topic for command acknowledgements.
//
// Example: devbind/ack/pad-3
func (Topics) Ack(elementID string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, EncodeTopicSegment(elementID))
}

// Event returns the topic for events dispatched on an element.
//
// Example: devbind/event/pad-3
func (Topics) Event(elementID string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, EncodeTopicSegment(elementID))
}

// State returns the retained topic carrying an element's attributes.
//
// Example: devbind/state/pad-3
func (Topics) State(elementID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, EncodeTopicSegment(elementID))
}

// IO returns the topic for lines exchanged with a binding's device.
//
// Example: devbind/io/panel-leds
func (Topics) IO(bindingID string) string {
	return fmt.Sprintf("%s/io/%s", TopicPrefix, EncodeTopicSegment(bindingID))
}

// Health returns the retained service health topic. It also carries the
// Last Will.
//
// Example: devbind/health
func (Topics) Health() string {
	return TopicPrefix + "/health"
}

// AllCommands returns a pattern matching commands for every element.
//
// Pattern: devbind/command/+
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+"
}

// AllEvents returns a pattern matching events for every element.
//
// Pattern: devbind/event/+
func (Topics) AllEvents() string {
	return TopicPrefix + "/event/+"
}

// AllTopics returns a pattern matching every DevBind topic.
//
// Pattern: devbind/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// LastSegment returns the decoded final level of a topic, which is the
// element or binding id for every per-id topic.
func LastSegment(topic string) string {
	i := strings.LastIndexByte(topic, '/')
	return DecodeTopicSegment(topic[i+1:])
}

var topicEncoder = strings.NewReplacer(
	"%", "%25",
	"/", "%2F",
	"+", "%2B",
	"#", "%23",
)

var topicDecoder = strings.NewReplacer(
	"%2F", "/",
	"%2B", "+",
	"%23", "#",
	"%25", "%",
)

// EncodeTopicSegment escapes the characters MQTT treats specially in a
// topic level.
// Example: "row/1" → "row%2F1"
func EncodeTopicSegment(id string) string {
	return topicEncoder.Replace(id)
}

// DecodeTopicSegment reverses EncodeTopicSegment.
func DecodeTopicSegment(encoded string) string {
	return topicDecoder.Replace(encoded)
}
