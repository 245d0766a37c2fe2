// Package relay connects the document model to MQTT.
//
// Inbound, it subscribes to devbind/command/+ and applies each command to
// the document (set or remove an attribute or style property, or dispatch an
// event), publishing an acknowledgement on devbind/ack/{element}.
//
// Outbound, it publishes:
//   - devbind/event/{element}: events dispatched on elements (pressed, released)
//   - devbind/state/{element}: the element's attributes and style, retained
//   - devbind/io/{binding}: lines exchanged with devices, when IO is enabled
//
// Document listeners run on binding goroutines, so outbound messages are
// queued and published from a single goroutine. A full queue drops messages
// rather than stalling device I/O.
package relay
