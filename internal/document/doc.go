// Package document holds the element tree that device bindings observe.
//
// Elements carry attributes, namespaced attributes and style properties.
// Bindings attach as observers and are associated with elements through
// channel indices:
//
//	binding "leds"   channel 0 → element "led-hall"
//	                 channel 1 → element "led-door"
//
// Every mutation that changes a value is delivered to the bindings bound to
// the element (with that element's channel index) and to attribute
// listeners. Unchanged values produce no notification.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Notifications are delivered
// outside the document lock, in mutation order. A listener may mutate the
// document; its notifications are queued behind the ones being delivered.
package document
