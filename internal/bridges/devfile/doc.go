// Package devfile binds document elements to devices that are reachable only
// through a byte-oriented device file speaking a small line protocol.
//
// A binding translates between two sides:
//
//	┌─────────────────┐  notifications  ┌─────────────────┐  lines   ┌──────────┐
//	│ Document model  │────────────────►│  Binding (this  │◄────────►│  Device  │
//	│   (elements)    │◄────────────────│     package)    │          │   file   │
//	└─────────────────┘ attrs / events  └─────────────────┘          └──────────┘
//
// # Binding variants
//
//   - InputBitsBinding: one character per channel, fires "pressed"/"released"
//   - OutputColorBinding: several channels per element, colour-encoded
//   - IOBitBinding: one bidirectional channel mirrored on a boolean attribute
//   - OutputTextBinding: raw message lines or attribute=text lines
//
// # Channel mapping mini-language
//
// The colors-channel attribute maps colour names to channel offsets inside an
// element's block:
//
//	colors-channel="red:0;green:1;blue:2"   // indexed
//	colors-channel="red;green;blue"         // sequential, same result
//	colors-channel="red:2;green;blue"       // mixed: sequential, with a warning
//
// # Thread Safety
//
// Notifications may arrive from any goroutine. Each binding serialises its
// read-modify-write-then-transmit sequences through a WriteSerializer, so the
// device always receives a coherent snapshot. Callers are never blocked by
// device I/O.
package devfile
